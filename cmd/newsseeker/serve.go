package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/newsseeker/api"
	"github.com/pevans/newsseeker/collector"
	"github.com/pevans/newsseeker/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func handleServe(cfg *config.Config, log *logrus.Logger, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.Server.Addr, "Address to listen on")
	simulate := fs.Bool("simulate", false, "Run timed simulations instead of fetching sources")
	fs.Parse(args)

	if log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := openStores(cfg)
	exitOnError(err, "failed to open storage")
	defer st.Close()

	runner := collector.NewRunner(workFactory(cfg, st, log, *simulate), collector.WithLogger(log))
	server := api.NewServer(runner, st.runs, st.sources, st.feed, log)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           server.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", *addr).Info("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := runner.Stop(shutdownCtx); err != nil {
			log.WithError(err).Warn("collection did not stop in time")
		}
		return srv.Shutdown(shutdownCtx)
	})

	exitOnError(g.Wait(), "server failed")
	log.Info("server stopped")
}
