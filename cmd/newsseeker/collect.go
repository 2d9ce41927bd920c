package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pevans/newsseeker/collector"
	"github.com/pevans/newsseeker/config"
	"github.com/pevans/newsseeker/discovery"
	"github.com/pevans/newsseeker/taskconfig"
	"github.com/sirupsen/logrus"
)

func handleCollect(cfg *config.Config, log *logrus.Logger, args []string) {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	rangeMode := fs.String("range", "last_24h", "Date range: last_24h (24h), last_week (1w), or custom")
	start := fs.String("start", "", "Start date for a custom range (YYYY-MM-DD)")
	end := fs.String("end", "", "End date for a custom range (YYYY-MM-DD)")
	parking := fs.Bool("parking", false, "Match 停车 (parking)")
	nonMotor := fs.Bool("non-motor", false, "Match 非机动车 (non-motor vehicles)")
	sharedBike := fs.Bool("shared-bike", false, "Match 共享单车 (shared bikes)")
	keywords := fs.String("keywords", "", "Extra keywords, separated by commas or spaces")
	simulate := fs.Bool("simulate", false, "Run a timed simulation instead of fetching sources")
	verbose := fs.Bool("verbose", false, "Show log output while collecting")
	fs.Parse(args)

	taskCfg, err := taskconfig.Validate(taskconfig.RawInput{
		RangeMode:       *rangeMode,
		StartDate:       *start,
		EndDate:         *end,
		Parking:         *parking,
		NonMotorVehicle: *nonMotor,
		SharedBike:      *sharedBike,
		ExtraKeywords:   *keywords,
	}, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		os.Exit(1)
	}

	st, err := openStores(cfg)
	exitOnError(err, "failed to open storage")
	defer st.Close()

	log = quietLogger(log, *verbose)
	runner := collector.NewRunner(workFactory(cfg, st, log, *simulate), collector.WithLogger(log))

	task, err := runner.Start(taskCfg)
	exitOnError(err, "failed to start collection")

	tracked := make(chan error, 1)
	go func() { tracked <- st.runs.Track(context.Background(), task) }()

	// The first interrupt cancels the task; the runner then finishes the
	// unit in flight and reports cancelled.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		select {
		case <-ctx.Done():
			task.Cancel()
		case <-task.Done():
		}
	}()

	fmt.Printf("Collecting %v from %s to %s\n",
		taskCfg.Terms(),
		taskCfg.StartDate.Format("2006-01-02 15:04"),
		taskCfg.EndDate.Format("2006-01-02 15:04"),
	)

	printer := newProgressPrinter(os.Stdout)
	for ev := range task.Subscribe(context.Background()) {
		printer.Print(ev)
	}

	if err := <-tracked; err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record run: %v\n", err)
	}

	final := task.Snapshot()
	printResult(final)
	if final.State != collector.StateCompleted {
		os.Exit(1)
	}
}

// workFactory picks between real collection and the timed simulation.
func workFactory(cfg *config.Config, st *stores, log logrus.FieldLogger, simulate bool) collector.WorkFactory {
	if simulate {
		return collector.Simulated(cfg.Collector.SimulatedSteps, cfg.Collector.StepInterval)
	}

	return discovery.NewWorkFactory(discovery.Options{
		Sources:           st.sources,
		Items:             st.feed,
		Fetcher:           discovery.NewFetcher(cfg.Collector.FetchTimeout, cfg.Collector.UserAgent),
		RequestsPerSecond: cfg.Collector.RequestsPerSecond,
		Log:               log,
	})
}
