package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/newsseeker/collector"
	"github.com/pevans/newsseeker/newsfeed"
	"github.com/pevans/newsseeker/runs"
	"github.com/pevans/newsseeker/sources"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server is the HTTP API over the collector and its stores.
type Server struct {
	runner  *collector.Runner
	runs    *runs.RunStore
	sources *sources.SourceStore
	feed    *newsfeed.NewsFeed
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewServer creates an API server. The clock is injectable for tests.
func NewServer(
	runner *collector.Runner,
	runStore *runs.RunStore,
	sourceStore *sources.SourceStore,
	feed *newsfeed.NewsFeed,
	log logrus.FieldLogger,
) *Server {
	return &Server{
		runner:  runner,
		runs:    runStore,
		sources: sourceStore,
		feed:    feed,
		log:     log,
		now:     time.Now,
	}
}

// SetupRouter configures the Gin router with all API routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.POST("/tasks", s.HandleStartTask)
	api.GET("/tasks/current", s.HandleCurrentTask)
	api.GET("/tasks/:id", s.HandleGetTask)
	api.GET("/tasks/:id/events", s.HandleTaskEvents)
	api.POST("/tasks/:id/cancel", s.HandleCancelTask)

	api.GET("/runs", s.HandleListRuns)
	api.GET("/items", s.HandleListItems)

	api.GET("/sources", s.HandleListSources)
	api.GET("/sources/:id", s.HandleGetSource)
	api.POST("/sources", s.HandleCreateSource)
	api.DELETE("/sources/:id", s.HandleDeleteSource)

	return router
}

// track records a started task in run history in the background.
func (s *Server) track(task *collector.Task) {
	go func() {
		if err := s.runs.Track(context.Background(), task); err != nil {
			s.log.WithError(err).WithField("task_id", task.ID()).Error("failed to record run")
		}
	}()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request handled")
	}
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
