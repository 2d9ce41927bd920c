package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsseeker_tasks_started_total",
		Help: "Total number of collection tasks started",
	})

	TasksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsseeker_tasks_finished_total",
		Help: "Total number of collection tasks finished, by terminal state",
	}, []string{"state"})

	TaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsseeker_task_duration_seconds",
		Help:    "Collection task duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	UnitsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsseeker_units_processed_total",
		Help: "Total number of work units processed",
	})

	UnitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsseeker_unit_duration_seconds",
		Help:    "Work unit duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	SourceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsseeker_source_fetches_total",
		Help: "Total number of source fetches, by result",
	}, []string{"result"})

	ItemsCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsseeker_items_collected_total",
		Help: "Total number of new matching news items stored",
	})
)
