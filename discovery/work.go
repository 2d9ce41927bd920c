package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsseeker/collector"
	"github.com/pevans/newsseeker/metrics"
	"github.com/pevans/newsseeker/newsfeed"
	"github.com/pevans/newsseeker/sources"
	"github.com/pevans/newsseeker/taskconfig"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrNoSources is returned when a run is started with nothing to read.
var ErrNoSources = errors.New("no enabled sources; add one with `newsseeker sources add`")

// SourceStore is the part of sources.SourceStore a run needs.
type SourceStore interface {
	Enabled() ([]sources.Source, error)
	RecordFetch(sourceID uuid.UUID, at time.Time, fetchErr error) error
}

// ItemStore receives matching news items.
type ItemStore interface {
	AddIfNew(item newsfeed.NewsItem) (bool, error)
}

// CollectWork reads every enabled source once. Each source is one unit of
// progress. Do and Describe are called from a single goroutine.
type CollectWork struct {
	taskID  uuid.UUID
	cfg     taskconfig.TaskConfig
	sources []sources.Source
	store   SourceStore
	items   ItemStore
	fetcher *Fetcher
	limiter *rate.Limiter
	log     logrus.FieldLogger

	collected int
	failed    int
}

// Options configures NewWorkFactory.
type Options struct {
	Sources           SourceStore
	Items             ItemStore
	Fetcher           *Fetcher
	RequestsPerSecond float64
	Log               logrus.FieldLogger
}

// NewWorkFactory returns a collector.WorkFactory that builds a CollectWork
// over the sources enabled when the task starts.
func NewWorkFactory(opts Options) collector.WorkFactory {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = NewFetcher(10*time.Second, "")
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return func(_ context.Context, taskID uuid.UUID, cfg taskconfig.TaskConfig) (collector.Work, error) {
		enabled, err := opts.Sources.Enabled()
		if err != nil {
			return nil, fmt.Errorf("failed to list sources: %w", err)
		}
		if len(enabled) == 0 {
			return nil, ErrNoSources
		}

		return &CollectWork{
			taskID:  taskID,
			cfg:     cfg,
			sources: enabled,
			store:   opts.Sources,
			items:   opts.Items,
			fetcher: opts.Fetcher,
			limiter: rate.NewLimiter(limit, 1),
			log:     opts.Log.WithField("task_id", taskID),
		}, nil
	}
}

func (w *CollectWork) Units() int {
	return len(w.sources)
}

// Do fetches one source and stores its matching items. A fetch failure is
// recorded on the source and does not stop the run; a storage failure does.
func (w *CollectWork) Do(ctx context.Context, unit int) error {
	source := w.sources[unit]
	log := w.log.WithFields(logrus.Fields{
		"source_id": source.SourceID,
		"url":       source.URL,
	})

	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	candidates, fetchErr := w.fetch(ctx, &source)
	if fetchErr != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	if err := w.store.RecordFetch(source.SourceID, time.Now(), fetchErr); err != nil &&
		!errors.Is(err, sources.ErrSourceNotFound) {
		return fmt.Errorf("failed to record fetch for %s: %w", source.URL, err)
	}

	if fetchErr != nil {
		w.failed++
		metrics.SourceFetches.WithLabelValues("error").Inc()
		log.WithError(fetchErr).Warn("source fetch failed")
		return nil
	}
	metrics.SourceFetches.WithLabelValues("ok").Inc()

	added := 0
	for _, item := range candidates {
		keywords, ok := Match(item, w.cfg)
		if !ok {
			continue
		}

		item.Keywords = keywords
		item.TaskID = &w.taskID
		item.SourceID = &source.SourceID

		stored, err := w.items.AddIfNew(item)
		if err != nil {
			return fmt.Errorf("failed to store news item: %w", err)
		}
		if stored {
			added++
			metrics.ItemsCollected.Inc()
		}
	}
	w.collected += added

	log.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"added":      added,
	}).Debug("source collected")

	return nil
}

// Describe reports running totals.
func (w *CollectWork) Describe(done, total int) string {
	return fmt.Sprintf("collected %d items from %d/%d sources", w.collected, done, total)
}

// Collected returns the number of new items stored so far.
func (w *CollectWork) Collected() int {
	return w.collected
}

// Failed returns the number of sources that could not be fetched.
func (w *CollectWork) Failed() int {
	return w.failed
}

func (w *CollectWork) fetch(ctx context.Context, source *sources.Source) ([]newsfeed.NewsItem, error) {
	if source.IsFeed() {
		feed, err := w.fetcher.FetchFeed(ctx, source.URL)
		if err != nil {
			return nil, err
		}
		items := FeedToNewsItems(feed)
		if feed.Title == "" {
			for i := range items {
				items[i].Publisher = &source.Name
			}
		}
		return items, nil
	}

	if err := source.Selectors.Validate(); err != nil {
		return nil, err
	}
	doc, err := w.fetcher.FetchHTML(ctx, source.URL)
	if err != nil {
		return nil, err
	}
	return ExtractListing(doc, source.Selectors, source.URL, source.Name), nil
}
