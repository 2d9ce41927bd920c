package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pevans/newsseeker/config"
	"github.com/pevans/newsseeker/newsfeed"
	"github.com/pevans/newsseeker/runs"
	"github.com/pevans/newsseeker/sources"
)

// stores bundles everything a command may read or write.
type stores struct {
	sources *sources.SourceStore
	runs    *runs.RunStore
	feed    *newsfeed.NewsFeed
}

// openStores opens the metadata database and news feed named by cfg. The
// metadata directory is created if needed.
func openStores(cfg *config.Config) (*stores, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.MetadataDSN), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}

	sourceStore, err := sources.NewSourceStore(cfg.Storage.MetadataDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open source store: %w", err)
	}

	runStore, err := runs.NewRunStore(cfg.Storage.MetadataDSN)
	if err != nil {
		sourceStore.Close()
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	feed, err := newsfeed.NewNewsFeed(cfg.Storage.FeedDir)
	if err != nil {
		sourceStore.Close()
		runStore.Close()
		return nil, fmt.Errorf("failed to open news feed: %w", err)
	}

	return &stores{sources: sourceStore, runs: runStore, feed: feed}, nil
}

func (s *stores) Close() {
	s.sources.Close()
	s.runs.Close()
}

// parseIDArg parses the first positional argument as a UUID.
func parseIDArg(args []string, usage string) uuid.UUID {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: ID is required\n")
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid ID: %v\n", err)
		os.Exit(1)
	}
	return id
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
