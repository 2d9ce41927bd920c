package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pevans/newsseeker/config"
	"github.com/pevans/newsseeker/newsfeed"
)

func handleRuns(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of runs to show")
	format := fs.String("format", "table", "Output format: table or json")
	fs.Parse(args)

	st, err := openStores(cfg)
	exitOnError(err, "failed to open storage")
	defer st.Close()

	list, err := st.runs.List(*limit)
	exitOnError(err, "failed to list runs")

	switch *format {
	case "json":
		printJSON(map[string]any{"runs": list, "total": len(list)})
	case "table":
		printRunsTable(list)
	default:
		fmt.Fprintf(os.Stderr, "Error: --format must be 'table' or 'json'\n")
		os.Exit(1)
	}
}

func handleItems(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("items", flag.ExitOnError)
	taskID := fs.String("task", "", "Only show items collected by this task")
	keyword := fs.String("keyword", "", "Only show items matching this keyword")
	limit := fs.Int("limit", 20, "Maximum number of items to show (0 for all)")
	format := fs.String("format", "table", "Output format: table or json")
	fs.Parse(args)

	opts := newsfeed.ListOptions{Keyword: *keyword, Limit: *limit}
	if *taskID != "" {
		id, err := uuid.Parse(*taskID)
		exitOnError(err, "invalid task ID")
		opts.TaskID = &id
	}

	st, err := openStores(cfg)
	exitOnError(err, "failed to open storage")
	defer st.Close()

	result, err := st.feed.List(opts)
	exitOnError(err, "failed to list items")

	for _, readErr := range result.Errors {
		fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", readErr.Filename, readErr.Err)
	}

	switch *format {
	case "json":
		printJSON(map[string]any{"items": result.Items, "total": len(result.Items)})
	case "table":
		printItemsTable(result.Items)
	default:
		fmt.Fprintf(os.Stderr, "Error: --format must be 'table' or 'json'\n")
		os.Exit(1)
	}
}
