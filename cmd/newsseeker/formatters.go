package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/fatih/color"
	"github.com/pevans/newsseeker/collector"
	"github.com/pevans/newsseeker/newsfeed"
	"github.com/pevans/newsseeker/runs"
)

var (
	green  = color.New(color.FgGreen, color.Bold).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

// stateLabel colors a task state for terminal output.
func stateLabel(state collector.State) string {
	switch state {
	case collector.StateCompleted:
		return green(string(state))
	case collector.StateFailed:
		return red(string(state))
	case collector.StateCancelling, collector.StateCancelled:
		return yellow(string(state))
	case collector.StateRunning:
		return cyan(string(state))
	}
	return string(state)
}

// progressPrinter redraws a single progress line per status event.
type progressPrinter struct {
	out io.Writer
	bar progress.Model
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40), progress.WithoutPercentage())
	return &progressPrinter{out: out, bar: bar}
}

func (p *progressPrinter) Print(ev collector.StatusEvent) {
	line := fmt.Sprintf("%s %3d%% %s %s",
		p.bar.ViewAs(float64(ev.Progress)/100),
		ev.Progress,
		stateLabel(ev.State),
		faint(ev.Message),
	)

	// Clear the rest of the previous, possibly longer, line.
	fmt.Fprintf(p.out, "\r%s\033[K", line)
	if ev.State.IsTerminal() {
		fmt.Fprintln(p.out)
	}
}

// printResult summarizes a finished task.
func printResult(ev collector.StatusEvent) {
	switch ev.State {
	case collector.StateCompleted:
		fmt.Printf("%s Collection complete: %s\n", green("✓"), ev.Message)
	case collector.StateCancelled:
		fmt.Printf("%s Collection cancelled at %d%%\n", yellow("!"), ev.Progress)
	case collector.StateFailed:
		fmt.Printf("%s Collection failed: %s\n", red("✗"), ev.Reason)
	}
	fmt.Printf("  Task ID: %s\n", ev.TaskID)
}

// printRunsTable prints run history in human-readable table format
func printRunsTable(list []runs.Run) {
	if len(list) == 0 {
		fmt.Println("No runs recorded.")
		return
	}

	fmt.Printf("%-36s %-11s %-5s %-19s %-23s %s\n", "ID", "STATE", "PROG", "STARTED", "RANGE", "KEYWORDS")
	fmt.Println(strings.Repeat("-", 120))

	for _, run := range list {
		window := fmt.Sprintf("%s..%s",
			run.Config.StartDate.Format("01-02 15:04"),
			run.Config.EndDate.Format("01-02 15:04"),
		)
		// Pad before coloring so escape codes do not break alignment.
		state := fmt.Sprintf("%-11s", run.State)
		fmt.Printf("%-36s %s %4d%% %-19s %-23s %s\n",
			run.TaskID,
			strings.Replace(state, string(run.State), stateLabel(run.State), 1),
			run.Progress,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			window,
			truncate(strings.Join(run.Config.Terms(), ","), 40),
		)
		if run.Reason != "" {
			fmt.Printf("  %s %s\n", red("reason:"), run.Reason)
		}
	}
}

// printItemsTable prints items in human-readable table format
func printItemsTable(items []newsfeed.NewsItem) {
	if len(items) == 0 {
		fmt.Println("No items to display.")
		return
	}

	for _, item := range items {
		publisher := "Unknown"
		if item.Publisher != nil {
			publisher = *item.Publisher
		}

		published := "undated"
		if item.PublishedAt != nil {
			published = item.PublishedAt.Local().Format("2006-01-02 15:04")
		}

		fmt.Printf("%s\n", truncate(item.Title, 70))
		fmt.Printf("   %s | Published: %s | Keywords: %s\n",
			publisher,
			published,
			cyan(strings.Join(item.Keywords, ", ")),
		)
		if item.Summary != "" {
			fmt.Printf("   %s\n", truncate(item.Summary, 150))
		}
		fmt.Printf("   URL: %s\n", item.URL)
		fmt.Println()
	}
}

// printJSON prints v as indented JSON
func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to marshal JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(data))
}
