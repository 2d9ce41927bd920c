package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pevans/newsseeker/config"
	"github.com/pevans/newsseeker/sources"
)

func handleSourcesCommand(cfg *config.Config, action string, args []string) {
	if action == "help" || action == "--help" || action == "-h" {
		printSourcesUsage()
		return
	}

	st, err := openStores(cfg)
	exitOnError(err, "failed to open storage")
	defer st.Close()

	switch action {
	case "list":
		handleSourcesList(st.sources, args)
	case "show":
		handleSourcesShow(st.sources, args)
	case "add":
		handleSourcesAdd(st.sources, args)
	case "delete":
		handleSourcesDelete(st.sources, args)
	case "enable":
		handleSourcesSetEnabled(st.sources, args, true)
	case "disable":
		handleSourcesSetEnabled(st.sources, args, false)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown sources command: %s\n\n", action)
		printSourcesUsage()
		os.Exit(1)
	}
}

func printSourcesUsage() {
	fmt.Println("newsseeker sources -- Manage news sources")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  newsseeker sources <action> [arguments]")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  list       List all sources")
	fmt.Println("  show       Show detailed source information")
	fmt.Println("  add        Add a new source")
	fmt.Println("  delete     Delete a source")
	fmt.Println("  enable     Enable a source")
	fmt.Println("  disable    Disable a source")
	fmt.Println("  help       Show this help message")
}

func handleSourcesList(store *sources.SourceStore, args []string) {
	fs := flag.NewFlagSet("sources list", flag.ExitOnError)
	sourceType := fs.String("type", "", "Only list sources of this type")
	enabledOnly := fs.Bool("enabled", false, "Only list enabled sources")
	fs.Parse(args)

	filter := sources.SourceFilter{}
	if *sourceType != "" {
		filter.Type = sourceType
	}
	if *enabledOnly {
		filter.Enabled = enabledOnly
	}

	sourceList, err := store.ListSources(filter)
	exitOnError(err, "failed to list sources")

	if len(sourceList) == 0 {
		fmt.Println("No sources configured.")
		return
	}

	fmt.Printf("%-36s %-8s %-3s %-40s %s\n", "ID", "TYPE", "ON", "NAME", "URL")
	fmt.Println("----------------------------------------------------------------------------------------------------")

	for _, source := range sourceList {
		on := red("✗")
		if source.IsEnabled() {
			on = green("✓")
		}
		fmt.Printf("%-36s %-8s %s   %-40s %s\n",
			source.SourceID.String(),
			source.SourceType,
			on,
			truncate(source.Name, 40),
			truncate(source.URL, 50),
		)
	}
}

func handleSourcesShow(store *sources.SourceStore, args []string) {
	id := parseIDArg(args, "newsseeker sources show <source-id>")

	source, err := store.GetSource(id)
	exitOnError(err, "failed to get source")

	fmt.Println(source.Name)
	fmt.Println()
	fmt.Printf("Type:        %s\n", source.SourceType)
	fmt.Printf("URL:         %s\n", source.URL)

	if source.EnabledAt != nil {
		fmt.Printf("Status:      %s Enabled (since %s)\n", green("✓"), source.EnabledAt.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Printf("Status:      %s Disabled\n", red("✗"))
	}
	fmt.Println()

	fmt.Println("Health:")
	if source.LastFetchedAt != nil {
		fmt.Printf("  Last Fetched:    %s\n", source.LastFetchedAt.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("  Last Fetched:    Never")
	}
	fmt.Printf("  Error Count:     %d\n", source.FetchErrorCount)
	if source.LastError != nil {
		fmt.Printf("  Last Error:      %s\n", *source.LastError)
	}
	fmt.Println()

	if source.Selectors != nil {
		fmt.Println("Selectors:")
		fmt.Printf("  Item:      %s\n", source.Selectors.Item)
		fmt.Printf("  Title:     %s\n", source.Selectors.Title)
		fmt.Printf("  Link:      %s\n", source.Selectors.Link)
		if source.Selectors.Summary != "" {
			fmt.Printf("  Summary:   %s\n", source.Selectors.Summary)
		}
		if source.Selectors.Date != "" {
			fmt.Printf("  Date:      %s (%s)\n", source.Selectors.Date, source.Selectors.Layout())
		}
		fmt.Println()
	}

	fmt.Printf("Created:     %s\n", source.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("ID:          %s\n", source.SourceID.String())
}

func handleSourcesAdd(store *sources.SourceStore, args []string) {
	fs := flag.NewFlagSet("sources add", flag.ExitOnError)
	sourceType := fs.String("type", "", "Source type (rss, atom, or website)")
	url := fs.String("url", "", "Source URL")
	name := fs.String("name", "", "Source name")
	selectorsFile := fs.String("selectors", "", "Selectors file, YAML or JSON (for website sources)")
	disabled := fs.Bool("disabled", false, "Add the source disabled")
	fs.Parse(args)

	if *sourceType == "" || *url == "" || *name == "" {
		fmt.Fprintf(os.Stderr, "Error: --type, --url and --name are required\n")
		fs.Usage()
		os.Exit(1)
	}

	var selectors *sources.Selectors
	if *sourceType == sources.TypeWebsite {
		if *selectorsFile == "" {
			fmt.Fprintf(os.Stderr, "Error: --selectors is required for website sources\n")
			os.Exit(1)
		}
		var err error
		selectors, err = sources.LoadSelectors(*selectorsFile)
		exitOnError(err, "invalid selectors")
	}

	var enabledAt *time.Time
	if !*disabled {
		now := time.Now()
		enabledAt = &now
	}

	source, err := store.CreateSource(*sourceType, *url, *name, selectors, enabledAt)
	exitOnError(err, "failed to create source")

	fmt.Printf("%s Created source: %s\n", green("✓"), source.SourceID.String())
	fmt.Printf("  Type: %s\n", source.SourceType)
	fmt.Printf("  Name: %s\n", source.Name)
	fmt.Printf("  URL: %s\n", source.URL)
}

func handleSourcesDelete(store *sources.SourceStore, args []string) {
	id := parseIDArg(args, "newsseeker sources delete <source-id>")

	exitOnError(store.DeleteSource(id), "failed to delete source")
	fmt.Printf("%s Deleted source: %s\n", green("✓"), id)
}

func handleSourcesSetEnabled(store *sources.SourceStore, args []string, enabled bool) {
	verb := "disable"
	if enabled {
		verb = "enable"
	}
	id := parseIDArg(args, "newsseeker sources "+verb+" <source-id>")

	exitOnError(store.SetEnabled(id, enabled), "failed to "+verb+" source")
	fmt.Printf("%s Source %sd: %s\n", green("✓"), verb, id)
}
