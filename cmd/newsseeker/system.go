package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pevans/newsseeker/config"
	"github.com/pevans/newsseeker/newsfeed"
	"github.com/pevans/newsseeker/sources"
)

// configPath is where init writes the config file and Load reads it.
func configPath() (string, error) {
	if path := os.Getenv(config.EnvPrefix + "_CONFIG"); path != "" {
		return path, nil
	}
	dir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func handleInit(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	fs.Parse(args)

	fmt.Println("Initializing newsseeker storage...")
	fmt.Println()

	failed := false

	path, err := configPath()
	if err == nil {
		var written bool
		written, err = config.WriteFile(path, *cfg, *force)
		if err == nil && written {
			fmt.Printf("  %s Config file: %s\n", green("✓"), path)
		} else if err == nil {
			fmt.Printf("  Config file: %s (already exists)\n", path)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "  %s Failed to create config file: %v\n", red("✗"), err)
		failed = true
	}

	st, err := openStores(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  %s %v\n", red("✗"), err)
		failed = true
	} else {
		st.Close()
		fmt.Printf("  %s Metadata database: %s\n", green("✓"), cfg.Storage.MetadataDSN)
		fmt.Printf("  %s Feed storage: %s\n", green("✓"), cfg.Storage.FeedDir)
	}

	fmt.Println()

	if failed {
		fmt.Println(red("✗") + " Initialization failed")
		os.Exit(1)
	}

	fmt.Println(green("✓") + " Storage initialized")
	fmt.Println()
	fmt.Println("You can now:")
	fmt.Println("  - Add sources with 'newsseeker sources add'")
	fmt.Println("  - Run a collection with 'newsseeker collect -parking'")
}

func handleDoctor(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "Show detailed diagnostic information")
	fs.Parse(args)

	fmt.Println("Checking newsseeker storage health...")
	fmt.Println()

	hasErrors := false
	hasWarnings := false

	fmt.Println("Metadata Database:")
	fmt.Printf("  Path: %s\n", cfg.Storage.MetadataDSN)

	if stat, err := os.Stat(cfg.Storage.MetadataDSN); os.IsNotExist(err) {
		fmt.Printf("  %s Database file does not exist\n", red("✗"))
		fmt.Println("    Run 'newsseeker init' to create it")
		hasErrors = true
	} else if err != nil {
		fmt.Printf("  %s Cannot access database file: %v\n", red("✗"), err)
		hasErrors = true
	} else {
		store, err := sources.NewSourceStore(cfg.Storage.MetadataDSN)
		if err != nil {
			fmt.Printf("  %s Failed to open database: %v\n", red("✗"), err)
			hasErrors = true
		} else {
			defer store.Close()
			fmt.Printf("  %s Database is accessible\n", green("✓"))

			perm := stat.Mode().Perm()
			if *verbose {
				fmt.Printf("  Permissions: %o\n", perm)
			}
			if perm&0o077 != 0 {
				fmt.Printf("  %s Database file has overly permissive permissions (%o)\n", yellow("⚠"), perm)
				fmt.Println("    Consider: chmod 600 " + cfg.Storage.MetadataDSN)
				hasWarnings = true
			}

			enabled, err := store.Enabled()
			if err != nil {
				fmt.Printf("  %s Could not list sources: %v\n", yellow("⚠"), err)
				hasWarnings = true
			} else if len(enabled) == 0 {
				fmt.Printf("  %s No enabled sources; collections will fail\n", yellow("⚠"))
				hasWarnings = true
			} else {
				fmt.Printf("  Enabled sources: %d\n", len(enabled))
			}
		}
	}

	fmt.Println()

	fmt.Println("Feed Storage:")
	fmt.Printf("  Path: %s\n", cfg.Storage.FeedDir)

	if stat, err := os.Stat(cfg.Storage.FeedDir); os.IsNotExist(err) {
		fmt.Printf("  %s Storage directory does not exist\n", red("✗"))
		fmt.Println("    Run 'newsseeker init' to create it")
		hasErrors = true
	} else if err != nil {
		fmt.Printf("  %s Cannot access storage directory: %v\n", red("✗"), err)
		hasErrors = true
	} else if !stat.IsDir() {
		fmt.Printf("  %s Path exists but is not a directory\n", red("✗"))
		hasErrors = true
	} else {
		feed, err := newsfeed.NewNewsFeed(cfg.Storage.FeedDir)
		if err != nil {
			fmt.Printf("  %s Failed to open feed storage: %v\n", red("✗"), err)
			hasErrors = true
		} else {
			fmt.Printf("  %s Storage directory is accessible\n", green("✓"))

			perm := stat.Mode().Perm()
			if *verbose {
				fmt.Printf("  Permissions: %o\n", perm)
			}
			if perm&0o077 != 0 {
				fmt.Printf("  %s Storage directory has overly permissive permissions (%o)\n", yellow("⚠"), perm)
				fmt.Println("    Consider: chmod 700 " + cfg.Storage.FeedDir)
				hasWarnings = true
			}

			result, err := feed.List(newsfeed.ListOptions{})
			if err != nil {
				fmt.Printf("  %s Could not list items: %v\n", yellow("⚠"), err)
				hasWarnings = true
			} else {
				fmt.Printf("  News items stored: %d\n", len(result.Items))
				if len(result.Errors) > 0 {
					fmt.Printf("  %s %d item(s) could not be read\n", yellow("⚠"), len(result.Errors))
					hasWarnings = true
				}
			}
		}
	}

	fmt.Println()

	switch {
	case hasErrors:
		fmt.Println(red("✗") + " Storage has errors")
		os.Exit(1)
	case hasWarnings:
		fmt.Println(yellow("✓") + " Storage is functional but has warnings")
	default:
		fmt.Println(green("✓") + " All checks passed")
	}
}
