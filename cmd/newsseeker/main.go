package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pevans/newsseeker/config"
	"github.com/sirupsen/logrus"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	subcommand := os.Args[1]
	if subcommand == "help" || subcommand == "--help" || subcommand == "-h" {
		printUsage()
		return
	}

	cfg, err := config.Load(getEnv(config.EnvPrefix+"_CONFIG", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch subcommand {
	case "init":
		handleInit(cfg, os.Args[2:])
	case "doctor":
		handleDoctor(cfg, os.Args[2:])
	case "collect":
		handleCollect(cfg, log, os.Args[2:])
	case "serve":
		handleServe(cfg, log, os.Args[2:])
	case "sources":
		if len(os.Args) < 3 {
			printSourcesUsage()
			os.Exit(1)
		}
		handleSourcesCommand(cfg, os.Args[2], os.Args[3:])
	case "runs":
		handleRuns(cfg, os.Args[2:])
	case "items":
		handleItems(cfg, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("newsseeker - Keyword news collector")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  newsseeker <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init       Create the config file and storage")
	fmt.Println("  doctor     Check storage health")
	fmt.Println("  collect    Run a collection task and show its progress")
	fmt.Println("  serve      Run the HTTP API")
	fmt.Println("  sources    Manage news sources")
	fmt.Println("  runs       List past collection runs")
	fmt.Println("  items      List collected news items")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  NEWSSEEKER_CONFIG                Path to config file (default: ~/.newsseeker/config.yaml)")
	fmt.Println("  NEWSSEEKER_STORAGE_METADATA_DSN  Path to metadata database")
	fmt.Println("  NEWSSEEKER_STORAGE_FEED_DIR      Path to news item storage")
	fmt.Println("  NEWSSEEKER_COLLECTOR_*           Collector settings, e.g. NEWSSEEKER_COLLECTOR_STEP_INTERVAL")
	fmt.Println("  NEWSSEEKER_LOG_LEVEL             Log level (default: info)")
}

// exitOnError prints err and exits when it is non-nil.
func exitOnError(err error, what string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", what, err)
	os.Exit(1)
}

// quietLogger keeps log lines off the progress display unless asked for.
func quietLogger(log *logrus.Logger, verbose bool) *logrus.Logger {
	if !verbose && log.GetLevel() < logrus.DebugLevel {
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}
