package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"hiyori/internal/config"
	"hiyori/internal/database"
	"hiyori/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg, err := config.Load()
		if err != nil {
			logrus.Fatalf("configuration error: %v", err)
		}
		entrypoint.Run(cfg, Version)
		return
	}

	switch os.Args[1] {
	case "migrate":
		cfg, err := config.Load()
		if err != nil {
			logrus.Fatalf("configuration error: %v", err)
		}
		db, err := database.Connect(cfg.Database.URL)
		if err != nil {
			logrus.Fatalf("migration failed: %v", err)
		}
		defer db.Close()
		logrus.Info("migration complete")

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve    Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  migrate  Run the schema migration and exit\n")
}
