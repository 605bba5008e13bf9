package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "fit":
		if err := runFit(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "summary":
		if err := summary(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "archive":
		if err := archive(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Println("sirfit version 1.0.0")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`sirfit - SIR epidemic parameter estimation tool

Usage:
  sirfit <command> [options]

Commands:
  fit        Estimate beta and gamma from observed case counts
  summary    Display quick summary of a saved run report
  archive    Inspect the local run archive
  help       Show this help message
  version    Show version information

Examples:
  # Fit the model to observations
  sirfit fit scenario.toml cases.csv --output report.json

  # Summarise a finished run
  sirfit summary report.json

  # List recent archived runs
  sirfit archive list --db runs.db

For command-specific help, run:
  sirfit <command> --help`)
}
