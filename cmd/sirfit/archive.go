package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/nikcunniffe/Identifiability/results"
	"github.com/nikcunniffe/Identifiability/runlog"
)

func archive(args []string) error {
	if len(args) < 1 {
		archiveUsage()
		return fmt.Errorf("archive subcommand required")
	}

	switch args[0] {
	case "list":
		return archiveList(args[1:])
	case "show":
		return archiveShow(args[1:])
	case "best":
		return archiveBest(args[1:])
	case "export":
		return archiveExport(args[1:])
	case "delete":
		return archiveDelete(args[1:])
	default:
		archiveUsage()
		return fmt.Errorf("unknown archive subcommand: %s", args[0])
	}
}

func archiveUsage() {
	fmt.Fprintln(os.Stderr, `Usage: sirfit archive <subcommand> [options]

Subcommands:
  list     List recent archived runs
  show     Show the summary of one archived run
  best     Show the converged run with the lowest weighted SSR
  export   Write an archived run's full report to a JSON file
  delete   Remove an archived run`)
}

func archiveFlags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet("archive "+name, flag.ExitOnError)
	dbPath := fs.String("db", "runs.db", "Path to the archive database")
	return fs, dbPath
}

func archiveList(args []string) error {
	fs, dbPath := archiveFlags("list")
	limit := fs.Int("limit", 20, "Maximum number of runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := runlog.New(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(*limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	fmt.Printf("%-36s %-20s %-8s %8s %8s %10s\n",
		"run", "time", "status", "beta", "gamma", "ssr")
	for _, rec := range records {
		fmt.Printf("%-36s %-20s %-8s %8.4f %8.4f %10.3f\n",
			rec.RunID, rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.Status, rec.Beta, rec.Gamma, rec.SSR)
	}
	return nil
}

func archiveShow(args []string) error {
	fs, dbPath := archiveFlags("show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("run ID required")
	}

	store, err := runlog.New(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := store.GetReport(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("load run %s: %w", fs.Arg(0), err)
	}
	if report.Metadata.Status != "success" {
		fmt.Printf("Run: %s\nStatus: %s\nError: %s\n",
			report.Metadata.RunID, report.Metadata.Status, report.Metadata.Error)
		return nil
	}
	printReport(report)
	return nil
}

func archiveBest(args []string) error {
	fs, dbPath := archiveFlags("best")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := runlog.New(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Best()
	if err != nil {
		return fmt.Errorf("no converged runs archived: %w", err)
	}
	fmt.Printf("Best run: %s (%s)\n", rec.RunID, rec.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("beta=%.4f gamma=%.4f R0=%.4f SSR=%.4f\n", rec.Beta, rec.Gamma, rec.R0, rec.SSR)
	return nil
}

func archiveExport(args []string) error {
	fs, dbPath := archiveFlags("export")
	output := fs.String("output", "report.json", "Output JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("run ID required")
	}

	store, err := runlog.New(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := store.GetReport(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("load run %s: %w", fs.Arg(0), err)
	}
	if err := results.WriteJSON(report, *output); err != nil {
		return err
	}
	fmt.Printf("Exported run %s to %s\n", report.Metadata.RunID, *output)
	return nil
}

func archiveDelete(args []string) error {
	fs, dbPath := archiveFlags("delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("run ID required")
	}

	store, err := runlog.New(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(fs.Arg(0)); err != nil {
		return fmt.Errorf("delete run %s: %w", fs.Arg(0), err)
	}
	fmt.Printf("Deleted run %s\n", fs.Arg(0))
	return nil
}
