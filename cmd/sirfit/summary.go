package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/nikcunniffe/Identifiability/results"
)

func summary(args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	showFit := fs.Bool("trajectory", false, "Print the fitted trajectory against the observations")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: sirfit summary <report.json> [options]

Display a quick summary of a saved run report.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("report file required")
	}

	r, err := results.ReadJSON(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	fmt.Printf("Run: %s\n", r.Metadata.RunID)
	fmt.Printf("Time: %s\n", r.Metadata.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Status: %s\n", r.Metadata.Status)
	if r.Metadata.Error != "" {
		fmt.Printf("Error: %s\n", r.Metadata.Error)
		return nil
	}
	fmt.Println()

	s := r.Scenario
	fmt.Printf("Scenario: S0=%.0f I0=%.0f N=%.0f rho=%.1f trials=%d seed=%d\n",
		s.S0, s.I0, s.N, s.Rho, s.Trials, s.Seed)
	if r.Series != nil {
		fmt.Printf("Observations: %d points over t=[%.1f, %.1f], peak %.0f cases\n",
			r.Series.Count, r.Series.TStart, r.Series.TEnd, r.Series.Max)
	}
	fmt.Println()

	printReport(r)

	if *showFit && r.Fit != nil {
		fmt.Println("\nTrajectory:")
		fmt.Printf("  %8s %10s %10s %10s\n", "t", "observed", "predicted", "residual")
		for i, t := range r.Fit.Times {
			fmt.Printf("  %8.2f %10.1f %10.2f %+10.2f\n",
				t, r.Fit.Observed[i], r.Fit.Predicted[i], r.Fit.Residuals[i])
		}
	}
	return nil
}
