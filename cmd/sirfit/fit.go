package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nikcunniffe/Identifiability/fit"
	"github.com/nikcunniffe/Identifiability/identify"
	"github.com/nikcunniffe/Identifiability/results"
	"github.com/nikcunniffe/Identifiability/runlog"
)

func runFit(args []string) error {
	fs := flag.NewFlagSet("fit", flag.ExitOnError)
	output := fs.String("output", "", "Write the full run report to a JSON file")
	dbPath := fs.String("db", "", "Archive the run in a SQLite database")
	verbose := fs.Bool("verbose", false, "Log the outer-loop iterations to stderr")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: sirfit fit <scenario.toml> <cases.csv> [options]

Estimate the SIR transmission and recovery rates from observed case
counts using iteratively reweighted generalized least squares.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Fit and print the estimate
  sirfit fit scenario.toml cases.csv

  # Save the full report and archive the run
  sirfit fit scenario.toml cases.csv --output report.json --db runs.db
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return fmt.Errorf("scenario and observations files required")
	}

	cfg, err := LoadConfig(fs.Arg(0))
	if err != nil {
		return err
	}
	obs, err := LoadObservations(fs.Arg(1))
	if err != nil {
		return err
	}

	opts := cfg.FitOptions()
	if *verbose {
		opts.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger()
	}

	builder := results.NewBuilder().
		WithScenario(cfg.Constants(), opts, cfg.Uncertainty.CondLimit, cfg.Solver.Method).
		WithSeries(obs)

	start := time.Now()
	report, fitErr := estimate(cfg, obs, opts, builder)
	builder.WithComputeTime(time.Since(start).Seconds())

	if *output != "" {
		if err := results.WriteJSON(report, *output); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Saved report to %s\n", *output)
	}
	if *dbPath != "" {
		store, err := runlog.New(*dbPath)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer store.Close()
		if err := store.Save(report); err != nil {
			return fmt.Errorf("archive run: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Archived run %s in %s\n", report.Metadata.RunID, *dbPath)
	}

	if fitErr != nil {
		return fitErr
	}
	printReport(report)
	return nil
}

// estimate runs the full pipeline and populates the report builder. The
// report is returned even on failure so the run can still be saved with
// error status.
func estimate(cfg *Config, obs *fit.Series, opts *fit.Options, builder *results.Builder) (*results.Report, error) {
	c := cfg.Constants()

	res, err := fit.Run(obs, c, opts)
	if err != nil {
		return builder.WithError(err).Build(), err
	}
	builder.WithEstimate(res)

	anaOpts := cfg.AnalyzeOptions()
	u, err := identify.Analyze(res.Params, c, obs, anaOpts)
	if err != nil {
		return builder.WithError(err).Build(), err
	}
	builder.WithUncertainty(u)

	pred, err := fit.Predict(res.Params, c, obs.Times, anaOpts.Solver)
	if err != nil {
		return builder.WithError(err).Build(), err
	}
	builder.WithTrajectory(obs, pred)

	return builder.Build(), nil
}

func printReport(r *results.Report) {
	fmt.Printf("=== Estimate (run %s) ===\n\n", r.Metadata.RunID)

	e := r.Estimate
	u := r.Uncertainty
	fmt.Printf("beta  = %.4f", e.Beta)
	if u != nil {
		fmt.Printf("  (95%% CI %.4f .. %.4f)", e.Beta-u.BetaHalfWidth, e.Beta+u.BetaHalfWidth)
	}
	fmt.Println()
	fmt.Printf("gamma = %.4f", e.Gamma)
	if u != nil {
		fmt.Printf("  (95%% CI %.4f .. %.4f)", e.Gamma-u.GammaHalfWidth, e.Gamma+u.GammaHalfWidth)
	}
	fmt.Println()
	fmt.Printf("R0    = %.4f\n\n", e.R0)

	fmt.Printf("Weighted SSR: %.4f\n", e.SSR)
	fmt.Printf("Outer iterations: %d", e.Iterations)
	if !e.Converged {
		fmt.Printf("  (iteration cap reached)")
	}
	fmt.Println()

	if u != nil {
		fmt.Printf("Residual variance: %.4f (%d dof)\n", u.Sigma2, u.DegreesOfFreedom)
		fmt.Printf("FIM condition number: %.3g\n", u.ConditionNumber)
		if u.IllConditioned {
			fmt.Println("WARNING: parameters are not practically identifiable from this data")
		}
	}
	fmt.Printf("Compute time: %.3fs\n", r.Metadata.ComputeTime)
}
