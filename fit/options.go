package fit

import (
	"github.com/rs/zerolog"

	"github.com/nikcunniffe/Identifiability/solver"
)

// Options configures the estimation run.
type Options struct {
	Rho           float64 // variance power: measurement variance grows as predicted^rho; 0 is OLS
	Trials        int     // multi-start trials per outer iteration
	MaxOuterIters int     // cap on reweighting iterations
	Tolerance     float64 // threshold on squared parameter change
	EvalBudget    int     // objective evaluations per local optimization
	Seed          int64   // seed for the start-point stream; fixed seed, fixed run
	Solver        *solver.Options
	Logger        zerolog.Logger
}

// DefaultOptions returns the default estimation configuration.
func DefaultOptions() *Options {
	return &Options{
		Rho:           1,
		Trials:        25,
		MaxOuterIters: 20,
		Tolerance:     1e-8,
		EvalBudget:    2000,
		Seed:          1,
		Solver:        solver.EpidemicOptions(),
		Logger:        zerolog.Nop(),
	}
}
