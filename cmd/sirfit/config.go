package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/nikcunniffe/Identifiability/fit"
	"github.com/nikcunniffe/Identifiability/identify"
	"github.com/nikcunniffe/Identifiability/sir"
	"github.com/nikcunniffe/Identifiability/solver"
)

// Config is the TOML scenario file for a fit run.
type Config struct {
	Population  PopulationConfig  `toml:"population"`
	Fit         FitConfig         `toml:"fit"`
	Uncertainty UncertaintyConfig `toml:"uncertainty"`
	Solver      SolverConfig      `toml:"solver"`
}

// PopulationConfig fixes the known epidemic constants.
type PopulationConfig struct {
	S0 float64 `toml:"s0"`
	I0 float64 `toml:"i0"`
	N  float64 `toml:"n"`
}

// FitConfig controls the estimation loop.
type FitConfig struct {
	Rho           float64 `toml:"rho"`
	Trials        int     `toml:"trials"`
	MaxOuterIters int     `toml:"max_outer_iters"`
	Tolerance     float64 `toml:"tolerance"`
	EvalBudget    int     `toml:"eval_budget"`
	Seed          int64   `toml:"seed"`
}

// UncertaintyConfig controls the post-fit analysis.
type UncertaintyConfig struct {
	CondLimit float64 `toml:"cond_limit"`
}

// SolverConfig selects and tunes the ODE integrator.
type SolverConfig struct {
	Method string  `toml:"method"`
	AbsTol float64 `toml:"abstol"`
	RelTol float64 `toml:"reltol"`
}

// DefaultConfig returns a config matching the library defaults.
func DefaultConfig() *Config {
	opts := fit.DefaultOptions()
	ana := identify.DefaultOptions()
	return &Config{
		Fit: FitConfig{
			Rho:           opts.Rho,
			Trials:        opts.Trials,
			MaxOuterIters: opts.MaxOuterIters,
			Tolerance:     opts.Tolerance,
			EvalBudget:    opts.EvalBudget,
			Seed:          opts.Seed,
		},
		Uncertainty: UncertaintyConfig{CondLimit: ana.CondLimit},
		Solver: SolverConfig{
			Method: "tsit5",
			AbsTol: opts.Solver.Abstol,
			RelTol: opts.Solver.Reltol,
		},
	}
}

// LoadConfig reads a TOML scenario file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config for values the estimation cannot run with.
func (c *Config) Validate() error {
	if err := c.Constants().Validate(); err != nil {
		return err
	}
	if c.Fit.Rho < 0 {
		return fmt.Errorf("rho must be non-negative, got %g", c.Fit.Rho)
	}
	if c.Fit.Trials < 1 {
		return fmt.Errorf("trials must be at least 1, got %d", c.Fit.Trials)
	}
	if c.Fit.MaxOuterIters < 1 {
		return fmt.Errorf("max_outer_iters must be at least 1, got %d", c.Fit.MaxOuterIters)
	}
	if c.Fit.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %g", c.Fit.Tolerance)
	}
	if c.Uncertainty.CondLimit <= 0 {
		return fmt.Errorf("cond_limit must be positive, got %g", c.Uncertainty.CondLimit)
	}
	if solver.MethodByName(c.Solver.Method) == nil {
		return fmt.Errorf("unknown solver method %q", c.Solver.Method)
	}
	if c.Solver.AbsTol <= 0 || c.Solver.RelTol <= 0 {
		return fmt.Errorf("solver tolerances must be positive")
	}
	return nil
}

// Constants returns the fixed population constants.
func (c *Config) Constants() sir.Constants {
	return sir.Constants{S0: c.Population.S0, I0: c.Population.I0, N: c.Population.N}
}

// FitOptions builds the estimation options from the config.
func (c *Config) FitOptions() *fit.Options {
	opts := fit.DefaultOptions()
	opts.Rho = c.Fit.Rho
	opts.Trials = c.Fit.Trials
	opts.MaxOuterIters = c.Fit.MaxOuterIters
	opts.Tolerance = c.Fit.Tolerance
	opts.EvalBudget = c.Fit.EvalBudget
	opts.Seed = c.Fit.Seed
	opts.Solver.Method = solver.MethodByName(c.Solver.Method)
	opts.Solver.Abstol = c.Solver.AbsTol
	opts.Solver.Reltol = c.Solver.RelTol
	return opts
}

// AnalyzeOptions builds the uncertainty options from the config. The
// uncertainty integration keeps the tighter accurate tolerances but uses
// the configured method.
func (c *Config) AnalyzeOptions() *identify.Options {
	opts := identify.DefaultOptions()
	opts.Rho = c.Fit.Rho
	opts.CondLimit = c.Uncertainty.CondLimit
	opts.Solver.Method = solver.MethodByName(c.Solver.Method)
	return opts
}
