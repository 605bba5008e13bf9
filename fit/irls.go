package fit

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/nikcunniffe/Identifiability/sir"
)

// Result is the output of a full reweighting run.
type Result struct {
	Params     sir.Params // final parameter estimate
	Weights    []float64  // weights used to produce the final fit
	SSR        float64    // achieved weighted sum-of-squares
	Iterations int        // outer iterations taken
	Converged  bool       // false when the iteration cap was reached
}

// Run estimates (beta, gamma) from the observation series by iteratively
// reweighted least squares. Each outer iteration fits by multi-start
// local optimization under the current weights, then derives the next
// weight vector w_i = predicted_i^(-rho) from the fitted trajectory.
// The loop stops when the squared parameter change drops to the
// configured tolerance, or at the iteration cap, in which case the best
// estimate so far is returned with Converged=false.
//
// With rho = 0 the weights never change, so the loop returns after the
// first iteration: a second fit under identical weights cannot move.
func Run(obs *Series, c sir.Constants, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if obs == nil || obs.Len() < MinObservations {
		return nil, fmt.Errorf("observation series too short for estimation")
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	log := opts.Logger

	// Ordinary least squares warm start: unit weight per observation.
	weights := obs.UnitWeights()
	var current sir.Params // zero sentinel before the first fit
	var accepted *Fit

	for k := 0; k < opts.MaxOuterIters; k++ {
		starts := drawStarts(rng, opts.Trials, k == 0, current)
		f, err := multiStart(starts, c, obs, weights, opts)
		if err != nil {
			var atf *AllTrialsFailedError
			if errors.As(err, &atf) {
				atf.Iteration = k
			}
			return nil, err
		}

		db := f.Params.Beta - current.Beta
		dg := f.Params.Gamma - current.Gamma
		diff := db*db + dg*dg
		current = f.Params
		accepted = f

		log.Info().
			Int("iteration", k).
			Float64("beta", current.Beta).
			Float64("gamma", current.Gamma).
			Float64("ssr", f.SSR).
			Float64("param_change_sq", diff).
			Msg("outer iteration accepted")

		if opts.Rho == 0 {
			// Weighting is fixed; terminate unconditionally.
			return resultFrom(accepted, k+1, true), nil
		}
		if diff <= opts.Tolerance {
			return resultFrom(accepted, k+1, true), nil
		}

		pred, err := Predict(current, c, obs.Times, opts.Solver)
		if err != nil {
			return nil, fmt.Errorf("reweighting at iteration %d: %w", k, err)
		}
		weights, err = Weights(pred, opts.Rho)
		if err != nil {
			return nil, fmt.Errorf("reweighting at iteration %d: %w", k, err)
		}
	}

	log.Warn().
		Int("iterations", opts.MaxOuterIters).
		Float64("tolerance", opts.Tolerance).
		Msg("outer loop reached iteration cap without converging")

	return resultFrom(accepted, opts.MaxOuterIters, false), nil
}

func resultFrom(f *Fit, iterations int, converged bool) *Result {
	return &Result{
		Params:     f.Params,
		Weights:    f.Weights,
		SSR:        f.SSR,
		Iterations: iterations,
		Converged:  converged,
	}
}
