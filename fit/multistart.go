package fit

import (
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/optimize"

	"github.com/nikcunniffe/Identifiability/sir"
)

// Fit is the outcome of one outer iteration: the selected parameters, the
// weight vector that produced them, and the achieved weighted
// sum-of-squares.
type Fit struct {
	Params  sir.Params
	Weights []float64
	SSR     float64
}

// start is a randomized starting point in natural parameter space.
type start struct {
	gamma    float64
	r0minus1 float64
}

// drawStarts draws the trial starting points from the run's random
// stream. On the first outer iteration each trial draws gamma and R0-1
// independently from U[0.1, 1.0]; afterwards each trial perturbs the
// previously accepted values by independent U[0.9, 1.1] factors. All
// draws happen sequentially here so the parallel trials share no random
// state.
func drawStarts(rng *rand.Rand, trials int, first bool, prev sir.Params) []start {
	starts := make([]start, trials)
	for i := range starts {
		if first {
			starts[i] = start{
				gamma:    0.1 + 0.9*rng.Float64(),
				r0minus1: 0.1 + 0.9*rng.Float64(),
			}
		} else {
			starts[i] = start{
				gamma:    prev.Gamma * (0.9 + 0.2*rng.Float64()),
				r0minus1: (prev.R0() - 1) * (0.9 + 0.2*rng.Float64()),
			}
		}
	}
	return starts
}

type trialResult struct {
	params    sir.Params
	value     float64
	converged bool
}

// multiStart runs one local optimization per starting point and selects
// the best converged trial. Trials are independent, so they fan out
// across the available cores; a trial that fails to converge is excluded
// from selection (missing, not zero or infinite). If no trial converges
// an AllTrialsFailedError is returned.
func multiStart(starts []start, c sir.Constants, obs *Series, weights []float64, o *Options) (*Fit, error) {
	results := make([]trialResult, len(starts))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, st := range starts {
		i, st := i, st
		g.Go(func() error {
			results[i] = runTrial(st, c, obs, weights, o)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Reduce to the best converged trial; ties go to the first trial in
	// iteration order.
	best := -1
	for i, r := range results {
		if !r.converged {
			continue
		}
		if best < 0 || r.value < results[best].value {
			best = i
		}
	}
	if best < 0 {
		return nil, &AllTrialsFailedError{Trials: len(starts)}
	}

	return &Fit{
		Params:  results[best].params,
		Weights: append([]float64(nil), weights...),
		SSR:     results[best].value,
	}, nil
}

// runTrial performs a single unconstrained Nelder-Mead minimization of
// the weighted objective. Each trial owns its own objective closure and
// optimizer state.
func runTrial(st start, c sir.Constants, obs *Series, weights []float64, o *Options) trialResult {
	obj := Objective(c, obs, weights, o.Solver)
	x0 := []float64{math.Log(st.r0minus1), math.Log(st.gamma)}

	problem := optimize.Problem{Func: obj}
	settings := &optimize.Settings{
		FuncEvaluations: o.EvalBudget,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 100,
		},
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil || res == nil || res.Status.Err() != nil {
		return trialResult{converged: false}
	}
	if math.IsInf(res.F, 0) || math.IsNaN(res.F) {
		return trialResult{converged: false}
	}
	p := ParamsFromU(res.X)
	if !p.Valid() {
		return trialResult{converged: false}
	}
	return trialResult{params: p, value: res.F, converged: true}
}
