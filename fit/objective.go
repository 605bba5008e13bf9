package fit

import (
	"math"

	"github.com/nikcunniffe/Identifiability/sir"
	"github.com/nikcunniffe/Identifiability/solver"
)

// minPredictedMean is the floor below which a predicted infectious count
// no longer yields a bounded GLS weight.
const minPredictedMean = 1e-8

// ParamsFromU maps the unconstrained optimizer variables (u1, u2) to model
// parameters:
//
//	gamma = exp(u2)
//	R0-1  = exp(u1)
//	beta  = gamma * (1 + (R0-1))
//
// Any real (u1, u2) yields beta, gamma > 0 and R0 > 1, so the local
// minimizer can run unconstrained.
func ParamsFromU(u []float64) sir.Params {
	gamma := math.Exp(u[1])
	r0minus1 := math.Exp(u[0])
	return sir.Params{
		Beta:  gamma * (1 + r0minus1),
		Gamma: gamma,
	}
}

// UFromParams is the inverse transform. It requires R0 > 1.
func UFromParams(p sir.Params) []float64 {
	return []float64{
		math.Log(p.R0() - 1),
		math.Log(p.Gamma),
	}
}

// Predict integrates the model from (S0, I0) at t=0 and returns the
// predicted infectious counts at the given times.
func Predict(p sir.Params, c sir.Constants, times []float64, opts *solver.Options) ([]float64, error) {
	prob := &solver.Problem{
		F:     p.RHS(c),
		U0:    c.Init(),
		Tspan: [2]float64{0, times[len(times)-1]},
	}
	sol, err := solver.SolveAt(prob, nil, opts, times)
	if err != nil {
		return nil, err
	}
	return sol.Component(sir.IIdx), nil
}

// Objective returns the weighted sum-of-squares objective over the
// unconstrained variables (u1, u2). It is deterministic for identical
// inputs and integrator tolerances. If the integration fails the
// objective reports +Inf so the optimizer rejects the trial point instead
// of crashing.
func Objective(c sir.Constants, obs *Series, weights []float64, opts *solver.Options) func(u []float64) float64 {
	return func(u []float64) float64 {
		pred, err := Predict(ParamsFromU(u), c, obs.Times, opts)
		if err != nil {
			return math.Inf(1)
		}
		ssr := 0.0
		for i, ob := range obs.Cases {
			r := pred[i] - ob
			ssr += weights[i] * r * r
		}
		if math.IsNaN(ssr) {
			return math.Inf(1)
		}
		return ssr
	}
}

// Weights derives the GLS weight vector w_i = predicted_i^(-rho) from a
// predicted trajectory, the inverse of a measurement variance growing as
// the predicted mean to the power rho (rho=1 is Poisson-like noise,
// rho=0 ordinary least squares). A pure function of its inputs:
// recomputing from the same trajectory yields identical weights.
// Predicted means at or below the bounded-weight floor are a numerical
// failure, reported as a WeightOverflowError rather than an infinite
// weight.
func Weights(pred []float64, rho float64) ([]float64, error) {
	w := make([]float64, len(pred))
	if rho == 0 {
		for i := range w {
			w[i] = 1.0
		}
		return w, nil
	}
	for i, m := range pred {
		if m <= minPredictedMean {
			return nil, &WeightOverflowError{Index: i, Predicted: m}
		}
		w[i] = math.Pow(m, -rho)
		if math.IsInf(w[i], 0) || math.IsNaN(w[i]) {
			return nil, &WeightOverflowError{Index: i, Predicted: m}
		}
	}
	return w, nil
}
