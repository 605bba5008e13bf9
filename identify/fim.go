// Package identify quantifies the uncertainty of a fitted SIR parameter
// estimate via the Fisher Information Matrix assembled from the model's
// local sensitivity equations.
package identify

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/nikcunniffe/Identifiability/fit"
	"github.com/nikcunniffe/Identifiability/sir"
	"github.com/nikcunniffe/Identifiability/solver"
)

// numParams is the number of estimated parameters (beta, gamma).
const numParams = 2

// Options configures the uncertainty analysis.
type Options struct {
	Rho       float64 // weighting exponent used for the GLS fit
	CondLimit float64 // FIM condition number above which the result is flagged
	Solver    *solver.Options
}

// DefaultOptions returns the default analysis configuration.
func DefaultOptions() *Options {
	return &Options{
		Rho:       1,
		CondLimit: 1e8,
		Solver:    solver.AccurateOptions(),
	}
}

// Uncertainty is the output of the analysis. When IllConditioned is set
// the covariance and intervals are still reported, but the parameters are
// not practically identifiable from the data and the numbers should not
// be trusted.
type Uncertainty struct {
	Sigma2          float64       // unbiased GLS residual variance estimate
	FIM             *mat.SymDense // Fisher Information Matrix over (beta, gamma)
	Covariance      *mat.SymDense // inverse FIM
	CIHalfWidth     [2]float64    // 95% half-widths for (beta, gamma)
	TCrit           float64       // Student-t 97.5% quantile used
	DOF             int           // residual degrees of freedom
	ConditionNumber float64
	IllConditioned  bool
}

// Analyze computes the residual variance, FIM, covariance matrix and 95%
// marginal confidence half-widths at the final parameter estimate. An
// integration failure here is fatal: unlike an optimizer trial, there is
// no other starting point to fall back on.
func Analyze(p sir.Params, c sir.Constants, obs *fit.Series, opts *Options) (*Uncertainty, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if !p.Valid() {
		return nil, fmt.Errorf("invalid parameter estimate: %+v", p)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	n := obs.Len()
	dof := n - numParams
	if dof <= 0 {
		return nil, fmt.Errorf("need more than %d observations for residual variance, got %d", numParams, n)
	}

	// Residual variance under the final weighting.
	pred, err := fit.Predict(p, c, obs.Times, opts.Solver)
	if err != nil {
		return nil, fmt.Errorf("final trajectory integration: %w", err)
	}
	weights, err := fit.Weights(pred, opts.Rho)
	if err != nil {
		return nil, err
	}
	rss := 0.0
	for i, ob := range obs.Cases {
		r := pred[i] - ob
		rss += weights[i] * r * r
	}
	sigma2 := rss / float64(dof)

	// One augmented integration from Z(0)=0 gives the sensitivities of I
	// to (beta, gamma) at every observation time.
	prob := &solver.Problem{
		F:     p.AugmentedRHS(c),
		U0:    c.AugmentedInit(),
		Tspan: [2]float64{0, obs.Times[n-1]},
	}
	sol, err := solver.SolveAt(prob, nil, opts.Solver, obs.Times)
	if err != nil {
		return nil, fmt.Errorf("sensitivity integration: %w", err)
	}

	// FIM = sum_i w_i * g_i g_i^T / sigma2 over the I-row sensitivities.
	fim := mat.NewSymDense(numParams, nil)
	for i := range obs.Times {
		g := [numParams]float64{sol.U[i][sir.ZIBeta], sol.U[i][sir.ZIGamma]}
		for r := 0; r < numParams; r++ {
			for cIdx := r; cIdx < numParams; cIdx++ {
				fim.SetSym(r, cIdx, fim.At(r, cIdx)+weights[i]*g[r]*g[cIdx]/sigma2)
			}
		}
	}

	cond := mat.Cond(fim, 2)

	var inv mat.Dense
	if err := inv.Inverse(fim); err != nil {
		var ce mat.Condition
		if !errors.As(err, &ce) {
			return nil, fmt.Errorf("invert FIM: %w", err)
		}
		// Near-singular: the inverse was still computed; the condition
		// number flag below tells the caller not to trust it.
	}
	cov := mat.NewSymDense(numParams, nil)
	for r := 0; r < numParams; r++ {
		for cIdx := r; cIdx < numParams; cIdx++ {
			cov.SetSym(r, cIdx, 0.5*(inv.At(r, cIdx)+inv.At(cIdx, r)))
		}
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dof)}
	tCrit := tDist.Quantile(0.975)

	u := &Uncertainty{
		Sigma2:          sigma2,
		FIM:             fim,
		Covariance:      cov,
		TCrit:           tCrit,
		DOF:             dof,
		ConditionNumber: cond,
		IllConditioned:  cond > opts.CondLimit,
	}
	for i := 0; i < numParams; i++ {
		v := cov.At(i, i)
		if v < 0 {
			// A negative variance can only come from a numerically broken
			// inversion; surface it via the flag, not a silent NaN.
			u.IllConditioned = true
			v = math.Abs(v)
		}
		u.CIHalfWidth[i] = tCrit * math.Sqrt(v)
	}
	return u, nil
}
