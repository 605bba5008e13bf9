package identify

import (
	"math"
	"math/rand"
	"testing"

	"github.com/nikcunniffe/Identifiability/fit"
	"github.com/nikcunniffe/Identifiability/sir"
	"github.com/nikcunniffe/Identifiability/solver"
)

var (
	flutimes = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}
	fluCases = []float64{3, 8, 28, 76, 222, 293, 257, 237, 192, 126, 70, 28, 12}
	fluConst = sir.Constants{S0: 762, I0: 1, N: 763}
)

func TestAnalyzeWellConditioned(t *testing.T) {
	obs, err := fit.NewSeries(flutimes, fluCases)
	if err != nil {
		t.Fatal(err)
	}
	p := sir.Params{Beta: 1.69, Gamma: 0.46}

	u, err := Analyze(p, fluConst, obs, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if u.Sigma2 <= 0 {
		t.Errorf("Expected positive residual variance, got %g", u.Sigma2)
	}
	if u.DOF != len(flutimes)-2 {
		t.Errorf("Expected %d degrees of freedom, got %d", len(flutimes)-2, u.DOF)
	}
	if u.ConditionNumber >= 1e6 {
		t.Errorf("Expected well-conditioned FIM for this dataset, cond=%g", u.ConditionNumber)
	}
	if u.IllConditioned {
		t.Error("Expected no ill-conditioning flag")
	}
	// t quantile for 11 dof is about 2.20
	if u.TCrit < 2.1 || u.TCrit > 2.3 {
		t.Errorf("Expected t quantile near 2.20, got %f", u.TCrit)
	}
	for i, hw := range u.CIHalfWidth {
		if hw <= 0 || math.IsNaN(hw) || math.IsInf(hw, 0) {
			t.Errorf("Half-width %d is not positive and finite: %g", i, hw)
		}
	}
}

func TestCovarianceSymmetricPositiveDefinite(t *testing.T) {
	truth := sir.Params{Beta: 1.7, Gamma: 0.45}
	rng := rand.New(rand.NewSource(11))
	obs, err := fit.Synthetic(truth, fluConst, flutimes, 2.0, rng)
	if err != nil {
		t.Fatal(err)
	}

	u, err := Analyze(truth, fluConst, obs, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	c := u.Covariance
	if math.Abs(c.At(0, 1)-c.At(1, 0)) > 1e-12 {
		t.Error("Covariance not symmetric")
	}
	if c.At(0, 0) <= 0 || c.At(1, 1) <= 0 {
		t.Errorf("Covariance diagonal not positive: %g, %g", c.At(0, 0), c.At(1, 1))
	}
	det := c.At(0, 0)*c.At(1, 1) - c.At(0, 1)*c.At(1, 0)
	if det <= 0 {
		t.Errorf("Covariance not positive definite, det=%g", det)
	}
}

func TestConfidenceIntervalCoverage(t *testing.T) {
	// Asymptotic coverage check: over repeated noisy resamples the true
	// parameters should fall inside the 95% intervals in most trials.
	truth := sir.Params{Beta: 1.7, Gamma: 0.45}

	fitOpts := fit.DefaultOptions()
	fitOpts.Rho = 0
	fitOpts.Trials = 4
	fitOpts.EvalBudget = 1500
	fitOpts.Solver = solver.AccurateOptions()

	anaOpts := DefaultOptions()
	anaOpts.Rho = 0

	const reps = 10
	coveredBeta, coveredGamma := 0, 0
	for rep := 0; rep < reps; rep++ {
		rng := rand.New(rand.NewSource(int64(100 + rep)))
		obs, err := fit.Synthetic(truth, fluConst, flutimes, 3.0, rng)
		if err != nil {
			t.Fatal(err)
		}

		fitOpts.Seed = int64(rep + 1)
		res, err := fit.Run(obs, fluConst, fitOpts)
		if err != nil {
			t.Fatalf("rep %d: fit failed: %v", rep, err)
		}

		u, err := Analyze(res.Params, fluConst, obs, anaOpts)
		if err != nil {
			t.Fatalf("rep %d: analyze failed: %v", rep, err)
		}

		if math.Abs(res.Params.Beta-truth.Beta) <= u.CIHalfWidth[0] {
			coveredBeta++
		}
		if math.Abs(res.Params.Gamma-truth.Gamma) <= u.CIHalfWidth[1] {
			coveredGamma++
		}
	}

	if coveredBeta < reps-3 {
		t.Errorf("Beta coverage too low: %d/%d", coveredBeta, reps)
	}
	if coveredGamma < reps-3 {
		t.Errorf("Gamma coverage too low: %d/%d", coveredGamma, reps)
	}
}

func TestIllConditioningFlagged(t *testing.T) {
	obs, err := fit.NewSeries(flutimes, fluCases)
	if err != nil {
		t.Fatal(err)
	}
	p := sir.Params{Beta: 1.69, Gamma: 0.46}

	opts := DefaultOptions()
	opts.CondLimit = 1.0 // any real FIM exceeds this

	u, err := Analyze(p, fluConst, obs, opts)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !u.IllConditioned {
		t.Error("Expected ill-conditioning flag with condition limit 1")
	}
	if u.Covariance == nil {
		t.Error("Expected covariance reported alongside the flag")
	}
}

func TestAnalyzeRejectsTooFewObservations(t *testing.T) {
	// A 2-point series cannot be built via NewSeries; the degrees-of-
	// freedom guard must still hold for a hand-built one.
	obs := &fit.Series{Times: []float64{1, 2}, Cases: []float64{3, 8}}
	_, err := Analyze(sir.Params{Beta: 1.7, Gamma: 0.45}, fluConst, obs, DefaultOptions())
	if err == nil {
		t.Error("Expected error for non-positive degrees of freedom")
	}
}

func TestAnalyzeRejectsInvalidParams(t *testing.T) {
	obs, err := fit.NewSeries(flutimes, fluCases)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Analyze(sir.Params{Beta: -1, Gamma: 0.5}, fluConst, obs, DefaultOptions()); err == nil {
		t.Error("Expected error for negative beta")
	}
}
