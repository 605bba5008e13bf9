package results

import (
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"github.com/nikcunniffe/Identifiability/fit"
	"github.com/nikcunniffe/Identifiability/identify"
	"github.com/nikcunniffe/Identifiability/sir"
)

// Builder helps construct a Report from estimation output
type Builder struct {
	report Report
}

// NewBuilder creates a new report builder with a fresh run ID
func NewBuilder() *Builder {
	return &Builder{
		report: Report{
			Version: SchemaVersion,
			Metadata: Metadata{
				RunID:     uuid.New().String(),
				Timestamp: time.Now(),
				Status:    "success",
			},
		},
	}
}

// WithScenario records the run configuration
func (b *Builder) WithScenario(c sir.Constants, opts *fit.Options, condLimit float64, method string) *Builder {
	b.report.Scenario = Scenario{
		S0:            c.S0,
		I0:            c.I0,
		N:             c.N,
		Rho:           opts.Rho,
		Trials:        opts.Trials,
		MaxOuterIters: opts.MaxOuterIters,
		Tolerance:     opts.Tolerance,
		CondLimit:     condLimit,
		Seed:          opts.Seed,
		SolverMethod:  method,
	}
	return b
}

// WithEstimate records the outer-loop result
func (b *Builder) WithEstimate(res *fit.Result) *Builder {
	b.report.Estimate = &Estimate{
		Beta:       res.Params.Beta,
		Gamma:      res.Params.Gamma,
		R0:         res.Params.R0(),
		SSR:        res.SSR,
		Iterations: res.Iterations,
		Converged:  res.Converged,
		Weights:    append([]float64(nil), res.Weights...),
	}
	return b
}

// WithUncertainty records the FIM-derived uncertainty quantification
func (b *Builder) WithUncertainty(u *identify.Uncertainty) *Builder {
	cov := [][]float64{
		{u.Covariance.At(0, 0), u.Covariance.At(0, 1)},
		{u.Covariance.At(1, 0), u.Covariance.At(1, 1)},
	}
	b.report.Uncertainty = &Uncertainty{
		Sigma2:           u.Sigma2,
		Covariance:       cov,
		BetaHalfWidth:    u.CIHalfWidth[0],
		GammaHalfWidth:   u.CIHalfWidth[1],
		TCrit:            u.TCrit,
		DegreesOfFreedom: u.DOF,
		ConditionNumber:  u.ConditionNumber,
		IllConditioned:   u.IllConditioned,
	}
	return b
}

// WithTrajectory records the fitted trajectory against the observations
func (b *Builder) WithTrajectory(obs *fit.Series, predicted []float64) *Builder {
	residuals := make([]float64, len(predicted))
	for i := range predicted {
		residuals[i] = predicted[i] - obs.Cases[i]
	}
	b.report.Fit = &Trajectory{
		Times:     append([]float64(nil), obs.Times...),
		Observed:  append([]float64(nil), obs.Cases...),
		Predicted: append([]float64(nil), predicted...),
		Residuals: residuals,
	}
	return b
}

// WithSeries records a statistical summary of the observation series
func (b *Builder) WithSeries(obs *fit.Series) *Builder {
	min, _ := stats.Min(obs.Cases)
	max, _ := stats.Max(obs.Cases)
	mean, _ := stats.Mean(obs.Cases)
	median, _ := stats.Median(obs.Cases)
	std, _ := stats.StandardDeviation(obs.Cases)

	b.report.Series = &SeriesStats{
		Count:  obs.Len(),
		TStart: obs.Times[0],
		TEnd:   obs.Times[obs.Len()-1],
		Min:    min,
		Max:    max,
		Mean:   mean,
		Median: median,
		Std:    std,
	}
	return b
}

// WithComputeTime records the elapsed wall time in seconds
func (b *Builder) WithComputeTime(seconds float64) *Builder {
	b.report.Metadata.ComputeTime = seconds
	return b
}

// WithError sets error status
func (b *Builder) WithError(err error) *Builder {
	b.report.Metadata.Status = "error"
	b.report.Metadata.Error = err.Error()
	return b
}

// Build returns the constructed Report
func (b *Builder) Build() *Report {
	return &b.report
}
