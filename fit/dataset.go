// Package fit estimates SIR transmission parameters from an observed
// infectious time series by generalised least squares with iteratively
// re-estimated heteroscedastic weights.
package fit

import (
	"fmt"
	"math/rand"

	"github.com/nikcunniffe/Identifiability/sir"
	"github.com/nikcunniffe/Identifiability/solver"
)

// MinObservations is the smallest usable series length. The residual
// variance estimate divides by n minus the two estimated parameters, so
// the degrees of freedom must stay positive.
const MinObservations = 3

// Series is an ordered observation series of infectious counts.
// Immutable once constructed; passed by reference into every operation.
type Series struct {
	Times []float64 // strictly increasing, starting at or after 0
	Cases []float64 // observed infectious counts, non-negative
}

// NewSeries validates and constructs an observation series.
func NewSeries(times, cases []float64) (*Series, error) {
	if len(times) != len(cases) {
		return nil, fmt.Errorf("times length (%d) does not match cases length (%d)", len(times), len(cases))
	}
	if len(times) < MinObservations {
		return nil, fmt.Errorf("need at least %d observations for a 2-parameter fit, got %d", MinObservations, len(times))
	}
	for i, tt := range times {
		if i == 0 {
			if tt < 0 {
				return nil, fmt.Errorf("observation times must start at or after 0, got %g", tt)
			}
		} else if tt <= times[i-1] {
			return nil, fmt.Errorf("observation times must be strictly increasing: t[%d]=%g, t[%d]=%g", i-1, times[i-1], i, tt)
		}
		if cases[i] < 0 {
			return nil, fmt.Errorf("observed count at t=%g is negative: %g", tt, cases[i])
		}
	}
	return &Series{
		Times: append([]float64(nil), times...),
		Cases: append([]float64(nil), cases...),
	}, nil
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Times)
}

// UnitWeights returns a weight vector of ones, one per observation.
func (s *Series) UnitWeights() []float64 {
	w := make([]float64, s.Len())
	for i := range w {
		w[i] = 1.0
	}
	return w
}

// Synthetic generates an observation series by forward-integrating the
// model at the given parameters and adding zero-mean Gaussian noise with
// the given standard deviation (0 for a noiseless series). Counts are
// clamped at zero. The rng must be supplied for reproducibility.
func Synthetic(p sir.Params, c sir.Constants, times []float64, noiseSD float64, rng *rand.Rand) (*Series, error) {
	if noiseSD > 0 && rng == nil {
		return nil, fmt.Errorf("noisy synthetic series requires a random source")
	}
	pred, err := Predict(p, c, times, solver.AccurateOptions())
	if err != nil {
		return nil, fmt.Errorf("generate synthetic series: %w", err)
	}
	cases := make([]float64, len(pred))
	for i, v := range pred {
		if noiseSD > 0 {
			v += rng.NormFloat64() * noiseSD
		}
		if v < 0 {
			v = 0
		}
		cases[i] = v
	}
	return NewSeries(times, cases)
}
