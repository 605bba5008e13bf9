// Package solver implements adaptive Runge-Kutta integration for the small
// dense ODE systems used in epidemic parameter estimation.
package solver

import (
	"fmt"
	"math"
)

// Func computes the derivative du/dt given time t and state u.
// Implementations must not retain or modify u.
type Func func(t float64, u []float64) []float64

// Problem represents an ODE initial value problem.
type Problem struct {
	F     Func
	U0    []float64  // Initial state
	Tspan [2]float64 // Time span [t0, tf]
}

// Options contains solver configuration parameters.
type Options struct {
	Method   *Method // Runge-Kutta method; nil selects Tsit5
	Dt       float64 // Initial time step
	Dtmin    float64 // Minimum time step
	Dtmax    float64 // Maximum time step
	Abstol   float64 // Absolute error tolerance
	Reltol   float64 // Relative error tolerance
	Maxiters int     // Maximum number of accepted steps
	Adaptive bool    // Use adaptive step size control
}

// DefaultOptions returns default solver options.
// These are balanced settings suitable for most problems.
func DefaultOptions() *Options {
	return &Options{
		Dt:       0.01,
		Dtmin:    1e-6,
		Dtmax:    0.5,
		Abstol:   1e-6,
		Reltol:   1e-3,
		Maxiters: 100000,
		Adaptive: true,
	}
}

// AccurateOptions returns options for high-precision integration.
// Use these for final estimates and uncertainty quantification,
// where the trajectory feeds directly into reported numbers.
func AccurateOptions() *Options {
	return &Options{
		Dt:       0.001,
		Dtmin:    1e-8,
		Dtmax:    0.5,
		Abstol:   1e-9,
		Reltol:   1e-6,
		Maxiters: 1000000,
		Adaptive: true,
	}
}

// EpidemicOptions returns options for compartmental epidemic models.
// Balances accuracy with runtime for the many integrations performed
// inside an optimization loop.
func EpidemicOptions() *Options {
	return &Options{
		Dt:       0.01,
		Dtmin:    1e-6,
		Dtmax:    0.5,
		Abstol:   1e-6,
		Reltol:   1e-4,
		Maxiters: 200000,
		Adaptive: true,
	}
}

// Solution holds the integrated trajectory.
type Solution struct {
	T []float64   // Time points
	U [][]float64 // State at each time point
}

// Component extracts the time series for state variable i.
func (s *Solution) Component(i int) []float64 {
	out := make([]float64, len(s.U))
	for k, u := range s.U {
		out[k] = u[i]
	}
	return out
}

// Final returns the state at the last time point.
func (s *Solution) Final() []float64 {
	if len(s.U) == 0 {
		return nil
	}
	return s.U[len(s.U)-1]
}

// IntegrationError reports a failed integration: the trajectory became
// non-finite or the step budget was exhausted before reaching tf.
type IntegrationError struct {
	T      float64 // Time at which integration stopped
	Reason string
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration failed at t=%g: %s", e.T, e.Reason)
}

// Solve integrates the problem, recording every accepted step.
func Solve(prob *Problem, m *Method, opts *Options) (*Solution, error) {
	return integrate(prob, m, opts, nil)
}

// SolveAt integrates the problem, forcing steps to land exactly on the
// given save times and recording the state only there. Save times must be
// strictly increasing and contained in the problem's time span. The
// initial time is recorded only if it is itself a save time.
func SolveAt(prob *Problem, m *Method, opts *Options, times []float64) (*Solution, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("no save times given")
	}
	if times[0] < prob.Tspan[0] || times[len(times)-1] > prob.Tspan[1] {
		return nil, fmt.Errorf("save times [%g, %g] outside time span [%g, %g]",
			times[0], times[len(times)-1], prob.Tspan[0], prob.Tspan[1])
	}
	return integrate(prob, m, opts, times)
}

func integrate(prob *Problem, m *Method, opts *Options, saveAt []float64) (*Solution, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if m == nil {
		m = opts.Method
	}
	if m == nil {
		m = Tsit5()
	}

	t0 := prob.Tspan[0]
	tf := prob.Tspan[1]
	f := prob.F
	n := len(prob.U0)
	numStages := len(m.C)

	tcur := t0
	ucur := append([]float64(nil), prob.U0...)
	dtcur := opts.Dt
	nsteps := 0

	sol := &Solution{}
	saveIdx := 0
	if saveAt == nil {
		sol.T = append(sol.T, t0)
		sol.U = append(sol.U, append([]float64(nil), ucur...))
	} else if saveAt[0] == t0 {
		sol.T = append(sol.T, t0)
		sol.U = append(sol.U, append([]float64(nil), ucur...))
		saveIdx = 1
	}

	k := make([][]float64, numStages)

	for tcur < tf && nsteps < opts.Maxiters {
		// Never overshoot the next save point or the final time. The
		// clipped step is local; dtcur keeps the adapted size so the
		// integrator recovers after landing on a save point.
		tstop := tf
		if saveAt != nil && saveIdx < len(saveAt) {
			tstop = saveAt[saveIdx]
		}
		dtstep := dtcur
		clipped := false
		if tcur+dtstep > tstop {
			dtstep = tstop - tcur
			clipped = true
		}

		// Runge-Kutta stages
		k[0] = f(tcur, ucur)
		for stage := 1; stage < numStages; stage++ {
			ustage := append([]float64(nil), ucur...)
			for j := 0; j < stage; j++ {
				aj := 0.0
				if len(m.A) > stage && len(m.A[stage]) > j {
					aj = m.A[stage][j]
				}
				if aj != 0 {
					scale := dtstep * aj
					for i := 0; i < n; i++ {
						ustage[i] += scale * k[j][i]
					}
				}
			}
			k[stage] = f(tcur+m.C[stage]*dtstep, ustage)
		}

		unext := append([]float64(nil), ucur...)
		for j := 0; j < len(m.B); j++ {
			if m.B[j] != 0 {
				scale := dtstep * m.B[j]
				for i := 0; i < n; i++ {
					unext[i] += scale * k[j][i]
				}
			}
		}

		// Embedded error estimate for adaptive stepping
		errEst := 0.0
		if opts.Adaptive {
			for i := 0; i < n; i++ {
				e := 0.0
				for j := 0; j < len(m.Bhat); j++ {
					e += dtstep * m.Bhat[j] * k[j][i]
				}
				scale := opts.Abstol + opts.Reltol*math.Max(math.Abs(ucur[i]), math.Abs(unext[i]))
				if scale == 0 {
					scale = opts.Abstol
				}
				if v := math.Abs(e) / scale; v > errEst {
					errEst = v
				}
			}
			if math.IsNaN(errEst) || math.IsInf(errEst, 0) {
				return nil, &IntegrationError{T: tcur, Reason: "non-finite error estimate"}
			}
		}

		if !opts.Adaptive || errEst <= 1.0 || dtstep <= opts.Dtmin {
			// Accept step
			for i := 0; i < n; i++ {
				if math.IsNaN(unext[i]) || math.IsInf(unext[i], 0) {
					return nil, &IntegrationError{T: tcur, Reason: "state became non-finite"}
				}
			}
			if clipped {
				tcur = tstop // avoid floating-point undershoot at save points
			} else {
				tcur += dtstep
			}
			ucur = unext
			nsteps++

			if saveAt == nil {
				sol.T = append(sol.T, tcur)
				sol.U = append(sol.U, append([]float64(nil), ucur...))
			} else if saveIdx < len(saveAt) && tcur >= saveAt[saveIdx] {
				sol.T = append(sol.T, saveAt[saveIdx])
				sol.U = append(sol.U, append([]float64(nil), ucur...))
				saveIdx++
			}

			if opts.Adaptive && errEst > 0 {
				factor := 0.9 * math.Pow(1.0/errEst, 1.0/float64(m.Order+1))
				factor = math.Min(factor, 5.0)
				dtcur = math.Min(opts.Dtmax, math.Max(opts.Dtmin, dtcur*factor))
			}
		} else {
			// Reject step and reduce step size
			factor := 0.9 * math.Pow(1.0/errEst, 1.0/float64(m.Order+1))
			factor = math.Max(factor, 0.1)
			dtcur = math.Max(opts.Dtmin, dtstep*factor)
		}
	}

	if tcur < tf {
		return nil, &IntegrationError{T: tcur, Reason: "step budget exhausted"}
	}
	if saveAt != nil && saveIdx < len(saveAt) {
		return nil, &IntegrationError{T: tcur, Reason: "save points not reached"}
	}

	return sol, nil
}
