// Package sir defines the susceptible-infectious compartmental epidemic
// model and its local sensitivity (variational) equations. Recovered
// individuals are tracked implicitly as N - S - I.
package sir

import (
	"fmt"
	"math"

	"github.com/nikcunniffe/Identifiability/solver"
)

// State vector layout for the plain model.
const (
	SIdx = 0
	IIdx = 1
)

// Augmented state vector layout: model state followed by the sensitivity
// matrix Z (rows S, I; columns beta, gamma) in row-major order.
const (
	ZSBeta  = 2 // dS/dbeta
	ZSGamma = 3 // dS/dgamma
	ZIBeta  = 4 // dI/dbeta
	ZIGamma = 5 // dI/dgamma
)

// Constants holds the fixed epidemic scenario: initial susceptible and
// infectious counts and total population. Immutable for a whole run.
type Constants struct {
	S0 float64
	I0 float64
	N  float64
}

// Validate checks the constants against the model's assumptions.
func (c Constants) Validate() error {
	if c.S0 <= 0 || c.I0 <= 0 || c.N <= 0 {
		return fmt.Errorf("constants must be positive: S0=%g I0=%g N=%g", c.S0, c.I0, c.N)
	}
	if c.S0+c.I0 > c.N {
		return fmt.Errorf("S0+I0=%g exceeds population N=%g", c.S0+c.I0, c.N)
	}
	return nil
}

// Init returns the initial state (S0, I0).
func (c Constants) Init() []float64 {
	return []float64{c.S0, c.I0}
}

// AugmentedInit returns the initial augmented state: (S0, I0) with the
// sensitivity matrix Z(0) = 0.
func (c Constants) AugmentedInit() []float64 {
	return []float64{c.S0, c.I0, 0, 0, 0, 0}
}

// Params is the transmission parameter vector (beta, gamma). Both rates
// must be strictly positive.
type Params struct {
	Beta  float64 // transmission rate
	Gamma float64 // removal rate
}

// R0 returns the basic reproduction number beta/gamma.
func (p Params) R0() float64 {
	return p.Beta / p.Gamma
}

// Valid reports whether both rates are strictly positive and finite.
func (p Params) Valid() bool {
	return p.Beta > 0 && p.Gamma > 0 &&
		!math.IsInf(p.Beta, 0) && !math.IsInf(p.Gamma, 0) &&
		!math.IsNaN(p.Beta) && !math.IsNaN(p.Gamma)
}

// RHS returns the model right-hand side
//
//	dS/dt = -beta*S*I/N
//	dI/dt =  beta*S*I/N - gamma*I
//
// with the constants threaded explicitly.
func (p Params) RHS(c Constants) solver.Func {
	return func(_ float64, u []float64) []float64 {
		s, i := u[SIdx], u[IIdx]
		infection := p.Beta * s * i / c.N
		return []float64{
			-infection,
			infection - p.Gamma*i,
		}
	}
}

// AugmentedRHS returns the right-hand side of the model coupled with its
// sensitivity equations dZ/dt = A*Z + B, where A is the Jacobian of the
// state derivatives with respect to (S, I) and B the Jacobian with respect
// to (beta, gamma). A and B depend on the current (S, I), so the
// sensitivity system must be integrated jointly with the state equations.
func (p Params) AugmentedRHS(c Constants) solver.Func {
	return func(_ float64, u []float64) []float64 {
		s, i := u[SIdx], u[IIdx]
		infection := p.Beta * s * i / c.N

		// A = d(dS,dI)/d(S,I) at the current trajectory point
		a11 := -p.Beta * i / c.N
		a12 := -p.Beta * s / c.N
		a21 := p.Beta * i / c.N
		a22 := p.Beta*s/c.N - p.Gamma

		// B = d(dS,dI)/d(beta,gamma)
		b11 := -s * i / c.N
		b12 := 0.0
		b21 := s * i / c.N
		b22 := -i

		zsb, zsg := u[ZSBeta], u[ZSGamma]
		zib, zig := u[ZIBeta], u[ZIGamma]

		return []float64{
			-infection,
			infection - p.Gamma*i,
			a11*zsb + a12*zib + b11,
			a11*zsg + a12*zig + b12,
			a21*zsb + a22*zib + b21,
			a21*zsg + a22*zig + b22,
		}
	}
}
