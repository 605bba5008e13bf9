// Package results defines the structured output format for estimation runs
package results

import "time"

const SchemaVersion = "1.0.0"

// Report contains the complete output of one estimation run. It is the
// interface handed to downstream reporting and plotting tools.
type Report struct {
	Version     string       `json:"version"`
	Metadata    Metadata     `json:"metadata"`
	Scenario    Scenario     `json:"scenario"`
	Estimate    *Estimate    `json:"estimate,omitempty"`
	Uncertainty *Uncertainty `json:"uncertainty,omitempty"`
	Fit         *Trajectory  `json:"fit,omitempty"`
	Series      *SeriesStats `json:"series,omitempty"`
}

// Metadata contains run execution information
type Metadata struct {
	RunID       string    `json:"runId"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"` // success, error
	Error       string    `json:"error,omitempty"`
	ComputeTime float64   `json:"computeTime"` // seconds
}

// Scenario echoes the configuration the run was performed under.
type Scenario struct {
	S0            float64 `json:"s0"`
	I0            float64 `json:"i0"`
	N             float64 `json:"n"`
	Rho           float64 `json:"rho"`
	Trials        int     `json:"trials"`
	MaxOuterIters int     `json:"maxOuterIters"`
	Tolerance     float64 `json:"tolerance"`
	CondLimit     float64 `json:"condLimit"`
	Seed          int64   `json:"seed"`
	SolverMethod  string  `json:"solverMethod,omitempty"`
}

// Estimate holds the fitted parameters and the state of the outer loop.
type Estimate struct {
	Beta       float64   `json:"beta"`
	Gamma      float64   `json:"gamma"`
	R0         float64   `json:"r0"`
	SSR        float64   `json:"ssr"`
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
	Weights    []float64 `json:"weights,omitempty"`
}

// Uncertainty holds the FIM-derived uncertainty quantification.
type Uncertainty struct {
	Sigma2           float64     `json:"sigma2"`
	Covariance       [][]float64 `json:"covariance"` // 2x2 over (beta, gamma)
	BetaHalfWidth    float64     `json:"betaHalfWidth"`
	GammaHalfWidth   float64     `json:"gammaHalfWidth"`
	TCrit            float64     `json:"tCrit"`
	DegreesOfFreedom int         `json:"degreesOfFreedom"`
	ConditionNumber  float64     `json:"conditionNumber"`
	IllConditioned   bool        `json:"illConditioned"`
}

// Trajectory pairs the observations with the fitted trajectory.
type Trajectory struct {
	Times     []float64 `json:"times"`
	Observed  []float64 `json:"observed"`
	Predicted []float64 `json:"predicted"`
	Residuals []float64 `json:"residuals"`
}

// SeriesStats is a statistical summary of the observation series.
type SeriesStats struct {
	Count  int     `json:"count"`
	TStart float64 `json:"tStart"`
	TEnd   float64 `json:"tEnd"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}
