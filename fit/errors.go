package fit

import "fmt"

// AllTrialsFailedError reports an outer iteration in which no multi-start
// trial converged. The loop cannot proceed without at least one valid fit.
type AllTrialsFailedError struct {
	Iteration int // outer iteration at which every trial failed
	Trials    int // number of trials attempted
}

func (e *AllTrialsFailedError) Error() string {
	return fmt.Sprintf("all %d optimization trials failed to converge at outer iteration %d", e.Trials, e.Iteration)
}

// WeightOverflowError reports a predicted mean too close to zero for the
// GLS weight predicted^(-rho) to stay bounded. Surfaced explicitly
// rather than propagating an infinite weight.
type WeightOverflowError struct {
	Index     int     // observation index
	Predicted float64 // offending predicted mean
}

func (e *WeightOverflowError) Error() string {
	return fmt.Sprintf("predicted mean %g at observation %d is too small for a bounded GLS weight", e.Predicted, e.Index)
}
