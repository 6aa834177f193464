package solver

import (
	"errors"
	"fmt"
)

var (
	// ErrConvergence is matched by every ConvergenceError.
	ErrConvergence = errors.New("solver: fixed-point iteration did not converge")

	// ErrDimensions is returned when A, B, X0 and U do not line up.
	ErrDimensions = errors.New("solver: operand dimensions do not match")

	// ErrNoBackward is returned by an Equilibrium built without a backward pass.
	ErrNoBackward = errors.New("solver: equilibrium has no backward pass")
)

// ConvergenceError reports a fixed-point iteration that ran out of iterations
// before its update fell below the tolerance.
type ConvergenceError struct {
	Phase      string // "forward" or "backward"
	Iterations int
	Residual   float64
	Tolerance  float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("solver: %s iteration did not converge after %d iterations (residual %g, tolerance %g)",
		e.Phase, e.Iterations, e.Residual, e.Tolerance)
}

func (e *ConvergenceError) Is(target error) bool {
	return target == ErrConvergence
}
