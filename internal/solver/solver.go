// Package solver computes the hidden state of an implicit model, the fixed
// point X = phi(AX + BU), and backpropagates through it with the implicit
// function theorem.
package solver

import (
	"gonum.org/v1/gonum/mat"
)

// Solver finds X satisfying X = phi(A X + B U) starting from X0.
//
// A is n x n, B is n x p, X0 is n x m and U is p x m. The returned
// equilibrium holds X (n x m) and a backward pass from a gradient on X to
// gradients on A, B, X0 and U.
type Solver interface {
	Solve(a, b, x0, u mat.Matrix) (*Equilibrium, error)
}

// Gradients of a loss with respect to the solver operands.
type Gradients struct {
	A, B, X0, U *mat.Dense
}

// BackwardFunc maps a gradient on X to gradients on the solver operands.
type BackwardFunc func(dX mat.Matrix) (*Gradients, error)

// Equilibrium is the result of a solve.
type Equilibrium struct {
	X          *mat.Dense
	Iterations int

	backward BackwardFunc
}

// NewEquilibrium lets other Solver implementations return a fixed point with
// their own backward pass. backward may be nil for inference-only solvers.
func NewEquilibrium(x *mat.Dense, iterations int, backward BackwardFunc) *Equilibrium {
	return &Equilibrium{X: x, Iterations: iterations, backward: backward}
}

// Backward returns the gradients on A, B, X0 and U given dX, the gradient on X.
func (e *Equilibrium) Backward(dX mat.Matrix) (*Gradients, error) {
	if e.backward == nil {
		return nil, ErrNoBackward
	}
	return e.backward(dX)
}
