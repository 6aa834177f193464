package model

import (
	"fmt"

	"github.com/FlavioCFOliveira/GoImplicit/internal/solver"
	"gonum.org/v1/gonum/mat"
)

// Trace records one forward pass: the adapted operands, the effective
// transition matrix, the equilibrium and the batch-major output.
type Trace struct {
	Output *mat.Dense // m x q
	U      *mat.Dense // p x m
	X0     *mat.Dense // n x m
	A      *mat.Dense // n x n
	Eq     *solver.Equilibrium

	model *Model
}

// Backward accumulates into the model's gradient buffers the gradient of a
// loss whose gradient with respect to Output is dY (m x q).
func (t *Trace) Backward(dY mat.Matrix) error {
	m := t.model
	r, c := dY.Dims()
	if wr, wc := t.Output.Dims(); r != wr || c != wc {
		return fmt.Errorf("model: output gradient is %dx%d, want %dx%d", r, c, wr, wc)
	}
	dYt := mat.DenseCopyOf(dY.T()) // q x m

	var dC, dX mat.Dense
	dC.Mul(dYt, t.Eq.X.T())
	m.gradC.Add(m.gradC, &dC)
	if !m.cfg.noD {
		var dD mat.Dense
		dD.Mul(dYt, t.U.T())
		m.gradD.Add(m.gradD, &dD)
	}

	dX.Mul(m.c.T(), dYt)
	g, err := t.Eq.Backward(&dX)
	if err != nil {
		return err
	}
	m.gradB.Add(m.gradB, g.B)
	m.transition.Backward(g.A)
	return nil
}
