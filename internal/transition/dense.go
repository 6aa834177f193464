package transition

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dense uses a free n x n matrix as A_eff. No projection is applied: keeping
// the equation well-posed is left to the caller or the solver.
type Dense struct {
	a     *mat.Dense
	gradA *mat.Dense
}

// NewDense creates a dense transition with entries ~ N(0, 1)/n.
func NewDense(n int, rng *rand.Rand) *Dense {
	return &Dense{
		a:     randn(rng, n, n, float64(n)),
		gradA: mat.NewDense(n, n, nil),
	}
}

// NewDenseFrom wraps a copy of a. It panics if a is not square.
func NewDenseFrom(a mat.Matrix) *Dense {
	r, c := a.Dims()
	if r != c {
		panic(mat.ErrShape)
	}
	return &Dense{a: mat.DenseCopyOf(a), gradA: mat.NewDense(r, r, nil)}
}

func (d *Dense) Effective() *mat.Dense {
	return mat.DenseCopyOf(d.a)
}

func (d *Dense) Backward(dA mat.Matrix) {
	d.gradA.Add(d.gradA, dA)
}

func (d *Dense) Params() []float64          { return flatten(d.a) }
func (d *Dense) SetParams(params []float64) { unflatten(params, d.a) }
func (d *Dense) Gradients() []float64       { return flatten(d.gradA) }
func (d *Dense) ZeroGrad()                  { d.gradA.Zero() }
func (d *Dense) Kind() Kind                 { return KindDense }

func (d *Dense) Size() int {
	n, _ := d.a.Dims()
	return n
}
