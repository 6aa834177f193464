// Package shape normalises the batch-major boundary layout into the
// feature-major layout the implicit equation works in.
package shape

import (
	"gonum.org/v1/gonum/mat"
)

// EffectiveWidth returns the input width seen by B and D: p, plus one when a
// constant bias feature is appended.
func EffectiveWidth(p int, bias bool) int {
	if bias {
		return p + 1
	}
	return p
}

// Adapter converts boundary inputs to feature-major operands.
type Adapter struct {
	n    int
	p    int // effective input width
	bias bool
}

// NewAdapter returns an adapter for hidden width n and raw input width p.
func NewAdapter(n, p int, bias bool) Adapter {
	return Adapter{n: n, p: EffectiveWidth(p, bias), bias: bias}
}

// InputWidth returns the effective input width, bias feature included.
func (a Adapter) InputWidth() int {
	return a.p
}

// HiddenWidth returns n.
func (a Adapter) HiddenWidth() int {
	return a.n
}

// Bias reports whether a constant feature is appended.
func (a Adapter) Bias() bool {
	return a.bias
}

// Adapt returns U' (p x m) and X0' (n x m) for an input of shape (m, p) or
// (m, t, p) and an optional initial state of shape (m, n). A nil x0 yields
// the zero state.
func (a Adapter) Adapt(u *Tensor, x0 mat.Matrix) (*mat.Dense, *mat.Dense, error) {
	if r := u.Rank(); r != 2 && r != 3 {
		return nil, nil, ErrRank
	}
	flat := u.Flatten()
	m, features := flat.Dims()

	rows := features
	if a.bias {
		rows++
	}
	if rows != a.p {
		return nil, nil, &ShapeMismatchError{What: "input", Given: []int{rows}, Expected: []int{a.p}}
	}

	U := mat.NewDense(rows, m, nil)
	U.Slice(0, features, 0, m).(*mat.Dense).Copy(flat.T())
	if a.bias {
		for j := 0; j < m; j++ {
			U.Set(features, j, 1)
		}
	}

	if x0 == nil {
		return U, mat.NewDense(a.n, m, nil), nil
	}
	r, c := x0.Dims()
	if c != a.n || r != m {
		return nil, nil, &ShapeMismatchError{What: "initial state", Given: []int{c, r}, Expected: []int{a.n, m}}
	}
	X0 := mat.NewDense(a.n, m, nil)
	X0.Copy(x0.T())
	return U, X0, nil
}

// Restore transposes a feature-major (rows x m) result back to batch-major.
func Restore(y mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(y.T())
}
