// Package projection provides the infinity-norm ball projection used to keep
// the implicit equation well-posed.
//
// The induced infinity norm of a matrix is its maximum absolute row sum.
// Projecting onto the ball of radius v rescales a matrix whose norm exceeds v
// so that its norm becomes exactly v, and leaves every other matrix untouched.
package projection

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// InfNorm returns the induced infinity norm of m (max absolute row sum).
func InfNorm(m mat.Matrix) float64 {
	return mat.Norm(m, math.Inf(1))
}

// maxRow returns the index of the first row attaining the infinity norm.
func maxRow(m mat.Matrix) int {
	r, c := m.Dims()
	best, norm := 0, math.Inf(-1)
	for i := 0; i < r; i++ {
		var sum float64
		for j := 0; j < c; j++ {
			sum += math.Abs(m.At(i, j))
		}
		if sum > norm {
			best, norm = i, sum
		}
	}
	return best
}

// OntoLinfBall projects m onto the infinity-norm ball of radius v.
//
// When InfNorm(m) > v the result is v*m/InfNorm(m), with the factor nudged
// down by ulps until the rounded result satisfies InfNorm <= v; otherwise it
// is an exact copy of m. Hence projecting a projected matrix returns it
// unchanged. The input is never modified. It panics if v is not positive.
func OntoLinfBall(m mat.Matrix, v float64) *mat.Dense {
	if v <= 0 {
		panic("projection: budget must be positive")
	}
	var out mat.Dense
	norm := InfNorm(m)
	if norm > v {
		scale := v / norm
		out.Scale(scale, m)
		for InfNorm(&out) > v {
			scale = math.Nextafter(scale, 0)
			out.Scale(scale, m)
		}
		return &out
	}
	out.CloneFrom(m)
	return &out
}

// OntoLinfBallVJP returns the gradient of a loss with respect to m, given
// grad, the gradient with respect to OntoLinfBall(m, v).
//
// Inside the ball the projection is the identity and grad is returned as is.
// Outside it the scale factor v/s depends on s = InfNorm(m), whose derivative
// is sign(m) on the maximal row. Ties pick the first maximal row.
func OntoLinfBallVJP(m, grad mat.Matrix, v float64) *mat.Dense {
	if v <= 0 {
		panic("projection: budget must be positive")
	}
	var out mat.Dense
	s := InfNorm(m)
	if !(s > v) {
		out.CloneFrom(grad)
		return &out
	}
	row := maxRow(m)

	// d/dm [v*m/s] applied to G = (v/s)G - (v/s^2)<G,m> ds/dm
	out.Scale(v/s, grad)
	inner := mat.Sum(elemMul(grad, m))
	coef := -v / (s * s) * inner
	_, c := m.Dims()
	for j := 0; j < c; j++ {
		if sgn := sign(m.At(row, j)); sgn != 0 {
			out.Set(row, j, out.At(row, j)+coef*sgn)
		}
	}
	return &out
}

// ClampScalar replaces d by kappa when |d| exceeds kappa. An out-of-range
// scalar of either sign becomes +kappa.
func ClampScalar(d, kappa float64) float64 {
	if math.Abs(d) > kappa {
		return kappa
	}
	return d
}

func elemMul(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.MulElem(a, b)
	return &out
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
