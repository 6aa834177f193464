package solver

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/GoImplicit/internal/activations"
	"github.com/FlavioCFOliveira/GoImplicit/internal/projection"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FixedPoint is the default solver: Picard iteration X <- phi(AX + BU).
//
// The iteration converges whenever phi is 1-Lipschitz and ||A||inf < 1. The
// backward pass solves the adjoint equation W = phi'(Z) o (G + A^T W), where
// Z = AX + BU at the fixed point, with the same iteration, then returns
// dA = W X^T, dB = W U^T, dU = B^T W and dX0 = 0.
type FixedPoint struct {
	Activation    activations.Activation
	Tolerance     float64
	MaxIterations int
	// WellPosedness, when positive, is the radius A is projected onto
	// before iterating.
	WellPosedness float64
	Logger        logrus.FieldLogger
}

// New returns a FixedPoint solver with ReLU, DefaultTolerance and
// DefaultMaxIterations unless overridden.
func New(opts ...Option) *FixedPoint {
	f := &FixedPoint{
		Activation:    activations.ReLU{},
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		Logger:        discardLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// resolved returns a copy of f whose unset fields take the defaults of New,
// so a zero FixedPoint behaves like Default().
func (f *FixedPoint) resolved() *FixedPoint {
	r := *f
	if r.Activation == nil {
		r.Activation = activations.ReLU{}
	}
	if r.Tolerance <= 0 {
		r.Tolerance = DefaultTolerance
	}
	if r.MaxIterations <= 0 {
		r.MaxIterations = DefaultMaxIterations
	}
	if r.Logger == nil {
		r.Logger = discardLogger()
	}
	return &r
}

// Default returns a solver with every default setting.
func Default() *FixedPoint {
	return New()
}

func checkDims(a, b, x0, u mat.Matrix) (n, m int, err error) {
	n, c := a.Dims()
	rb, p := b.Dims()
	rx, m := x0.Dims()
	ru, mu := u.Dims()
	if n != c || rb != n || rx != n || ru != p || mu != m {
		return 0, 0, fmt.Errorf("%w: A %dx%d, B %dx%d, X0 %dx%d, U %dx%d",
			ErrDimensions, n, c, rb, p, rx, m, ru, mu)
	}
	return n, m, nil
}

// maxAbsDiff returns the largest absolute entry of a - b.
func maxAbsDiff(a, b mat.Matrix) float64 {
	var d mat.Dense
	d.Sub(a, b)
	return floats.Norm(d.RawMatrix().Data, math.Inf(1))
}

// Solve implements Solver. Unset fields fall back to the defaults of New.
func (f *FixedPoint) Solve(a, b, x0, u mat.Matrix) (*Equilibrium, error) {
	f = f.resolved()
	n, m, err := checkDims(a, b, x0, u)
	if err != nil {
		return nil, err
	}

	aEff := mat.DenseCopyOf(a)
	if f.WellPosedness > 0 {
		aEff = projection.OntoLinfBall(a, f.WellPosedness)
	}

	var bu mat.Dense
	bu.Mul(b, u)

	x := mat.DenseCopyOf(x0)
	z := mat.NewDense(n, m, nil)
	var (
		iter     int
		residual = math.Inf(1)
	)
	for iter = 1; iter <= f.MaxIterations; iter++ {
		z.Mul(aEff, x)
		z.Add(z, &bu)
		next := activations.Apply(f.Activation, z)
		residual = maxAbsDiff(next, x)
		x = next
		if residual < f.Tolerance {
			break
		}
	}
	if !(residual < f.Tolerance) {
		return nil, &ConvergenceError{Phase: "forward", Iterations: f.MaxIterations, Residual: residual, Tolerance: f.Tolerance}
	}
	f.Logger.WithFields(logrus.Fields{
		"phase":      "forward",
		"iterations": iter,
		"residual":   residual,
	}).Debug("fixed point reached")

	// Z at the returned X drives the adjoint.
	z.Mul(aEff, x)
	z.Add(z, &bu)
	dphi := activations.ApplyDerivative(f.Activation, z)

	aRaw := mat.DenseCopyOf(a)
	bRaw := mat.DenseCopyOf(b)
	uRaw := mat.DenseCopyOf(u)
	xOut := mat.DenseCopyOf(x)

	backward := func(dX mat.Matrix) (*Gradients, error) {
		if r, c := dX.Dims(); r != n || c != m {
			return nil, fmt.Errorf("%w: gradient %dx%d, state %dx%d", ErrDimensions, r, c, n, m)
		}
		w, err := f.adjoint(aEff, dphi, dX)
		if err != nil {
			return nil, err
		}

		g := &Gradients{X0: mat.NewDense(n, m, nil)}
		var dA, dB, dU mat.Dense
		dA.Mul(w, xOut.T())
		dB.Mul(w, uRaw.T())
		dU.Mul(bRaw.T(), w)
		if f.WellPosedness > 0 {
			g.A = projection.OntoLinfBallVJP(aRaw, &dA, f.WellPosedness)
		} else {
			g.A = &dA
		}
		g.B, g.U = &dB, &dU
		return g, nil
	}

	return NewEquilibrium(xOut, iter, backward), nil
}

// adjoint iterates W <- dphi o (G + A^T W) from W = 0.
func (f *FixedPoint) adjoint(a, dphi *mat.Dense, g mat.Matrix) (*mat.Dense, error) {
	n, m := dphi.Dims()
	w := mat.NewDense(n, m, nil)
	next := mat.NewDense(n, m, nil)
	residual := math.Inf(1)
	var iter int
	for iter = 1; iter <= f.MaxIterations; iter++ {
		next.Mul(a.T(), w)
		next.Add(next, g)
		next.MulElem(next, dphi)
		residual = maxAbsDiff(next, w)
		w, next = next, w
		if residual < f.Tolerance {
			break
		}
	}
	if !(residual < f.Tolerance) {
		return nil, &ConvergenceError{Phase: "backward", Iterations: f.MaxIterations, Residual: residual, Tolerance: f.Tolerance}
	}
	f.Logger.WithFields(logrus.Fields{
		"phase":      "backward",
		"iterations": iter,
		"residual":   residual,
	}).Debug("adjoint fixed point reached")
	return w, nil
}
