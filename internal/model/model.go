// Package model implements the implicit model Y = C X + D U, where the hidden
// state X is the fixed point X = phi(A X + B U) returned by an equation
// solver.
//
// A Model owns its parameters and nothing else: every forward call adapts the
// input, recomputes A from the configured transition, calls the solver and
// discards the intermediate values unless the caller asks for a Trace.
// Forward and parameter updates must not run concurrently on the same Model.
package model

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/FlavioCFOliveira/GoImplicit/internal/shape"
	"github.com/FlavioCFOliveira/GoImplicit/internal/solver"
	"github.com/FlavioCFOliveira/GoImplicit/internal/transition"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidDimensions is returned for non-positive n, p, q or k.
var ErrInvalidDimensions = errors.New("model: dimensions must be > 0")

// Model is an implicit prediction model.
//
//	A: n x n (via the transition)  B: n x p  C: q x n  D: q x p
//	X: n x m  U: p x m, m = batch size
//
// p includes the bias feature when enabled. Inputs and outputs cross the
// boundary batch-first.
type Model struct {
	n, p, q int
	rawP    int
	cfg     options

	adapter    shape.Adapter
	transition transition.Transition
	solver     solver.Solver

	b, c, d             *mat.Dense
	gradB, gradC, gradD *mat.Dense
}

// New creates a model with hidden width n, input width p and output width q.
// Parameters are drawn from N(0, 1)/n.
func New(n, p, q int, opts ...Option) (*Model, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if n <= 0 || p <= 0 || q <= 0 {
		return nil, fmt.Errorf("%w: n=%d p=%d q=%d", ErrInvalidDimensions, n, p, q)
	}
	if cfg.kind != transition.KindDense && cfg.rank <= 0 {
		return nil, fmt.Errorf("%w: k=%d", ErrInvalidDimensions, cfg.rank)
	}
	if cfg.solver == nil {
		cfg.solver = solver.Default()
	}
	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	tr, err := transition.New(cfg.kind, n, cfg.rank, cfg.diag, cfg.rng)
	if err != nil {
		return nil, err
	}

	adapter := shape.NewAdapter(n, p, cfg.bias)
	pEff := adapter.InputWidth()
	m := &Model{
		n:          n,
		p:          pEff,
		q:          q,
		rawP:       p,
		cfg:        cfg,
		adapter:    adapter,
		transition: tr,
		solver:     cfg.solver,
		b:          randn(cfg.rng, n, pEff, float64(n)),
		c:          randn(cfg.rng, q, n, float64(n)),
		gradB:      mat.NewDense(n, pEff, nil),
		gradC:      mat.NewDense(q, n, nil),
		gradD:      mat.NewDense(q, pEff, nil),
	}
	if cfg.noD {
		m.d = mat.NewDense(q, pEff, nil)
	} else {
		m.d = randn(cfg.rng, q, pEff, float64(n))
	}
	return m, nil
}

func randn(rng *rand.Rand, r, c int, scale float64) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.NormFloat64() / scale
	}
	return mat.NewDense(r, c, data)
}

// Forward returns the (m x q) prediction for an input of shape (m, p) or
// (m, t, p) and an optional (m x n) initial state.
//
// Shape errors wrap shape.ErrShapeMismatch. Solver errors, including
// *solver.ConvergenceError, are returned unchanged.
func (m *Model) Forward(u *shape.Tensor, x0 mat.Matrix) (*mat.Dense, error) {
	tr, err := m.Trace(u, x0)
	if err != nil {
		return nil, err
	}
	return tr.Output, nil
}

// Trace runs a forward pass and keeps what Backward needs.
func (m *Model) Trace(u *shape.Tensor, x0 mat.Matrix) (*Trace, error) {
	U, X0, err := m.adapter.Adapt(u, x0)
	if err != nil {
		return nil, err
	}
	a := m.transition.Effective()

	eq, err := m.solver.Solve(a, m.b, X0, U)
	if err != nil {
		return nil, err
	}

	// Y = C X + D U
	var y, du mat.Dense
	y.Mul(m.c, eq.X)
	du.Mul(m.d, U)
	y.Add(&y, &du)

	return &Trace{
		Output: shape.Restore(&y),
		U:      U,
		X0:     X0,
		A:      a,
		Eq:     eq,
		model:  m,
	}, nil
}

// Clip applies the explicit parameter clipping step of the transition when
// the model was built with WithDiagClipping. It is a parameter update and
// belongs after an optimizer step, never inside a forward pass.
func (m *Model) Clip() {
	if !m.cfg.clipDiag {
		return
	}
	if c, ok := m.transition.(transition.Clipper); ok {
		c.Clip()
	}
}

// N returns the hidden width.
func (m *Model) N() int { return m.n }

// P returns the effective input width, bias feature included.
func (m *Model) P() int { return m.p }

// Q returns the output width.
func (m *Model) Q() int { return m.q }

// Bias reports whether a constant input feature is appended.
func (m *Model) Bias() bool { return m.cfg.bias }

// FrozenD reports whether D is fixed to zero.
func (m *Model) FrozenD() bool { return m.cfg.noD }

// Transition returns the transition strategy.
func (m *Model) Transition() transition.Transition { return m.transition }

// B returns a copy of the input matrix.
func (m *Model) B() *mat.Dense { return mat.DenseCopyOf(m.b) }

// C returns a copy of the output matrix.
func (m *Model) C() *mat.Dense { return mat.DenseCopyOf(m.c) }

// D returns a copy of the feed-through matrix.
func (m *Model) D() *mat.Dense { return mat.DenseCopyOf(m.d) }
