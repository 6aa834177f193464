package transition

import (
	"math"
	"math/rand"

	"github.com/FlavioCFOliveira/GoImplicit/internal/projection"
	"gonum.org/v1/gonum/mat"
)

// LowRankDiag computes A_eff = Diag' + P(L, s) P(R^T, s) with s = sqrt(Kappa -
// KappaDiag), so the low-rank term contributes at most Kappa - KappaDiag to
// the infinity norm.
//
// With a vector diagonal, Diag' = P(diag(d), KappaDiag). With a scalar
// diagonal, Diag' = ClampScalar(d, Kappa) I, which is +Kappa I for |d| > Kappa. In both cases the rescale acts on
// a local value only; Clip makes it permanent when requested.
type LowRankDiag struct {
	l, r         *mat.Dense
	gradL, gradR *mat.Dense

	vector bool
	d      *mat.Dense // n x 1 when vector, 1 x 1 otherwise
	gradD  *mat.Dense
}

// NewLowRankDiag creates a rank-k plus diagonal transition. When vector is
// true the diagonal has n free entries, otherwise it is a single scalar.
func NewLowRankDiag(n, k int, vector bool, rng *rand.Rand) *LowRankDiag {
	rows := 1
	if vector {
		rows = n
	}
	return &LowRankDiag{
		l:      randn(rng, n, k, float64(n)),
		r:      randn(rng, n, k, float64(n)),
		gradL:  mat.NewDense(n, k, nil),
		gradR:  mat.NewDense(n, k, nil),
		vector: vector,
		d:      randn(rng, rows, 1, float64(n)),
		gradD:  mat.NewDense(rows, 1, nil),
	}
}

// Vector reports whether the diagonal has one entry per hidden unit.
func (t *LowRankDiag) Vector() bool {
	return t.vector
}

func (t *LowRankDiag) diagMatrix() *mat.Dense {
	n := t.Size()
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, t.d.At(i, 0))
	}
	return out
}

func (t *LowRankDiag) projectedDiag() *mat.Dense {
	if t.vector {
		return projection.OntoLinfBall(t.diagMatrix(), KappaDiag)
	}
	n := t.Size()
	c := projection.ClampScalar(t.d.At(0, 0), Kappa)
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, c)
	}
	return out
}

// Projected returns the projected operands used by Effective.
func (t *LowRankDiag) Projected() Factors {
	return Factors{
		Diag: t.projectedDiag(),
		L:    projection.OntoLinfBall(t.l, FactorBudget),
		RT:   projection.OntoLinfBall(t.r.T(), FactorBudget),
	}
}

func (t *LowRankDiag) Effective() *mat.Dense {
	f := t.Projected()
	var a mat.Dense
	a.Mul(f.L, f.RT)
	a.Add(&a, f.Diag)
	return &a
}

func (t *LowRankDiag) Backward(dA mat.Matrix) {
	backwardFactors(dA, t.l, t.r, t.gradL, t.gradR, FactorBudget)

	n := t.Size()
	if t.vector {
		g := projection.OntoLinfBallVJP(t.diagMatrix(), dA, KappaDiag)
		for i := 0; i < n; i++ {
			t.gradD.Set(i, 0, t.gradD.At(i, 0)+g.At(i, i))
		}
		return
	}
	// A clamped scalar is constant in d.
	if math.Abs(t.d.At(0, 0)) > Kappa {
		return
	}
	var trace float64
	for i := 0; i < n; i++ {
		trace += dA.At(i, i)
	}
	t.gradD.Set(0, 0, t.gradD.At(0, 0)+trace)
}

// Clip writes the projected diagonal back into the parameter: a scalar with
// |d| > Kappa becomes Kappa, a vector is projected onto the
// KappaDiag ball. This is a parameter update and is never called by Effective.
func (t *LowRankDiag) Clip() {
	if !t.vector {
		t.d.Set(0, 0, projection.ClampScalar(t.d.At(0, 0), Kappa))
		return
	}
	p := t.projectedDiag()
	for i := 0; i < t.Size(); i++ {
		t.d.Set(i, 0, p.At(i, i))
	}
}

// Diagonal returns a copy of the raw diagonal parameter.
func (t *LowRankDiag) Diagonal() []float64 {
	return flatten(t.d)
}

func (t *LowRankDiag) Params() []float64 { return flatten(t.l, t.r, t.d) }

func (t *LowRankDiag) SetParams(params []float64) { unflatten(params, t.l, t.r, t.d) }

func (t *LowRankDiag) Gradients() []float64 { return flatten(t.gradL, t.gradR, t.gradD) }

func (t *LowRankDiag) ZeroGrad() {
	t.gradL.Zero()
	t.gradR.Zero()
	t.gradD.Zero()
}

func (t *LowRankDiag) Kind() Kind { return KindLowRankDiag }

func (t *LowRankDiag) Size() int {
	n, _ := t.l.Dims()
	return n
}

// Rank returns k.
func (t *LowRankDiag) Rank() int {
	_, k := t.l.Dims()
	return k
}
