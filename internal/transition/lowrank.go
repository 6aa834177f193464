package transition

import (
	"math/rand"

	"github.com/FlavioCFOliveira/GoImplicit/internal/projection"
	"gonum.org/v1/gonum/mat"
)

// Factors holds the projected operands of a low-rank transition.
type Factors struct {
	Diag *mat.Dense // n x n, nil for LowRank
	L    *mat.Dense // n x k
	RT   *mat.Dense // k x n
}

// LowRank computes A_eff = P(L, 0.97) P(R^T, 0.97) where P projects onto the
// infinity-norm ball. Each factor has norm at most 0.97, so ||A_eff||inf is
// bounded by 0.97^2.
type LowRank struct {
	l, r         *mat.Dense
	gradL, gradR *mat.Dense
}

// NewLowRank creates a rank-k transition with factors ~ N(0, 1)/n.
func NewLowRank(n, k int, rng *rand.Rand) *LowRank {
	return &LowRank{
		l:     randn(rng, n, k, float64(n)),
		r:     randn(rng, n, k, float64(n)),
		gradL: mat.NewDense(n, k, nil),
		gradR: mat.NewDense(n, k, nil),
	}
}

// Projected returns the projected factors used by Effective.
func (lr *LowRank) Projected() Factors {
	return Factors{
		L:  projection.OntoLinfBall(lr.l, LowRankBudget),
		RT: projection.OntoLinfBall(lr.r.T(), LowRankBudget),
	}
}

func (lr *LowRank) Effective() *mat.Dense {
	f := lr.Projected()
	var a mat.Dense
	a.Mul(f.L, f.RT)
	return &a
}

func (lr *LowRank) Backward(dA mat.Matrix) {
	backwardFactors(dA, lr.l, lr.r, lr.gradL, lr.gradR, LowRankBudget)
}

func (lr *LowRank) Params() []float64 { return flatten(lr.l, lr.r) }

func (lr *LowRank) SetParams(params []float64) { unflatten(params, lr.l, lr.r) }

func (lr *LowRank) Gradients() []float64 { return flatten(lr.gradL, lr.gradR) }

func (lr *LowRank) ZeroGrad() {
	lr.gradL.Zero()
	lr.gradR.Zero()
}

func (lr *LowRank) Kind() Kind { return KindLowRank }

func (lr *LowRank) Size() int {
	n, _ := lr.l.Dims()
	return n
}

// Rank returns k.
func (lr *LowRank) Rank() int {
	_, k := lr.l.Dims()
	return k
}

// backwardFactors accumulates into gradL and gradR the gradient of
// A = P(L, v) P(R^T, v) given dA.
func backwardFactors(dA mat.Matrix, l, r, gradL, gradR *mat.Dense, v float64) {
	lp := projection.OntoLinfBall(l, v)
	rtp := projection.OntoLinfBall(r.T(), v)

	// dLp = dA RTp^T, dRTp = Lp^T dA
	var dLp, dRTp mat.Dense
	dLp.Mul(dA, rtp.T())
	dRTp.Mul(lp.T(), dA)

	gradL.Add(gradL, projection.OntoLinfBallVJP(l, &dLp, v))
	gradR.Add(gradR, projection.OntoLinfBallVJP(r.T(), &dRTp, v).T())
}
