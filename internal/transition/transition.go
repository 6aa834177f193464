// Package transition produces the effective state-transition matrix A of an
// implicit model from one of three parameter schemes.
//
// Dense uses a free n x n matrix. LowRank and LowRankDiag factor A through two
// n x k matrices whose infinity norms are bounded by a projection before every
// use, so that the product stays inside the region where the fixed-point
// iteration converges.
package transition

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Stability budgets.
const (
	// LowRankBudget bounds each factor of LowRank, so ||A||inf <= 0.97^2.
	LowRankBudget = 0.97

	// Kappa is the total budget of LowRankDiag.
	Kappa = 0.95

	// KappaDiag is the part of Kappa spent on the diagonal term.
	KappaDiag = 0.45
)

// FactorBudget is the per-factor budget of LowRankDiag's low-rank term.
var FactorBudget = math.Sqrt(Kappa - KappaDiag)

// ErrUnknownKind is returned for an unrecognised parameter scheme.
var ErrUnknownKind = errors.New("transition: unknown kind")

// Kind selects a parameter scheme.
type Kind int

const (
	KindDense Kind = iota
	KindLowRank
	KindLowRankDiag
)

func (k Kind) String() string {
	switch k {
	case KindDense:
		return "dense"
	case KindLowRank:
		return "lowrank"
	case KindLowRankDiag:
		return "lowrankdiag"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "dense":
		return KindDense, nil
	case "lowrank":
		return KindLowRank, nil
	case "lowrankdiag":
		return KindLowRankDiag, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Transition produces A_eff and backpropagates into its own parameters.
type Transition interface {
	// Effective returns a fresh n x n matrix. It never modifies parameters.
	Effective() *mat.Dense
	// Backward accumulates the gradient of a loss with respect to the
	// parameters, given dA, its gradient with respect to Effective().
	Backward(dA mat.Matrix)

	Params() []float64
	SetParams(params []float64)
	Gradients() []float64
	ZeroGrad()

	Kind() Kind
	// Size returns n.
	Size() int
}

// Clipper is implemented by transitions that offer an explicit, permanent
// parameter clipping step.
type Clipper interface {
	Clip()
}

// New builds a transition of the given kind. k is ignored for KindDense and
// diag is only used by KindLowRankDiag.
func New(kind Kind, n, k int, diag bool, rng *rand.Rand) (Transition, error) {
	switch kind {
	case KindDense:
		return NewDense(n, rng), nil
	case KindLowRank:
		return NewLowRank(n, k, rng), nil
	case KindLowRankDiag:
		return NewLowRankDiag(n, k, diag, rng), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
}

// randn returns an r x c matrix with entries drawn from N(0, 1)/scale.
func randn(rng *rand.Rand, r, c int, scale float64) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.NormFloat64() / scale
	}
	return mat.NewDense(r, c, data)
}

// flatten concatenates the entries of ms in row-major order.
func flatten(ms ...*mat.Dense) []float64 {
	var size int
	for _, m := range ms {
		r, c := m.Dims()
		size += r * c
	}
	out := make([]float64, 0, size)
	for _, m := range ms {
		r, c := m.Dims()
		for i := 0; i < r; i++ {
			out = append(out, m.RawRowView(i)[:c]...)
		}
	}
	return out
}

// unflatten is the inverse of flatten. It panics on a length mismatch.
func unflatten(params []float64, ms ...*mat.Dense) {
	offset := 0
	for _, m := range ms {
		r, c := m.Dims()
		offset += r * c
	}
	if offset != len(params) {
		panic(fmt.Sprintf("transition: got %d params, want %d", len(params), offset))
	}
	offset = 0
	for _, m := range ms {
		r, c := m.Dims()
		for i := 0; i < r; i++ {
			copy(m.RawRowView(i)[:c], params[offset:offset+c])
			offset += c
		}
	}
}
