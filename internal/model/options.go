package model

import (
	"math/rand"

	"github.com/FlavioCFOliveira/GoImplicit/internal/solver"
	"github.com/FlavioCFOliveira/GoImplicit/internal/transition"
)

type options struct {
	kind     transition.Kind
	rank     int
	diag     bool
	bias     bool
	noD      bool
	clipDiag bool
	solver   solver.Solver
	rng      *rand.Rand
}

func defaultOptions() options {
	return options{kind: transition.KindDense}
}

// Option configures a Model at construction.
type Option func(*options)

// WithLowRank parameterises A as the product of two projected n x k factors.
func WithLowRank(k int) Option {
	return func(o *options) {
		o.kind = transition.KindLowRank
		o.rank = k
	}
}

// WithLowRankDiag parameterises A as a projected diagonal plus a projected
// rank-k product. diag selects a per-unit diagonal instead of a scalar one.
func WithLowRankDiag(k int, diag bool) Option {
	return func(o *options) {
		o.kind = transition.KindLowRankDiag
		o.rank = k
		o.diag = diag
	}
}

// WithBias appends a constant 1 feature to every input.
func WithBias() Option {
	return func(o *options) { o.bias = true }
}

// WithoutD fixes D to zero and excludes it from the parameters.
func WithoutD() Option {
	return func(o *options) { o.noD = true }
}

// WithDiagClipping makes Clip write the projected diagonal of a
// low-rank-plus-diagonal transition back into its parameter.
func WithDiagClipping() Option {
	return func(o *options) { o.clipDiag = true }
}

// WithSolver sets the equation solver. The default is solver.Default().
func WithSolver(s solver.Solver) Option {
	return func(o *options) { o.solver = s }
}

// WithRand sets the source used for parameter initialisation.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}
