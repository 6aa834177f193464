package solver

import (
	"io"

	"github.com/FlavioCFOliveira/GoImplicit/internal/activations"
	"github.com/sirupsen/logrus"
)

// Defaults of the fixed-point solver.
const (
	DefaultTolerance     = 3e-6
	DefaultMaxIterations = 300
)

// Option configures a FixedPoint solver. Invalid values panic.
type Option func(*FixedPoint)

// WithTolerance sets the stopping threshold on the largest absolute change
// between two iterates.
func WithTolerance(tol float64) Option {
	if tol <= 0 {
		panic("solver: tolerance must be positive")
	}
	return func(f *FixedPoint) { f.Tolerance = tol }
}

// WithMaxIterations bounds both the forward and the backward iteration.
func WithMaxIterations(n int) Option {
	if n <= 0 {
		panic("solver: max iterations must be positive")
	}
	return func(f *FixedPoint) { f.MaxIterations = n }
}

// WithActivation sets phi.
func WithActivation(act activations.Activation) Option {
	if act == nil {
		panic("solver: nil activation")
	}
	return func(f *FixedPoint) { f.Activation = act }
}

// WithWellPosedness projects A onto the infinity-norm ball of radius v before
// iterating. Useful with unprojected dense transitions.
func WithWellPosedness(v float64) Option {
	if v <= 0 || v >= 1 {
		panic("solver: well-posedness radius must be in (0, 1)")
	}
	return func(f *FixedPoint) { f.WellPosedness = v }
}

// WithLogger sets the logger used for iteration diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(f *FixedPoint) { f.Logger = l }
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
