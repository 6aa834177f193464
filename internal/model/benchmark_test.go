package model

import (
	"math/rand"
	"testing"

	"github.com/FlavioCFOliveira/GoImplicit/internal/solver"
)

func benchmarkForward(b *testing.B, opts ...Option) {
	rng := rand.New(rand.NewSource(1))
	m, err := New(32, 8, 4, append(opts,
		WithRand(rng),
		WithSolver(solver.New(solver.WithWellPosedness(0.9))))...)
	if err != nil {
		b.Fatal(err)
	}
	u := batch(rng, 64, 8)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Forward(u, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkForwardDense(b *testing.B)       { benchmarkForward(b) }
func BenchmarkForwardLowRank(b *testing.B)     { benchmarkForward(b, WithLowRank(4)) }
func BenchmarkForwardLowRankDiag(b *testing.B) { benchmarkForward(b, WithLowRankDiag(4, true)) }

func BenchmarkTraceBackward(b *testing.B) {
	rng := rand.New(rand.NewSource(2))
	m, err := New(32, 8, 4, WithLowRankDiag(4, true), WithRand(rng))
	if err != nil {
		b.Fatal(err)
	}
	u := batch(rng, 64, 8)
	dY := randn(rng, 64, 4, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr, err := m.Trace(u, nil)
		if err != nil {
			b.Fatal(err)
		}
		if err := tr.Backward(dY); err != nil {
			b.Fatal(err)
		}
	}
}
