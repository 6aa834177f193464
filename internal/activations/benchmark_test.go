// Package activations provides benchmarks for activation functions.
package activations

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func benchmarkApply(b *testing.B, f Activation) {
	rng := rand.New(rand.NewSource(1))
	data := make([]float64, 64*256)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	m := mat.NewDense(64, 256, data)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Apply(f, m)
		_ = ApplyDerivative(f, m)
	}
}

// BenchmarkReLU benchmarks element-wise ReLU and its derivative on 64x256.
func BenchmarkReLU(b *testing.B) { benchmarkApply(b, ReLU{}) }

func BenchmarkLeakyReLU(b *testing.B) { benchmarkApply(b, NewLeakyReLU(0.01)) }

func BenchmarkTanh(b *testing.B) { benchmarkApply(b, Tanh{}) }

func BenchmarkSigmoid(b *testing.B) { benchmarkApply(b, Sigmoid{}) }
