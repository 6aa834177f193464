package shape

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a dense row-major batch. Dims holds (m, p) for plain batches and
// (m, t, p) for sequences; the first axis is always the batch.
type Tensor struct {
	Data []float64
	Dims []int
}

// NewTensor wraps data with the given dimensions. It panics when the data
// length does not match the product of dims.
func NewTensor(data []float64, dims ...int) *Tensor {
	size := 1
	for _, d := range dims {
		if d <= 0 {
			panic(fmt.Sprintf("shape: non-positive dimension in %v", dims))
		}
		size *= d
	}
	if len(data) != size {
		panic(fmt.Sprintf("shape: data length %d does not match dims %v", len(data), dims))
	}
	return &Tensor{Data: data, Dims: append([]int(nil), dims...)}
}

// FromMatrix returns a rank-2 tensor holding a copy of m.
func FromMatrix(m mat.Matrix) *Tensor {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return &Tensor{Data: data, Dims: []int{r, c}}
}

// FromSequences stacks m sequences of shape (t, p) into an (m, t, p) tensor.
func FromSequences(seqs []mat.Matrix) *Tensor {
	if len(seqs) == 0 {
		panic("shape: no sequences")
	}
	t, p := seqs[0].Dims()
	data := make([]float64, 0, len(seqs)*t*p)
	for k, s := range seqs {
		if r, c := s.Dims(); r != t || c != p {
			panic(fmt.Sprintf("shape: sequence %d has dims (%d, %d), want (%d, %d)", k, r, c, t, p))
		}
		for i := 0; i < t; i++ {
			for j := 0; j < p; j++ {
				data = append(data, s.At(i, j))
			}
		}
	}
	return &Tensor{Data: data, Dims: []int{len(seqs), t, p}}
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.Dims)
}

// Flatten merges every axis after the batch axis and returns the (m, rest)
// matrix. The result shares t.Data.
func (t *Tensor) Flatten() *mat.Dense {
	rest := 1
	for _, d := range t.Dims[1:] {
		rest *= d
	}
	return mat.NewDense(t.Dims[0], rest, t.Data)
}
