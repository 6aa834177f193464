package loss

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMSE(t *testing.T) {
	pred := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	target := mat.NewDense(2, 2, []float64{1, 0, 3, 8})

	// (0 + 4 + 0 + 16) / 4
	assert.InDelta(t, 5.0, MSE{}.Forward(pred, target), 1e-12)

	grad := MSE{}.Backward(pred, target)
	want := mat.NewDense(2, 2, []float64{0, 1, 0, -2})
	assert.True(t, mat.EqualApprox(want, grad, 1e-12))
}

func TestMSEShapeMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		MSE{}.Forward(mat.NewDense(2, 1, nil), mat.NewDense(1, 2, nil))
	})
}

func TestHuber(t *testing.T) {
	h := NewHuber(1)
	pred := mat.NewDense(1, 2, []float64{0.5, 3})
	target := mat.NewDense(1, 2, []float64{0, 0})

	// 0.5*0.25 + 1*(3-0.5) = 2.625, mean over 2
	assert.InDelta(t, 1.3125, h.Forward(pred, target), 1e-12)

	grad := h.Backward(pred, target)
	assert.InDelta(t, 0.25, grad.At(0, 0), 1e-12)
	assert.InDelta(t, 0.5, grad.At(0, 1), 1e-12)
}

func TestSoftmaxCrossEntropy(t *testing.T) {
	pred := mat.NewDense(1, 3, []float64{0, 0, 0})
	target := mat.NewDense(1, 3, []float64{0, 1, 0})

	assert.InDelta(t, math.Log(3), SoftmaxCrossEntropy{}.Forward(pred, target), 1e-9)

	grad := SoftmaxCrossEntropy{}.Backward(pred, target)
	assert.InDelta(t, 1.0/3, grad.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0/3-1, grad.At(0, 1), 1e-12)
	assert.InDelta(t, 0, mat.Sum(grad), 1e-12)
}

// TestBackwardFiniteDifference checks every loss gradient numerically.
func TestBackwardFiniteDifference(t *testing.T) {
	pred := mat.NewDense(2, 3, []float64{0.3, -1.2, 2.5, 0.1, 0.7, -0.4})
	target := mat.NewDense(2, 3, []float64{0, 1, 0, 1, 0, 0})

	for _, l := range []Loss{MSE{}, NewHuber(0.5), SoftmaxCrossEntropy{}} {
		grad := l.Backward(pred, target)
		const h = 1e-6
		for i := 0; i < 2; i++ {
			for j := 0; j < 3; j++ {
				orig := pred.At(i, j)
				pred.Set(i, j, orig+h)
				up := l.Forward(pred, target)
				pred.Set(i, j, orig-h)
				down := l.Forward(pred, target)
				pred.Set(i, j, orig)
				assert.InDelta(t, (up-down)/(2*h), grad.At(i, j), 1e-6, "%T (%d,%d)", l, i, j)
			}
		}
	}
}

func TestByName(t *testing.T) {
	for _, l := range []Loss{MSE{}, NewHuber(1), SoftmaxCrossEntropy{}} {
		got, err := ByName(Name(l))
		require.NoError(t, err)
		assert.Equal(t, Name(l), Name(got))
	}
	_, err := ByName("hinge")
	assert.Error(t, err)
}
