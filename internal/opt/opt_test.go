// Package opt provides unit tests for optimizers and schedulers.
package opt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSGDStep tests SGD step computation.
func TestSGDStep(t *testing.T) {
	sgd := NewSGD(0.1)

	params := []float64{1.0, 2.0, 3.0}
	gradients := []float64{0.1, 0.2, 0.3}

	updated := sgd.Step(params, gradients)

	// Expected: params - lr * gradients
	assert.InDeltaSlice(t, []float64{0.99, 1.98, 2.97}, updated, 1e-10)
	// Step leaves the input alone
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, params)
}

// TestSGDStepInPlace tests in-place SGD update.
func TestSGDStepInPlace(t *testing.T) {
	sgd := NewSGD(0.1)
	params := []float64{1.0, 2.0, 3.0}
	sgd.StepInPlace(params, []float64{0.1, 0.2, 0.3})
	assert.InDeltaSlice(t, []float64{0.99, 1.98, 2.97}, params, 1e-10)
}

// TestAdamFirstStep checks that the first bias-corrected step moves every
// parameter by about lr against the sign of its gradient.
func TestAdamFirstStep(t *testing.T) {
	adam := NewAdam(0.01)
	params := []float64{1, 1, 1}
	adam.StepInPlace(params, []float64{5, -0.001, 0})

	assert.InDelta(t, 0.99, params[0], 1e-6)
	assert.InDelta(t, 1.01, params[1], 1e-4)
	assert.Equal(t, 1.0, params[2])
}

// TestAdamMinimisesQuadratic runs Adam on f(x) = sum (x_i - 3)^2.
func TestAdamMinimisesQuadratic(t *testing.T) {
	adam := NewAdam(0.1)
	x := []float64{0, 10, -4}
	for i := 0; i < 2000; i++ {
		grad := make([]float64, len(x))
		for j := range x {
			grad[j] = 2 * (x[j] - 3)
		}
		adam.StepInPlace(x, grad)
	}
	for _, v := range x {
		assert.InDelta(t, 3, v, 1e-2)
	}
}

func TestAdamResetsOnResize(t *testing.T) {
	adam := NewAdam(0.1)
	adam.StepInPlace([]float64{1, 2}, []float64{1, 1})
	p := []float64{0, 0, 0}
	assert.NotPanics(t, func() { adam.StepInPlace(p, []float64{1, 1, 1}) })
	assert.InDelta(t, -0.1, p[0], 1e-6)
}

func TestStepLR(t *testing.T) {
	sgd := NewSGD(1)
	s := NewStepLR(sgd, 2, 0.5)
	s.Step()
	assert.Equal(t, 1.0, s.GetLR())
	s.Step()
	assert.Equal(t, 0.5, s.GetLR())
}

func TestExponentialLR(t *testing.T) {
	adam := NewAdam(1)
	s := NewExponentialLR(adam, 0.9)
	for i := 0; i < 3; i++ {
		s.Step()
	}
	assert.InDelta(t, math.Pow(0.9, 3), adam.LearningRate(), 1e-12)
}

func TestReduceLROnPlateau(t *testing.T) {
	sgd := NewSGD(1)
	s := NewReduceLROnPlateau(sgd, 0.1, 2, 0, 0.05)

	s.StepWithLoss(1.0)
	s.StepWithLoss(1.0)
	assert.Equal(t, 1.0, s.GetLR())
	s.StepWithLoss(1.0)
	assert.InDelta(t, 0.1, s.GetLR(), 1e-12)

	s.StepWithLoss(1.0)
	s.StepWithLoss(1.0)
	assert.Equal(t, 0.05, s.GetLR(), "learning rate is floored at minLR")
}
