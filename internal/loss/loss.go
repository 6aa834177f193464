// Package loss provides batch loss functions for training implicit models.
//
// Predictions and targets are (m x q) matrices with one sample per row, the
// layout returned by model.Forward. Every loss is averaged over all entries
// (or over samples for SoftmaxCrossEntropy).
package loss

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Loss is a loss function with derivative.
type Loss interface {
	// Forward computes the loss between predicted and true values.
	Forward(yPred, yTrue mat.Matrix) float64

	// Backward computes the gradient of the loss w.r.t. prediction.
	Backward(yPred, yTrue mat.Matrix) *mat.Dense
}

func mustMatch(name string, yPred, yTrue mat.Matrix) (int, int) {
	r, c := yPred.Dims()
	if tr, tc := yTrue.Dims(); tr != r || tc != c {
		panic(fmt.Sprintf("%s: prediction is %dx%d, target is %dx%d", name, r, c, tr, tc))
	}
	return r, c
}

// MSE (Mean Squared Error) loss.
type MSE struct{}

// Forward computes mean squared error: (1/N) * sum((y_pred - y_true)^2)
func (MSE) Forward(yPred, yTrue mat.Matrix) float64 {
	r, c := mustMatch("MSE", yPred, yTrue)
	var diff mat.Dense
	diff.Sub(yPred, yTrue)
	return mat.Sum(elemSquare(&diff)) / float64(r*c)
}

// Backward computes gradient: dL/dy_pred = (2/N) * (y_pred - y_true)
func (MSE) Backward(yPred, yTrue mat.Matrix) *mat.Dense {
	r, c := mustMatch("MSE", yPred, yTrue)
	var grad mat.Dense
	grad.Sub(yPred, yTrue)
	grad.Scale(2/float64(r*c), &grad)
	return &grad
}

func elemSquare(m *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.MulElem(m, m)
	return &out
}

// Huber loss for robust regression.
type Huber struct {
	Delta float64 // Threshold for quadratic/linear transition
}

// NewHuber creates a Huber loss with the given delta.
func NewHuber(delta float64) *Huber {
	return &Huber{Delta: delta}
}

// Forward computes the mean Huber loss.
func (h Huber) Forward(yPred, yTrue mat.Matrix) float64 {
	r, c := mustMatch("Huber", yPred, yTrue)
	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			diff := math.Abs(yPred.At(i, j) - yTrue.At(i, j))
			if diff <= h.Delta {
				sum += 0.5 * diff * diff
			} else {
				sum += h.Delta * (diff - 0.5*h.Delta)
			}
		}
	}
	return sum / float64(r*c)
}

// Backward computes the gradient of the mean Huber loss.
func (h Huber) Backward(yPred, yTrue mat.Matrix) *mat.Dense {
	r, c := mustMatch("Huber", yPred, yTrue)
	grad := mat.NewDense(r, c, nil)
	n := float64(r * c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			diff := yPred.At(i, j) - yTrue.At(i, j)
			if math.Abs(diff) <= h.Delta {
				grad.Set(i, j, diff/n)
			} else {
				grad.Set(i, j, h.Delta*math.Copysign(1, diff)/n)
			}
		}
	}
	return grad
}

// SoftmaxCrossEntropy treats each prediction row as logits and each target
// row as a probability distribution (usually one-hot).
type SoftmaxCrossEntropy struct{}

func softmaxRows(logits mat.Matrix) *mat.Dense {
	r, c := logits.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		// Find max for numerical stability
		maxVal := math.Inf(-1)
		for j := 0; j < c; j++ {
			maxVal = math.Max(maxVal, logits.At(i, j))
		}
		var sum float64
		for j := 0; j < c; j++ {
			e := math.Exp(logits.At(i, j) - maxVal)
			out.Set(i, j, e)
			sum += e
		}
		row := out.RawRowView(i)
		for j := range row {
			row[j] /= sum
		}
	}
	return out
}

// Forward computes -(1/m) sum_i sum_j y_ij log softmax(x_i)_j
func (SoftmaxCrossEntropy) Forward(yPred, yTrue mat.Matrix) float64 {
	r, c := mustMatch("SoftmaxCrossEntropy", yPred, yTrue)
	const eps = 1e-12
	probs := softmaxRows(yPred)
	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if y := yTrue.At(i, j); y != 0 {
				sum -= y * math.Log(probs.At(i, j)+eps)
			}
		}
	}
	return sum / float64(r)
}

// Backward computes (softmax(x) - y) / m
func (SoftmaxCrossEntropy) Backward(yPred, yTrue mat.Matrix) *mat.Dense {
	r, _ := mustMatch("SoftmaxCrossEntropy", yPred, yTrue)
	grad := softmaxRows(yPred)
	grad.Sub(grad, yTrue)
	grad.Scale(1/float64(r), grad)
	return grad
}

// Name returns the registry name of l.
func Name(l Loss) string {
	switch l.(type) {
	case MSE:
		return "mse"
	case Huber, *Huber:
		return "huber"
	case SoftmaxCrossEntropy:
		return "crossentropy"
	}
	return ""
}

// ByName returns the loss registered under name. Huber uses delta 1.
func ByName(name string) (Loss, error) {
	switch name {
	case "mse", "":
		return MSE{}, nil
	case "huber":
		return NewHuber(1.0), nil
	case "crossentropy":
		return SoftmaxCrossEntropy{}, nil
	}
	return nil, fmt.Errorf("loss: unknown loss %q", name)
}
