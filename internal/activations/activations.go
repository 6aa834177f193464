// Package activations provides the element-wise nonlinearities used as the
// operator of the implicit equation X = phi(AX + BU).
//
// Every activation here is 1-Lipschitz, which is what keeps the fixed-point
// iteration a contraction once the transition matrix has norm below one.
package activations

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x)
	Derivative(x float64) float64
}

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (r ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x > 0, else 0
func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// LeakyReLU keeps a small slope for negative inputs.
type LeakyReLU struct {
	Alpha float64 // Slope for x <= 0
}

// NewLeakyReLU creates a LeakyReLU with the given alpha value.
func NewLeakyReLU(alpha float64) *LeakyReLU {
	return &LeakyReLU{Alpha: alpha}
}

// Activate computes x if x > 0, else alpha*x
func (l *LeakyReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.Alpha * x
}

// Derivative returns 1 if x > 0, else alpha
func (l *LeakyReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return l.Alpha
}

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x)
func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (t Tanh) Derivative(x float64) float64 {
	tanhX := math.Tanh(x)
	return 1 - tanhX*tanhX
}

// Sigmoid activation function.
type Sigmoid struct{}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Activate computes sigmoid(x)
func (s Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sigma := sigmoid(x)
	return sigma * (1 - sigma)
}

// Linear is the identity. The implicit equation then becomes linear and the
// fixed point is (I - A)^-1 BU.
type Linear struct{}

func (Linear) Activate(x float64) float64   { return x }
func (Linear) Derivative(x float64) float64 { return 1 }

// Apply returns f applied element-wise to m.
func Apply(f Activation, m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return f.Activate(v) }, m)
	return &out
}

// ApplyDerivative returns f' applied element-wise to m.
func ApplyDerivative(f Activation, m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return f.Derivative(v) }, m)
	return &out
}

// Name returns the registry name of f, or "" for unregistered activations.
func Name(f Activation) string {
	switch a := f.(type) {
	case ReLU:
		return "relu"
	case *LeakyReLU:
		return fmt.Sprintf("leakyrelu:%g", a.Alpha)
	case Tanh:
		return "tanh"
	case Sigmoid:
		return "sigmoid"
	case Linear:
		return "linear"
	}
	return ""
}

// ByName is the inverse of Name. "leakyrelu" without a slope uses 0.01.
func ByName(name string) (Activation, error) {
	switch name {
	case "relu", "":
		return ReLU{}, nil
	case "tanh":
		return Tanh{}, nil
	case "sigmoid":
		return Sigmoid{}, nil
	case "linear":
		return Linear{}, nil
	case "leakyrelu":
		return NewLeakyReLU(0.01), nil
	}
	var alpha float64
	if _, err := fmt.Sscanf(name, "leakyrelu:%g", &alpha); err == nil {
		return NewLeakyReLU(alpha), nil
	}
	return nil, fmt.Errorf("activations: unknown activation %q", name)
}
