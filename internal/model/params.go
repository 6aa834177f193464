package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// trainable returns the parameter and gradient matrices owned by the model
// itself, in parameter order. D is left out when frozen.
func (m *Model) trainable() (params, grads []*mat.Dense) {
	params = []*mat.Dense{m.b, m.c}
	grads = []*mat.Dense{m.gradB, m.gradC}
	if !m.cfg.noD {
		params = append(params, m.d)
		grads = append(grads, m.gradD)
	}
	return params, grads
}

// NumParams returns the number of trainable values.
func (m *Model) NumParams() int {
	return len(m.Params())
}

// Params returns all trainable parameters flattened: transition, B, C, D.
func (m *Model) Params() []float64 {
	out := m.transition.Params()
	params, _ := m.trainable()
	for _, p := range params {
		out = append(out, p.RawMatrix().Data...)
	}
	return out
}

// SetParams updates all trainable parameters from a flattened slice in the
// order of Params. It panics on a length mismatch.
func (m *Model) SetParams(params []float64) {
	if len(params) != m.NumParams() {
		panic(fmt.Sprintf("model: got %d params, want %d", len(params), m.NumParams()))
	}
	offset := len(m.transition.Params())
	m.transition.SetParams(params[:offset])
	own, _ := m.trainable()
	for _, p := range own {
		data := p.RawMatrix().Data
		copy(data, params[offset:offset+len(data)])
		offset += len(data)
	}
}

// Gradients returns all accumulated gradients flattened in the order of Params.
func (m *Model) Gradients() []float64 {
	out := m.transition.Gradients()
	_, grads := m.trainable()
	for _, g := range grads {
		out = append(out, g.RawMatrix().Data...)
	}
	return out
}

// ZeroGrad clears every gradient buffer.
func (m *Model) ZeroGrad() {
	m.transition.ZeroGrad()
	m.gradB.Zero()
	m.gradC.Zero()
	m.gradD.Zero()
}
