// Package train fits implicit models with gradient-based optimizers.
package train

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/FlavioCFOliveira/GoImplicit/internal/loss"
	"github.com/FlavioCFOliveira/GoImplicit/internal/model"
	"github.com/FlavioCFOliveira/GoImplicit/internal/opt"
	"github.com/FlavioCFOliveira/GoImplicit/internal/shape"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Trainer owns one optimization loop over a model. Per batch it traces a
// forward pass, back-propagates the loss gradient through the equilibrium,
// applies one optimizer step and then the model's clipping step.
type Trainer struct {
	model     *model.Model
	loss      loss.Loss
	opt       opt.Optimizer
	callbacks []Callback
	log       logrus.FieldLogger
	rng       *rand.Rand
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithCallbacks registers callbacks in call order.
func WithCallbacks(cbs ...Callback) Option {
	return func(t *Trainer) { t.callbacks = append(t.callbacks, cbs...) }
}

// WithLogger sets the logger used for epoch summaries and by callbacks.
func WithLogger(l logrus.FieldLogger) Option {
	return func(t *Trainer) { t.log = l }
}

// WithShuffle shuffles the dataset before every epoch.
func WithShuffle(rng *rand.Rand) Option {
	return func(t *Trainer) { t.rng = rng }
}

// New creates a trainer for m.
func New(m *model.Model, l loss.Loss, o opt.Optimizer, opts ...Option) *Trainer {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	t := &Trainer{model: m, loss: l, opt: o, log: discard}
	for _, apply := range opts {
		apply(t)
	}
	return t
}

// Model returns the model being trained.
func (t *Trainer) Model() *model.Model { return t.model }

// Optimizer returns the optimizer.
func (t *Trainer) Optimizer() opt.Optimizer { return t.opt }

// TrainBatch runs one optimization step on a batch and returns the loss
// measured before the update.
func (t *Trainer) TrainBatch(u *shape.Tensor, y mat.Matrix) (float64, error) {
	m := t.model
	m.ZeroGrad()

	tr, err := m.Trace(u, nil)
	if err != nil {
		return 0, fmt.Errorf("train: forward: %w", err)
	}
	pr, pc := tr.Output.Dims()
	if yr, yc := y.Dims(); yr != pr || yc != pc {
		return 0, fmt.Errorf("%w: target is %dx%d, prediction is %dx%d",
			shape.ErrShapeMismatch, yr, yc, pr, pc)
	}

	l := t.loss.Forward(tr.Output, y)
	if err := tr.Backward(t.loss.Backward(tr.Output, y)); err != nil {
		return 0, fmt.Errorf("train: backward: %w", err)
	}

	params := m.Params()
	t.opt.StepInPlace(params, m.Gradients())
	m.SetParams(params)
	m.Clip()
	return l, nil
}

// Evaluate returns the mean batch loss over ds without updating the model.
func (t *Trainer) Evaluate(ds *Dataset, batchSize int) (float64, error) {
	if ds.Len() == 0 {
		return 0, ErrEmptyDataset
	}
	var total float64
	batches := ds.Batches(batchSize)
	for _, b := range batches {
		pred, err := t.model.Forward(b.U, nil)
		if err != nil {
			return 0, fmt.Errorf("train: evaluate: %w", err)
		}
		total += t.loss.Forward(pred, b.Y)
	}
	return total / float64(len(batches)), nil
}

// Fit trains for the given number of epochs and returns the mean loss of
// each completed epoch. It stops early when a Stopper callback asks to.
func (t *Trainer) Fit(ds *Dataset, epochs, batchSize int) ([]float64, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if epochs < 0 {
		return nil, fmt.Errorf("%w: %d", ErrEpochs, epochs)
	}

	for _, cb := range t.callbacks {
		cb.OnTrainBegin(t)
	}
	defer func() {
		for _, cb := range t.callbacks {
			cb.OnTrainEnd(t)
		}
	}()

	history := make([]float64, 0, epochs)
	for epoch := 0; epoch < epochs; epoch++ {
		start := time.Now()
		for _, cb := range t.callbacks {
			cb.OnEpochBegin(epoch, t)
		}
		if t.rng != nil {
			ds.Shuffle(t.rng)
		}

		var total float64
		batches := ds.Batches(batchSize)
		for i, b := range batches {
			for _, cb := range t.callbacks {
				cb.OnBatchBegin(i, t)
			}
			l, err := t.TrainBatch(b.U, b.Y)
			if err != nil {
				return history, fmt.Errorf("epoch %d batch %d: %w", epoch, i, err)
			}
			total += l
			for _, cb := range t.callbacks {
				cb.OnBatchEnd(i, l, t)
			}
		}

		epochLoss := total / float64(len(batches))
		history = append(history, epochLoss)
		t.log.WithFields(logrus.Fields{
			"epoch":    epoch,
			"loss":     epochLoss,
			"batches":  len(batches),
			"duration": time.Since(start),
		}).Debug("epoch done")

		for _, cb := range t.callbacks {
			cb.OnEpochEnd(epoch, epochLoss, t)
		}
		if t.stopRequested() {
			break
		}
	}
	return history, nil
}

func (t *Trainer) stopRequested() bool {
	for _, cb := range t.callbacks {
		if s, ok := cb.(Stopper); ok && s.ShouldStop() {
			return true
		}
	}
	return false
}
