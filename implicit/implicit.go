// Package implicit is the public entry point for building, training and
// persisting implicit recurrent models.
package implicit

import (
	"math/rand"

	"github.com/FlavioCFOliveira/GoImplicit/internal/activations"
	"github.com/FlavioCFOliveira/GoImplicit/internal/loss"
	"github.com/FlavioCFOliveira/GoImplicit/internal/model"
	"github.com/FlavioCFOliveira/GoImplicit/internal/opt"
	"github.com/FlavioCFOliveira/GoImplicit/internal/shape"
	"github.com/FlavioCFOliveira/GoImplicit/internal/solver"
	"github.com/FlavioCFOliveira/GoImplicit/internal/train"
	"gonum.org/v1/gonum/mat"
)

// Re-export common types and functions for easier access
type (
	Model         = model.Model
	Option        = model.Option
	Tensor        = shape.Tensor
	Solver        = solver.Solver
	SolverOption  = solver.Option
	Activation    = activations.Activation
	Loss          = loss.Loss
	Optimizer     = opt.Optimizer
	Scheduler     = opt.Scheduler
	Trainer       = train.Trainer
	TrainerOption = train.Option
	Callback      = train.Callback
	Dataset       = train.Dataset
)

// Errors
var (
	ErrShapeMismatch     = shape.ErrShapeMismatch
	ErrConvergence       = solver.ErrConvergence
	ErrInvalidDimensions = model.ErrInvalidDimensions
	ErrEmptyDataset      = train.ErrEmptyDataset
)

// New builds a model with hidden width n, raw input width p and output
// width q.
func New(n, p, q int, opts ...Option) (*Model, error) {
	return model.New(n, p, q, opts...)
}

// Load reads a model saved with Model.Save.
func Load(filename string, opts ...Option) (*Model, error) {
	return model.Load(filename, opts...)
}

// Model options
func WithLowRank(k int) Option                { return model.WithLowRank(k) }
func WithLowRankDiag(k int, diag bool) Option { return model.WithLowRankDiag(k, diag) }
func WithBias() Option                        { return model.WithBias() }
func WithoutD() Option                        { return model.WithoutD() }
func WithDiagClipping() Option                { return model.WithDiagClipping() }
func WithSolver(s Solver) Option              { return model.WithSolver(s) }
func WithRand(rng *rand.Rand) Option          { return model.WithRand(rng) }

// Inputs
func NewTensor(data []float64, dims ...int) *Tensor { return shape.NewTensor(data, dims...) }
func FromMatrix(m mat.Matrix) *Tensor               { return shape.FromMatrix(m) }
func FromSequences(seqs []mat.Matrix) *Tensor       { return shape.FromSequences(seqs) }

// Solver
func NewSolver(opts ...SolverOption) Solver { return solver.New(opts...) }

var (
	WithTolerance     = solver.WithTolerance
	WithMaxIterations = solver.WithMaxIterations
	WithActivation    = solver.WithActivation
	WithWellPosedness = solver.WithWellPosedness
	WithSolverLogger  = solver.WithLogger
)

// Activations
var (
	ReLU    = activations.ReLU{}
	Sigmoid = activations.Sigmoid{}
	Tanh    = activations.Tanh{}
	Linear  = activations.Linear{}
)

func LeakyReLU(alpha float64) Activation {
	return activations.NewLeakyReLU(alpha)
}

// Losses
var (
	MSE                 = loss.MSE{}
	SoftmaxCrossEntropy = loss.SoftmaxCrossEntropy{}
)

func Huber(delta float64) Loss {
	return loss.NewHuber(delta)
}

// Optimizers
func SGD(lr float64) Optimizer {
	return opt.NewSGD(lr)
}

func Adam(lr float64) Optimizer {
	return opt.NewAdam(lr)
}

// Training
func NewTrainer(m *Model, l Loss, o Optimizer, opts ...TrainerOption) *Trainer {
	return train.New(m, l, o, opts...)
}

func LoadCSV(filename string, labelCols []int, hasHeader bool) (*Dataset, error) {
	return train.LoadCSV(filename, labelCols, hasHeader)
}

var (
	WithCallbacks = train.WithCallbacks
	WithLogger    = train.WithLogger
	WithShuffle   = train.WithShuffle
)

// Callbacks
func EarlyStopping(patience int, threshold float64) Callback {
	return train.NewEarlyStopping(patience, threshold)
}

func ModelCheckpoint(filename string) Callback {
	return train.NewModelCheckpoint(filename)
}

func CSVLogger(filename string, append bool) Callback {
	return train.NewCSVLogger(filename, append)
}

func SQLiteLogger(path, note string) Callback {
	return train.NewSQLiteLogger(path, note)
}

func LogEvery(interval int) Callback {
	return train.Logger{Interval: interval}
}

func StepLR(o Optimizer, stepSize int, gamma float64) Callback {
	return train.NewSchedulerCallback(opt.NewStepLR(o, stepSize, gamma))
}

func ExponentialLR(o Optimizer, gamma float64) Callback {
	return train.NewSchedulerCallback(opt.NewExponentialLR(o, gamma))
}

func ReduceLROnPlateau(o Optimizer, factor float64, patience int, threshold, minLR float64) Callback {
	return train.NewSchedulerCallback(opt.NewReduceLROnPlateau(o, factor, patience, threshold, minLR))
}
