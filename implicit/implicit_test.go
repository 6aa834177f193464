package implicit_test

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/FlavioCFOliveira/GoImplicit/implicit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestEndToEnd(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m, err := implicit.New(6, 4, 2,
		implicit.WithLowRankDiag(2, true),
		implicit.WithBias(),
		implicit.WithRand(rng),
		implicit.WithSolver(implicit.NewSolver(implicit.WithActivation(implicit.Tanh))),
	)
	require.NoError(t, err)

	ds := &implicit.Dataset{}
	for i := 0; i < 32; i++ {
		x := []float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		ds.Samples = append(ds.Samples, x)
		ds.Labels = append(ds.Labels, []float64{x[0] + x[1], x[2] - x[3]})
	}

	adam := implicit.Adam(0.01)
	file := filepath.Join(t.TempDir(), "model.gob")
	tr := implicit.NewTrainer(m, implicit.MSE, adam, implicit.WithCallbacks(
		implicit.ExponentialLR(adam, 0.99),
		implicit.ModelCheckpoint(file),
	))
	history, err := tr.Fit(ds, 20, 8)
	require.NoError(t, err)
	assert.Less(t, history[len(history)-1], history[0])

	loaded, err := implicit.Load(file, implicit.WithSolver(implicit.NewSolver(implicit.WithActivation(implicit.Tanh))))
	require.NoError(t, err)
	assert.Equal(t, m.NumParams(), loaded.NumParams())
	assert.True(t, loaded.Bias())

	u := implicit.FromMatrix(mat.NewDense(3, 4, nil))
	y, err := loaded.Forward(u, nil)
	require.NoError(t, err)
	r, c := y.Dims()
	assert.Equal(t, [2]int{3, 2}, [2]int{r, c})
}

func TestFacadeErrors(t *testing.T) {
	_, err := implicit.New(0, 1, 1)
	assert.ErrorIs(t, err, implicit.ErrInvalidDimensions)

	m, err := implicit.New(2, 3, 1, implicit.WithRand(rand.New(rand.NewSource(2))))
	require.NoError(t, err)
	_, err = m.Forward(implicit.NewTensor(make([]float64, 4), 2, 2), nil)
	assert.ErrorIs(t, err, implicit.ErrShapeMismatch)
}
