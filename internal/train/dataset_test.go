package train

import (
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func writeCSV(t *testing.T, records [][]string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "data.csv")
	file, err := os.Create(filename)
	require.NoError(t, err)
	w := csv.NewWriter(file)
	require.NoError(t, w.WriteAll(records))
	require.NoError(t, file.Close())
	return filename
}

func TestLoadCSV(t *testing.T) {
	filename := writeCSV(t, [][]string{
		{"f1", "f2", "l1", "f3", "l2"},
		{"1.0", "2.0", "0.0", "3.0", "1.0"},
		{"4.0", "5.0", "1.0", "6.0", "0.0"},
	})

	// labels follow the order of labelCols
	ds, err := LoadCSV(filename, []int{4, 2}, true)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, ds.Samples)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, ds.Labels)
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		records [][]string
		labels  []int
		header  bool
	}{
		{"header only", [][]string{{"a", "b"}}, []int{1}, true},
		{"ragged", [][]string{{"1", "2"}, {"1"}}, []int{1}, false},
		{"not a number", [][]string{{"1", "x"}}, []int{1}, false},
		{"label out of range", [][]string{{"1", "2"}}, []int{2}, false},
		{"no labels", [][]string{{"1", "2"}}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filename := writeCSV(t, tt.records)
			_, err := LoadCSV(filename, tt.labels, tt.header)
			assert.Error(t, err)
		})
	}

	_, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), []int{0}, false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCSVHeaderOnlyIsEmpty(t *testing.T) {
	filename := writeCSV(t, [][]string{{"a", "b"}})
	_, err := LoadCSV(filename, []int{1}, true)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestDatasetNormalization(t *testing.T) {
	ds := &Dataset{Samples: [][]float64{{10, 0, 7}, {20, 5, 7}, {30, 10, 7}}}
	ds.Normalize()
	assert.Equal(t, [][]float64{{0, 0, 0}, {0.5, 0.5, 0}, {1, 1, 0}}, ds.Samples)
}

func TestDatasetSplit(t *testing.T) {
	ds := linearDataset(rand.New(rand.NewSource(1)), 10)

	train, test := ds.Split(0.8)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, test.Len())
	assert.Equal(t, ds.Samples[8], test.Samples[0])

	all, none := ds.Split(1)
	assert.Same(t, ds, all)
	assert.Equal(t, 0, none.Len())
}

func TestDatasetShuffleKeepsPairs(t *testing.T) {
	ds := linearDataset(rand.New(rand.NewSource(2)), 20)
	ds.Shuffle(rand.New(rand.NewSource(3)))
	for i, x := range ds.Samples {
		assert.InDelta(t, 0.5*x[0]-x[1]+0.25*x[2], ds.Labels[i][0], 1e-12)
	}
}

func TestDatasetBatches(t *testing.T) {
	ds := &Dataset{
		Samples: [][]float64{{1, 2}, {3, 4}, {5, 6}},
		Labels:  [][]float64{{1}, {2}, {3}},
	}

	batches := ds.Batches(2)
	require.Len(t, batches, 2)
	assert.Equal(t, []int{2, 2}, batches[0].U.Dims)
	assert.Equal(t, []float64{1, 2, 3, 4}, batches[0].U.Data)
	assert.True(t, mat.Equal(mat.NewDense(1, 1, []float64{3}), batches[1].Y))

	assert.Len(t, ds.Batches(0), 1)
	assert.Len(t, ds.Batches(10), 1)
	assert.Nil(t, (&Dataset{}).Batches(4))
}

func TestCSVLogger(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "log.csv")
	tr := New(nil, nil, nil)
	tr.opt = fixedLR(0.5)

	logger := NewCSVLogger(filename, false)
	logger.OnTrainBegin(tr)
	logger.OnEpochEnd(0, 0.5, tr)
	logger.OnEpochEnd(1, 0.4, tr)
	logger.OnTrainEnd(tr)

	// appending keeps the header single
	logger = NewCSVLogger(filename, true)
	logger.OnTrainBegin(tr)
	logger.OnEpochEnd(2, 0.3, tr)
	logger.OnTrainEnd(tr)

	file, err := os.Open(filename)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 4)
	assert.Equal(t, []string{"epoch", "loss", "lr", "time_seconds"}, records[0])
	assert.Equal(t, []string{"0", "0.500000", "0.5"}, records[1][:3])
	assert.Equal(t, "2", records[3][0])
}

type fixedLR float64

func (f fixedLR) Step(p, g []float64) []float64 { return p }
func (f fixedLR) StepInPlace(p, g []float64)    {}
func (f fixedLR) LearningRate() float64         { return float64(f) }
func (f fixedLR) SetLearningRate(float64)       {}
