package train

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/FlavioCFOliveira/GoImplicit/internal/shape"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptyDataset is returned when training is asked to run on no samples.
	ErrEmptyDataset = errors.New("train: dataset is empty")

	// ErrEpochs is returned for a negative epoch count.
	ErrEpochs = errors.New("train: epochs must not be negative")
)

// Dataset represents a collection of samples and labels. Each sample is one
// flattened input row; each label is one target row.
type Dataset struct {
	Samples [][]float64
	Labels  [][]float64
}

// Batch is one minibatch ready for the model: U is an (m, p) tensor and Y the
// (m, q) target.
type Batch struct {
	U *shape.Tensor
	Y *mat.Dense
}

// LoadCSV loads data from a CSV file.
// labelCols specifies the indices of columns to be used as labels.
// All other columns are used as features.
// hasHeader skips the first line if true.
func LoadCSV(filename string, labelCols []int, hasHeader bool) (*Dataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("train: open %s: %w", filename, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("train: read csv: %w", err)
	}

	startRow := 0
	if hasHeader {
		startRow = 1
	}
	if len(records) <= startRow {
		return nil, fmt.Errorf("%w: %s has no data rows", ErrEmptyDataset, filename)
	}

	if len(labelCols) == 0 {
		return nil, errors.New("train: at least one label column is required")
	}

	numCols := len(records[0])
	isLabelCol := make(map[int]bool, len(labelCols))
	for _, col := range labelCols {
		if col < 0 || col >= numCols {
			return nil, fmt.Errorf("train: label column %d out of range [0,%d)", col, numCols)
		}
		isLabelCol[col] = true
	}

	numSamples := len(records) - startRow
	ds := &Dataset{
		Samples: make([][]float64, numSamples),
		Labels:  make([][]float64, numSamples),
	}

	for i := startRow; i < len(records); i++ {
		record := records[i]
		if len(record) != numCols {
			return nil, fmt.Errorf("train: inconsistent number of columns at row %d", i)
		}

		sample := make([]float64, 0, numCols-len(isLabelCol))
		values := make([]float64, numCols)
		for j, s := range record {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("train: parse row %d col %d: %w", i, j, err)
			}
			values[j] = v
			if !isLabelCol[j] {
				sample = append(sample, v)
			}
		}

		// labels keep the order given in labelCols
		label := make([]float64, len(labelCols))
		for k, col := range labelCols {
			label[k] = values[col]
		}

		ds.Samples[i-startRow] = sample
		ds.Labels[i-startRow] = label
	}
	return ds, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Samples) }

// Normalize performs min-max normalization on the samples. Constant
// features become zero.
func (d *Dataset) Normalize() {
	if len(d.Samples) == 0 {
		return
	}

	numFeatures := len(d.Samples[0])
	lo := append([]float64(nil), d.Samples[0]...)
	hi := append([]float64(nil), d.Samples[0]...)
	for _, sample := range d.Samples {
		for i, v := range sample {
			lo[i] = min(lo[i], v)
			hi[i] = max(hi[i], v)
		}
	}

	for _, sample := range d.Samples {
		for i := 0; i < numFeatures; i++ {
			if diff := hi[i] - lo[i]; diff != 0 {
				sample[i] = (sample[i] - lo[i]) / diff
			} else {
				sample[i] = 0
			}
		}
	}
}

// Split splits the dataset into two based on the given ratio (0.0 to 1.0).
// Returns two new Datasets (train, test) sharing the underlying rows.
func (d *Dataset) Split(ratio float64) (*Dataset, *Dataset) {
	if ratio <= 0 {
		return &Dataset{}, d
	}
	if ratio >= 1 {
		return d, &Dataset{}
	}

	splitIdx := int(float64(len(d.Samples)) * ratio)
	train := &Dataset{Samples: d.Samples[:splitIdx], Labels: d.Labels[:splitIdx]}
	test := &Dataset{Samples: d.Samples[splitIdx:], Labels: d.Labels[splitIdx:]}
	return train, test
}

// Shuffle permutes samples and labels together.
func (d *Dataset) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.Samples), func(i, j int) {
		d.Samples[i], d.Samples[j] = d.Samples[j], d.Samples[i]
		d.Labels[i], d.Labels[j] = d.Labels[j], d.Labels[i]
	})
}

// Batches cuts the dataset into consecutive minibatches of at most size
// rows. A non-positive size yields a single batch.
func (d *Dataset) Batches(size int) []Batch {
	n := len(d.Samples)
	if n == 0 {
		return nil
	}
	if size <= 0 || size > n {
		size = n
	}

	batches := make([]Batch, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		batches = append(batches, Batch{
			U: shape.FromMatrix(rows(d.Samples[start:end])),
			Y: rows(d.Labels[start:end]),
		})
	}
	return batches
}

func rows(data [][]float64) *mat.Dense {
	c := len(data[0])
	flat := make([]float64, 0, len(data)*c)
	for _, r := range data {
		flat = append(flat, r...)
	}
	return mat.NewDense(len(data), c, flat)
}
