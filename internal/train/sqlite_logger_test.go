package train

import (
	"database/sql"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/FlavioCFOliveira/GoImplicit/internal/loss"
	"github.com/FlavioCFOliveira/GoImplicit/internal/opt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteLoggerRecordsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.sqlite3")
	ds := linearDataset(rand.New(rand.NewSource(9)), 8)

	first := NewSQLiteLogger(path, "first")
	tr := New(newLinearModel(t), loss.MSE{}, opt.NewSGD(0.01), WithCallbacks(first))
	history, err := tr.Fit(ds, 3, 0)
	require.NoError(t, err)

	second := NewSQLiteLogger(path, "second")
	tr = New(newLinearModel(t), loss.MSE{}, opt.NewSGD(0.01), WithCallbacks(second))
	_, err = tr.Fit(ds, 2, 0)
	require.NoError(t, err)
	assert.Greater(t, second.RunID(), first.RunID())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var kind, note string
	var nParams int
	require.NoError(t, db.QueryRow(`SELECT kind, n_params, note FROM runs WHERE id = ?`, first.RunID()).
		Scan(&kind, &nParams, &note))
	assert.Equal(t, "dense", kind)
	assert.Equal(t, tr.Model().NumParams(), nParams)
	assert.Equal(t, "first", note)

	rows, err := db.Query(`SELECT epoch, loss FROM epochs WHERE run_id = ? ORDER BY epoch`, first.RunID())
	require.NoError(t, err)
	defer rows.Close()
	var got []float64
	for rows.Next() {
		var epoch int
		var l float64
		require.NoError(t, rows.Scan(&epoch, &l))
		assert.Equal(t, len(got), epoch)
		got = append(got, l)
	}
	require.NoError(t, rows.Err())
	assert.InDeltaSlice(t, history, got, 1e-12)
}
