package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/FlavioCFOliveira/GoImplicit/internal/model"
	"github.com/FlavioCFOliveira/GoImplicit/internal/transition"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{"-n", "8", "-scheme", "lowrank", "-k", "2", "-bias", "-nod"})
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.n)
	assert.Equal(t, "lowrank", cfg.scheme)
	assert.Equal(t, 2, cfg.k)
	assert.True(t, cfg.bias)
	assert.True(t, cfg.noD)

	_, err = parseFlags([]string{"-csv", "data.csv"})
	assert.Error(t, err)
}

func TestParseFlagsRejectsOutOfRange(t *testing.T) {
	for _, args := range [][]string{
		{"-wp", "1"},
		{"-wp", "1.5"},
		{"-wp", "-0.1"},
		{"-epochs", "-1"},
	} {
		assert.NotPanics(t, func() {
			_, err := parseFlags(args)
			assert.Error(t, err, "%v", args)
		})
	}

	cfg, err := parseFlags([]string{"-wp", "0.5"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.wellPosedness)
}

func TestParseColumns(t *testing.T) {
	cols, err := parseColumns("3, 1,4")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 4}, cols)

	_, err = parseColumns("1,x")
	assert.Error(t, err)
}

func TestRunSynthetic(t *testing.T) {
	dir := t.TempDir()
	cfg, err := parseFlags([]string{
		"-n", "6", "-p", "3", "-q", "2", "-k", "2", "-scheme", "lowrankdiag", "-diag",
		"-epochs", "3", "-batch", "8", "-samples", "40",
		"-csv-log", filepath.Join(dir, "log.csv"),
		"-plot", filepath.Join(dir, "loss.png"),
		"-save", filepath.Join(dir, "model.gob"),
		"-db", filepath.Join(dir, "runs.sqlite3"),
	})
	require.NoError(t, err)

	log, hook := logtest.NewNullLogger()
	require.NoError(t, run(cfg, log))

	for _, f := range []string{"log.csv", "loss.png", "model.gob", "runs.sqlite3"} {
		info, err := os.Stat(filepath.Join(dir, f))
		require.NoError(t, err, f)
		assert.Positive(t, info.Size(), f)
	}

	m, err := model.Load(filepath.Join(dir, "model.gob"))
	require.NoError(t, err)
	assert.Equal(t, transition.KindLowRankDiag, m.Transition().Kind())
	assert.Equal(t, 3, m.P())

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.InfoLevel, last.Level)
	assert.Contains(t, last.Data, "file")
}

func TestRunCSV(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "data.csv")
	data := "a,b,y\n0,1,1\n1,0,1\n1,1,2\n0,0,0\n2,1,3\n1,2,3\n"
	require.NoError(t, os.WriteFile(file, []byte(data), 0o644))

	cfg, err := parseFlags([]string{
		"-csv", file, "-labels", "2", "-header",
		"-scheme", "dense", "-wp", "0.9", "-n", "4",
		"-epochs", "2", "-batch", "0", "-opt", "sgd",
	})
	require.NoError(t, err)

	log, hook := logtest.NewNullLogger()
	require.NoError(t, run(cfg, log))
	assert.Equal(t, "done", hook.LastEntry().Message)
	assert.Contains(t, hook.LastEntry().Data, "test_loss")
}

func TestRunRejectsUnknownOptimizer(t *testing.T) {
	cfg, err := parseFlags([]string{"-samples", "10", "-opt", "rmsprop"})
	require.NoError(t, err)
	log, _ := logtest.NewNullLogger()
	assert.Error(t, run(cfg, log))
}
