package train

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started REAL NOT NULL,
	kind TEXT NOT NULL,
	n_params INTEGER NOT NULL,
	note TEXT
);
CREATE TABLE IF NOT EXISTS epochs(
	run_id INTEGER NOT NULL REFERENCES runs(id),
	epoch INTEGER NOT NULL,
	loss REAL NOT NULL,
	lr REAL NOT NULL,
	seconds REAL NOT NULL,
	PRIMARY KEY(run_id, epoch)
);`

// SQLiteLogger records every training run and its per-epoch metrics in a
// SQLite database. Several runs can share one file.
type SQLiteLogger struct {
	BaseCallback
	Path string
	Note string

	db    *sql.DB
	runID int64
	start time.Time
}

// NewSQLiteLogger creates a logger writing to the database at path.
func NewSQLiteLogger(path, note string) *SQLiteLogger {
	return &SQLiteLogger{Path: path, Note: note}
}

// RunID returns the id of the current or last run, or 0 before training.
func (c *SQLiteLogger) RunID() int64 { return c.runID }

func (c *SQLiteLogger) open(t *Trainer) error {
	db, err := sql.Open("sqlite", c.Path)
	if err != nil {
		return err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return fmt.Errorf("create schema: %w", err)
	}
	res, err := db.Exec(`INSERT INTO runs(started, kind, n_params, note) VALUES(?,?,?,?)`,
		float64(time.Now().UnixNano())/1e9, t.model.Transition().Kind().String(), t.model.NumParams(), c.Note)
	if err != nil {
		db.Close()
		return fmt.Errorf("insert run: %w", err)
	}
	if c.runID, err = res.LastInsertId(); err != nil {
		db.Close()
		return err
	}
	c.db = db
	return nil
}

func (c *SQLiteLogger) OnTrainBegin(t *Trainer) {
	c.start = time.Now()
	if err := c.open(t); err != nil {
		t.log.WithError(err).WithField("db", c.Path).Error("sqlite logger: open failed")
	}
}

func (c *SQLiteLogger) OnEpochEnd(epoch int, loss float64, t *Trainer) {
	if c.db == nil {
		return
	}
	_, err := c.db.Exec(`INSERT INTO epochs(run_id, epoch, loss, lr, seconds) VALUES(?,?,?,?,?)`,
		c.runID, epoch, loss, t.opt.LearningRate(), time.Since(c.start).Seconds())
	if err != nil {
		t.log.WithError(err).WithField("epoch", epoch).Error("sqlite logger: insert failed")
	}
}

func (c *SQLiteLogger) OnTrainEnd(t *Trainer) {
	if c.db == nil {
		return
	}
	if err := c.db.Close(); err != nil {
		t.log.WithError(err).Error("sqlite logger: close failed")
	}
	c.db = nil
}
