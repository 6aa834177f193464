package train

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSVLogger writes one row per epoch (epoch, loss, learning rate, elapsed
// seconds) to a CSV file.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool

	file   *os.File
	writer *csv.Writer
	start  time.Time
}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
	}
}

func (c *CSVLogger) OnTrainBegin(t *Trainer) {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0o644)
	if err != nil {
		t.log.WithError(err).WithField("file", c.Filename).Error("csv logger: open failed")
		return
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()

	// header only for fresh files
	if info, err := file.Stat(); err == nil && info.Size() == 0 {
		c.write(t, []string{"epoch", "loss", "lr", "time_seconds"})
	}
}

func (c *CSVLogger) OnEpochEnd(epoch int, loss float64, t *Trainer) {
	if c.writer == nil {
		return
	}
	c.write(t, []string{
		strconv.Itoa(epoch),
		strconv.FormatFloat(loss, 'f', 6, 64),
		strconv.FormatFloat(t.opt.LearningRate(), 'g', -1, 64),
		strconv.FormatFloat(time.Since(c.start).Seconds(), 'f', 2, 64),
	})
}

func (c *CSVLogger) OnTrainEnd(t *Trainer) {
	if c.file == nil {
		return
	}
	c.writer.Flush()
	if err := c.file.Close(); err != nil {
		t.log.WithError(err).WithField("file", c.Filename).Error("csv logger: close failed")
	}
	c.file = nil
	c.writer = nil
}

func (c *CSVLogger) write(t *Trainer, record []string) {
	if err := c.writer.Write(record); err != nil {
		t.log.WithError(err).Error("csv logger: write failed")
		return
	}
	c.writer.Flush()
}
