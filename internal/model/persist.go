package model

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/FlavioCFOliveira/GoImplicit/internal/transition"
)

// Config holds what is needed to rebuild a model's shape.
type Config struct {
	N, P, Q  int // P is the raw input width, without the bias feature
	Kind     string
	Rank     int
	Diag     bool
	Bias     bool
	NoD      bool
	ClipDiag bool
}

// Config returns the construction parameters of m.
func (m *Model) Config() Config {
	return Config{
		N:        m.n,
		P:        m.rawP,
		Q:        m.q,
		Kind:     m.cfg.kind.String(),
		Rank:     m.cfg.rank,
		Diag:     m.cfg.diag,
		Bias:     m.cfg.bias,
		NoD:      m.cfg.noD,
		ClipDiag: m.cfg.clipDiag,
	}
}

// Options returns the options that rebuild a model with this configuration.
func (c Config) Options() ([]Option, error) {
	kind, err := transition.ParseKind(c.Kind)
	if err != nil {
		return nil, err
	}
	var opts []Option
	switch kind {
	case transition.KindLowRank:
		opts = append(opts, WithLowRank(c.Rank))
	case transition.KindLowRankDiag:
		opts = append(opts, WithLowRankDiag(c.Rank, c.Diag))
	}
	if c.Bias {
		opts = append(opts, WithBias())
	}
	if c.NoD {
		opts = append(opts, WithoutD())
	}
	if c.ClipDiag {
		opts = append(opts, WithDiagClipping())
	}
	return opts, nil
}

// Encode writes the configuration and parameters of m using gob encoding.
// The solver is not saved.
func (m *Model) Encode(w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(m.Config()); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := encoder.Encode(m.Params()); err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	return nil
}

// Decode reads a model written by Encode. opts are applied after the stored
// configuration, typically to supply a solver.
func Decode(r io.Reader, opts ...Option) (*Model, error) {
	decoder := gob.NewDecoder(r)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var params []float64
	if err := decoder.Decode(&params); err != nil {
		return nil, fmt.Errorf("failed to read parameters: %w", err)
	}

	base, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	m, err := New(cfg.N, cfg.P, cfg.Q, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	if len(params) != m.NumParams() {
		return nil, fmt.Errorf("model: stored %d parameters, configuration needs %d", len(params), m.NumParams())
	}
	m.SetParams(params)
	return m, nil
}

// Save writes the model to a file.
func (m *Model) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return m.Encode(file)
}

// Load reads a model from a file written by Save.
func Load(filename string, opts ...Option) (*Model, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file, opts...)
}
