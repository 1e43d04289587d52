// Package simulation wraps a configured model into a persisted simulation
// case and provides the per-sample run entry point. The stochastic engine
// itself is an external program reached through Engine.
package simulation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/banshee-data/gram/internal/fsutil"
	"github.com/banshee-data/gram/internal/model"
)

const (
	// CaseFile is the case file name inside a simulation directory.
	CaseFile = "simulation.json"
	// ResultFile records the outcome of a run.
	ResultFile = "result.json"
)

var (
	// ErrCaseNotFound indicates a missing or unreadable simulation case.
	ErrCaseNotFound = errors.New("simulation: case not found")

	// ErrInvalidCase indicates a case that cannot be constructed.
	ErrInvalidCase = errors.New("simulation: invalid case")
)

// Options is the configuration forwarded to every simulation case of a
// sweep. Zero values mean "engine default".
type Options struct {
	Trajectories  int               `json:"trajectories,omitempty" yaml:"trajectories,omitempty"`
	Duration      float64           `json:"duration,omitempty" yaml:"duration,omitempty"`
	Interval      float64           `json:"interval,omitempty" yaml:"interval,omitempty"`
	UseDeviations bool              `json:"use_deviations,omitempty" yaml:"use_deviations,omitempty"`
	SaveAll       bool              `json:"save_all,omitempty" yaml:"save_all,omitempty"`
	Extra         map[string]string `json:"extra" yaml:"extra,omitempty"`
}

// Validate rejects negative durations and counts.
func (o Options) Validate() error {
	if o.Trajectories < 0 {
		return fmt.Errorf("trajectories must be non-negative, got %d", o.Trajectories)
	}
	if o.Duration < 0 {
		return fmt.Errorf("duration must be non-negative, got %g", o.Duration)
	}
	if o.Interval < 0 {
		return fmt.Errorf("interval must be non-negative, got %g", o.Interval)
	}
	return nil
}

// Case is one simulation: a model plus its options.
type Case struct {
	Model      *model.Model `json:"model"`
	Options    Options      `json:"options"`
	Parameters []float64    `json:"parameters,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// New validates the model and options and returns a case.
func New(m *model.Model, opts Options) (*Case, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCase, err)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCase, err)
	}
	return &Case{Model: m, Options: opts}, nil
}

// Save writes the case to dir/CaseFile. dir must already exist.
func (c *Case) Save(fsys fsutil.FileSystem, dir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode simulation case: %w", err)
	}
	path := filepath.Join(dir, CaseFile)
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Load reads the case stored in dir.
func Load(fsys fsutil.FileSystem, dir string) (*Case, error) {
	path := filepath.Join(dir, CaseFile)
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrCaseNotFound, err)
	}
	var c Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrCaseNotFound, path, err)
	}
	if err := c.Model.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCaseNotFound, path, err)
	}
	return &c, nil
}
