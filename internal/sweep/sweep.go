// Package sweep orchestrates a parameter sweep: it samples the box around a
// base vector, persists one simulation case per sample and writes the state
// file, path manifest and submission scripts an external scheduler needs.
//
// On-disk layout:
//
//	<dir>/<Name>_<YYMMDD_HHMMSS>/
//	    sweep.json
//	    scripts/paths.txt
//	    scripts/run.sh
//	    scripts/job_submission.sh
//	    simulations/<i>/simulation.json
package sweep

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/gram/internal/fsutil"
	"github.com/banshee-data/gram/internal/model"
	"github.com/banshee-data/gram/internal/sampling"
	"github.com/banshee-data/gram/internal/scheduler"
	"github.com/banshee-data/gram/internal/security"
	"github.com/banshee-data/gram/internal/simulation"
	"github.com/banshee-data/gram/internal/timeutil"
)

const (
	// DefaultDelta is the half-width of the sampling box in log10 units.
	DefaultDelta = 0.5

	// DefaultRunCommand is the per-sample entry point run.sh execs.
	DefaultRunCommand = "gram-run"

	StateFile      = "sweep.json"
	ManifestFile   = "paths.txt"
	RunScriptFile  = "run.sh"
	scriptsDir     = "scripts"
	simulationsDir = "simulations"
	submissionBase = "job_submission"
)

// Sweep is a parameter sweep over one kinetic model family.
type Sweep struct {
	ID    string
	Name  string
	Base  []float64
	Delta []float64

	// Populated by Initialize and Build.
	Parameters        [][]float64
	SimulationOptions simulation.Options
	SimulationPaths   map[int]string
	Path              string
	ScriptsPath       string
	SimulationsPath   string
	CreatedAt         time.Time

	builder    model.Builder
	sampler    *sampling.LogSampler
	sequence   sampling.Sequence
	fs         fsutil.FileSystem
	clock      timeutil.Clock
	emitter    scheduler.Emitter
	runCommand string
	attempted  bool
}

// Option configures a Sweep.
type Option func(*Sweep)

// WithFileSystem sets the filesystem used for all persistence.
func WithFileSystem(fsys fsutil.FileSystem) Option {
	return func(s *Sweep) {
		if fsys != nil {
			s.fs = fsys
		}
	}
}

// WithClock sets the clock used for the directory timestamp.
func WithClock(c timeutil.Clock) Option {
	return func(s *Sweep) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithEmitter selects the submission script flavour.
func WithEmitter(e scheduler.Emitter) Option {
	return func(s *Sweep) {
		if e != nil {
			s.emitter = e
		}
	}
}

// WithRunCommand sets the command scripts/run.sh execs for each sample.
func WithRunCommand(cmd string) Option {
	return func(s *Sweep) { s.runCommand = cmd }
}

// WithName overrides the sweep name used as the directory prefix. The name
// is sanitized; an empty name keeps the default "<Model>Sweep".
func WithName(name string) Option {
	return func(s *Sweep) {
		if strings.TrimSpace(name) != "" {
			s.Name = security.SanitizeName(name)
		}
	}
}

// WithSequence selects the unit-cube sequence (Sobol when unset).
func WithSequence(seq sampling.Sequence) Option {
	return func(s *Sweep) { s.sequence = seq }
}

// New creates a sweep around base with half-width delta, both in log10
// units. A nil base selects the builder's default; a nil delta selects
// DefaultDelta. delta has length 1 (applied to every parameter) or len(base).
func New(builder model.Builder, base, delta []float64, opts ...Option) (*Sweep, error) {
	if builder == nil {
		return nil, fmt.Errorf("sweep: nil model builder")
	}
	if base == nil {
		base = builder.DefaultBase()
	}
	if want := len(builder.ParameterNames()); len(base) != want {
		return nil, fmt.Errorf("%w: %s base has %d entries, want %d",
			model.ErrInvalidParameters, builder.Name(), len(base), want)
	}
	if delta == nil {
		delta = []float64{DefaultDelta}
	}
	for i, d := range delta {
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("%w: delta[%d]=%g must be finite and non-negative", sampling.ErrInvalidRange, i, d)
		}
	}

	s := &Sweep{
		ID:         uuid.NewString(),
		Name:       builder.Name() + "Sweep",
		Base:       append([]float64(nil), base...),
		Delta:      append([]float64(nil), delta...),
		builder:    builder,
		fs:         fsutil.OSFileSystem{},
		clock:      timeutil.RealClock{},
		emitter:    scheduler.Bash{Parallel: 1},
		runCommand: DefaultRunCommand,
	}
	for _, opt := range opts {
		opt(s)
	}

	box, err := sampling.Around(s.Base, s.Delta)
	if err != nil {
		return nil, err
	}
	s.sampler, err = sampling.NewLogSampler(box.Low, box.High, sampling.WithSequence(s.sequence))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Builder returns the model builder.
func (s *Sweep) Builder() model.Builder { return s.builder }

// Sampler returns the log-space sampler.
func (s *Sweep) Sampler() *sampling.LogSampler { return s.sampler }

// N is the number of simulations built.
func (s *Sweep) N() int { return len(s.SimulationPaths) }

// SavePath is the location of the state file.
func (s *Sweep) SavePath() string { return filepath.Join(s.Path, StateFile) }

// ManifestPath is the location of scripts/paths.txt.
func (s *Sweep) ManifestPath() string { return filepath.Join(s.ScriptsPath, ManifestFile) }

// RunScriptPath is the location of scripts/run.sh.
func (s *Sweep) RunScriptPath() string { return filepath.Join(s.ScriptsPath, RunScriptFile) }

// SubmissionScriptPath is the location of the job submission script.
func (s *Sweep) SubmissionScriptPath() string {
	return filepath.Join(s.ScriptsPath, submissionBase+s.emitter.Extension())
}

// SchedulerName names the emitter used for the submission script.
func (s *Sweep) SchedulerName() string { return s.emitter.Name() }
