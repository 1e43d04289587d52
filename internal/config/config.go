// Package config loads sweep configuration files. Fields are pointers so a
// partial file only overrides what it names; the Get* methods supply the
// defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/gram/internal/model"
	"github.com/banshee-data/gram/internal/sampling"
	"github.com/banshee-data/gram/internal/scheduler"
	"github.com/banshee-data/gram/internal/simulation"
)

// DefaultConfigPath is the path to the example defaults file in the repository.
const DefaultConfigPath = "config/sweep.defaults.yaml"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// SweepConfig is the root configuration for building a sweep.
type SweepConfig struct {
	Name        *string   `json:"name,omitempty" yaml:"name,omitempty"`
	Kind        *string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Base        []float64 `json:"base,omitempty" yaml:"base,omitempty"` // log10; nil selects the model default
	Delta       []float64 `json:"delta,omitempty" yaml:"delta,omitempty"`
	Samples     *int      `json:"samples,omitempty" yaml:"samples,omitempty"`
	OutputDir   *string   `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Sequence    *string   `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Seed        *uint64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	Scheduler   *string   `json:"scheduler,omitempty" yaml:"scheduler,omitempty"`
	RunCommand  *string   `json:"run_command,omitempty" yaml:"run_command,omitempty"`
	CatalogPath *string   `json:"catalog_path,omitempty" yaml:"catalog_path,omitempty"`
	Parallel    *int      `json:"parallel,omitempty" yaml:"parallel,omitempty"`

	Moab       *scheduler.MoabOptions `json:"moab,omitempty" yaml:"moab,omitempty"`
	Simulation *simulation.Options    `json:"simulation,omitempty" yaml:"simulation,omitempty"`
}

// Helper functions to create pointers
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrUint64(v uint64) *uint64 { return &v }

// EmptySweepConfig returns a SweepConfig with all fields unset.
func EmptySweepConfig() *SweepConfig {
	return &SweepConfig{}
}

// DefaultSweepConfig returns a SweepConfig with every scalar field set to
// its default.
func DefaultSweepConfig() *SweepConfig {
	moab := scheduler.DefaultMoabOptions()
	return &SweepConfig{
		Kind:        ptrString(string(model.KindLinear)),
		Delta:       []float64{0.5},
		Samples:     ptrInt(16),
		OutputDir:   ptrString("."),
		Sequence:    ptrString(sampling.SequenceSobol),
		Seed:        ptrUint64(0),
		Scheduler:   ptrString("bash"),
		RunCommand:  ptrString("gram-run"),
		CatalogPath: ptrString(""),
		Parallel:    ptrInt(1),
		Moab:        &moab,
		Simulation:  &simulation.Options{},
	}
}

// LoadSweepConfig loads a SweepConfig from a .json, .yaml or .yml file.
// Fields omitted from the file keep their defaults, so partial configs are
// safe.
func LoadSweepConfig(path string) (*SweepConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySweepConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *SweepConfig) Validate() error {
	if c.Kind != nil {
		if _, err := model.ParseKind(*c.Kind); err != nil {
			return err
		}
	}
	for i, v := range c.Base {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("base[%d] must be finite", i)
		}
	}
	for i, v := range c.Delta {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("delta[%d] must be finite and non-negative, got %g", i, v)
		}
	}
	if len(c.Base) > 0 && len(c.Delta) > 1 && len(c.Delta) != len(c.Base) {
		return fmt.Errorf("delta has %d entries, want 1 or %d", len(c.Delta), len(c.Base))
	}
	if c.Samples != nil && *c.Samples < 1 {
		return fmt.Errorf("samples must be at least 1, got %d", *c.Samples)
	}
	if c.Sequence != nil && *c.Sequence != "" {
		if _, err := sampling.NewSequence(*c.Sequence, 0); err != nil {
			return err
		}
	}
	if c.Scheduler != nil && *c.Scheduler != "" {
		if _, err := scheduler.Lookup(*c.Scheduler); err != nil {
			return err
		}
	}
	if c.RunCommand != nil && strings.TrimSpace(*c.RunCommand) == "" {
		return fmt.Errorf("run_command must not be empty")
	}
	if c.Parallel != nil && *c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", *c.Parallel)
	}
	if c.Simulation != nil {
		if err := c.Simulation.Validate(); err != nil {
			return fmt.Errorf("simulation: %w", err)
		}
	}
	return nil
}

// GetName returns the sweep name override; empty keeps the model default.
func (c *SweepConfig) GetName() string {
	if c.Name == nil {
		return ""
	}
	return *c.Name
}

// GetKind returns the model kind or the default.
func (c *SweepConfig) GetKind() model.Kind {
	if c.Kind == nil {
		return model.KindLinear
	}
	k, err := model.ParseKind(*c.Kind)
	if err != nil {
		return model.KindLinear
	}
	return k
}

// GetBase returns the configured base vector, or nil for the model default.
func (c *SweepConfig) GetBase() []float64 {
	return append([]float64(nil), c.Base...)
}

// GetDelta returns the configured delta or the scalar default.
func (c *SweepConfig) GetDelta() []float64 {
	if len(c.Delta) == 0 {
		return []float64{0.5}
	}
	return append([]float64(nil), c.Delta...)
}

// GetSamples returns the number of samples or the default.
func (c *SweepConfig) GetSamples() int {
	if c.Samples == nil {
		return 16
	}
	return *c.Samples
}

// GetOutputDir returns the output directory or the default.
func (c *SweepConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "."
	}
	return *c.OutputDir
}

// GetSequence returns the unit-cube sequence name or the default.
func (c *SweepConfig) GetSequence() string {
	if c.Sequence == nil || *c.Sequence == "" {
		return sampling.SequenceSobol
	}
	return *c.Sequence
}

// GetSeed returns the scrambling seed or the default.
func (c *SweepConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}

// GetScheduler returns the scheduler name or the default.
func (c *SweepConfig) GetScheduler() string {
	if c.Scheduler == nil || *c.Scheduler == "" {
		return "bash"
	}
	return *c.Scheduler
}

// GetRunCommand returns the per-sample run command or the default.
func (c *SweepConfig) GetRunCommand() string {
	if c.RunCommand == nil || strings.TrimSpace(*c.RunCommand) == "" {
		return "gram-run"
	}
	return *c.RunCommand
}

// GetCatalogPath returns the catalog database path; empty disables the catalog.
func (c *SweepConfig) GetCatalogPath() string {
	if c.CatalogPath == nil {
		return ""
	}
	return *c.CatalogPath
}

// GetParallel returns the local job parallelism or the default.
func (c *SweepConfig) GetParallel() int {
	if c.Parallel == nil {
		return 1
	}
	return *c.Parallel
}

// GetMoab returns the moab directives, filling unset fields from the defaults.
func (c *SweepConfig) GetMoab() scheduler.MoabOptions {
	def := scheduler.DefaultMoabOptions()
	if c.Moab == nil {
		return def
	}
	o := *c.Moab
	if o.Queue == "" {
		o.Queue = def.Queue
	}
	if o.Walltime == "" {
		o.Walltime = def.Walltime
	}
	if o.Nodes == 0 {
		o.Nodes = def.Nodes
	}
	if o.PPN == 0 {
		o.PPN = def.PPN
	}
	if o.Memory == "" {
		o.Memory = def.Memory
	}
	return o
}

// GetSimulation returns the simulation options forwarded to every case.
func (c *SweepConfig) GetSimulation() simulation.Options {
	if c.Simulation == nil {
		return simulation.Options{}
	}
	return *c.Simulation
}

// Emitter builds the configured submission-script emitter.
func (c *SweepConfig) Emitter() (scheduler.Emitter, error) {
	e, err := scheduler.Lookup(c.GetScheduler())
	if err != nil {
		return nil, err
	}
	switch e.(type) {
	case scheduler.Bash:
		return scheduler.Bash{Parallel: c.GetParallel()}, nil
	case scheduler.Moab:
		return scheduler.Moab{Options: c.GetMoab()}, nil
	}
	return e, nil
}

// BuildSequence builds the configured unit-cube sequence.
func (c *SweepConfig) BuildSequence() (sampling.Sequence, error) {
	return sampling.NewSequence(c.GetSequence(), c.GetSeed())
}
