package sweep

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/banshee-data/gram/internal/fsutil"
	"github.com/banshee-data/gram/internal/model"
	"github.com/banshee-data/gram/internal/sampling"
	"github.com/banshee-data/gram/internal/scheduler"
	"github.com/banshee-data/gram/internal/security"
	"github.com/banshee-data/gram/internal/simulation"
	"github.com/banshee-data/gram/internal/timeutil"
	"github.com/banshee-data/gram/internal/version"
)

// StateVersion is the schema version written to sweep.json. Load rejects any
// other version.
const StateVersion = 1

// State is the persisted form of a Sweep.
type State struct {
	Version     int    `json:"version"`
	GeneratedBy string `json:"generated_by"`

	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Kind  model.Kind `json:"kind"`
	Base  []float64  `json:"base"`
	Delta []float64  `json:"delta"`

	Sampler sampling.State `json:"sampler"`

	Parameters        [][]float64        `json:"parameters,omitempty"`
	SimulationOptions simulation.Options `json:"simulation_options"`
	SimulationPaths   map[int]string     `json:"simulation_paths,omitempty"`

	Path            string    `json:"path"`
	ScriptsPath     string    `json:"scripts_path"`
	SimulationsPath string    `json:"simulations_path"`
	CreatedAt       time.Time `json:"created_at"`
	Scheduler       string    `json:"scheduler"`
	RunCommand      string    `json:"run_command"`
}

// ParameterNames returns the parameter names of the sweep's model kind, or
// nil if the kind is not registered.
func (st State) ParameterNames() []string {
	b, err := model.Lookup(st.Kind)
	if err != nil {
		return nil
	}
	return b.ParameterNames()
}

// State snapshots the sweep into its persisted form.
func (s *Sweep) State() State {
	st := State{
		Version:           StateVersion,
		GeneratedBy:       version.String(),
		ID:                s.ID,
		Name:              s.Name,
		Kind:              s.builder.Kind(),
		Base:              append([]float64(nil), s.Base...),
		Delta:             append([]float64(nil), s.Delta...),
		Sampler:           s.sampler.State(),
		SimulationOptions: s.SimulationOptions,
		Path:              s.Path,
		ScriptsPath:       s.ScriptsPath,
		SimulationsPath:   s.SimulationsPath,
		CreatedAt:         s.CreatedAt,
		Scheduler:         s.emitter.Name(),
		RunCommand:        s.runCommand,
	}
	if s.Parameters != nil {
		st.Parameters = make([][]float64, len(s.Parameters))
		for i, row := range s.Parameters {
			st.Parameters[i] = append([]float64(nil), row...)
		}
	}
	if s.SimulationPaths != nil {
		st.SimulationPaths = make(map[int]string, len(s.SimulationPaths))
		for k, v := range s.SimulationPaths {
			st.SimulationPaths[k] = v
		}
	}
	return st
}

// Save writes the sweep state to SavePath.
func (s *Sweep) Save() error {
	if s.Path == "" {
		return ErrNotInitialized
	}
	data, err := json.MarshalIndent(s.State(), "", "  ")
	if err != nil {
		return fmt.Errorf("sweep: encode state: %w", err)
	}
	if err := s.fs.WriteFile(s.SavePath(), data, 0644); err != nil {
		return fmt.Errorf("sweep: write state: %w", err)
	}
	return nil
}

// Load restores a sweep from path, which may be the sweep directory or its
// state file. A nil fsys uses the OS filesystem. Any failure to read, parse
// or reconstruct the state is reported as ErrNotFound.
func Load(fsys fsutil.FileSystem, path string) (*Sweep, error) {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if info, err := fsys.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, StateFile)
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	}
	s, err := FromState(st)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	}
	s.fs = fsys
	return s, nil
}

// FromState reconstructs a Sweep from a persisted state record.
func FromState(st State) (*Sweep, error) {
	if st.Version != StateVersion {
		return nil, fmt.Errorf("unsupported state version %d (want %d)", st.Version, StateVersion)
	}
	builder, err := model.Lookup(st.Kind)
	if err != nil {
		return nil, err
	}
	sampler, err := sampling.FromState(st.Sampler)
	if err != nil {
		return nil, err
	}
	emitter, err := scheduler.Lookup(st.Scheduler)
	if err != nil {
		return nil, err
	}
	if err := checkSamples(st, len(builder.ParameterNames())); err != nil {
		return nil, err
	}
	if err := checkLayout(st); err != nil {
		return nil, err
	}

	s := &Sweep{
		ID:                st.ID,
		Name:              st.Name,
		Base:              st.Base,
		Delta:             st.Delta,
		Parameters:        st.Parameters,
		SimulationOptions: st.SimulationOptions,
		SimulationPaths:   st.SimulationPaths,
		Path:              st.Path,
		ScriptsPath:       st.ScriptsPath,
		SimulationsPath:   st.SimulationsPath,
		CreatedAt:         st.CreatedAt,
		builder:           builder,
		sampler:           sampler,
		fs:                fsutil.OSFileSystem{},
		clock:             timeutil.RealClock{},
		emitter:           emitter,
		runCommand:        st.RunCommand,
		attempted:         len(st.SimulationPaths) > 0,
	}
	return s, nil
}

// checkLayout rejects state whose script and simulation paths point outside
// the sweep directory. Unbuilt state has no paths and passes.
func checkLayout(st State) error {
	if st.Path == "" {
		if len(st.SimulationPaths) > 0 {
			return fmt.Errorf("state has %d simulation paths but no sweep path", len(st.SimulationPaths))
		}
		return nil
	}
	for _, p := range []string{st.ScriptsPath, st.SimulationsPath} {
		if err := security.Within(p, st.Path); err != nil {
			return err
		}
	}
	for i, p := range st.SimulationPaths {
		if err := security.Within(p, st.SimulationsPath); err != nil {
			return fmt.Errorf("simulation %d: %w", i, err)
		}
	}
	return nil
}

// checkSamples rejects state whose sampling box does not follow from base
// and delta, or whose parameter rows and simulation paths disagree.
func checkSamples(st State, dim int) error {
	if len(st.Base) != dim {
		return fmt.Errorf("base has %d entries, %s takes %d", len(st.Base), st.Kind, dim)
	}
	box, err := sampling.Around(st.Base, st.Delta)
	if err != nil {
		return err
	}
	if !slices.Equal(box.Low, st.Sampler.Low) || !slices.Equal(box.High, st.Sampler.High) {
		return errors.New("sampler bounds do not match base and delta")
	}

	n := len(st.Parameters)
	if len(st.SimulationPaths) != n {
		return fmt.Errorf("%d parameter rows but %d simulation paths", n, len(st.SimulationPaths))
	}
	for i, row := range st.Parameters {
		if len(row) != dim {
			return fmt.Errorf("parameter row %d has %d entries, want %d", i, len(row), dim)
		}
		if _, ok := st.SimulationPaths[i]; !ok {
			return fmt.Errorf("no simulation path for sample %d", i)
		}
	}
	return nil
}
