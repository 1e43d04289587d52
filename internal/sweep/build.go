package sweep

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/gram/internal/monitoring"
	"github.com/banshee-data/gram/internal/sampling"
	"github.com/banshee-data/gram/internal/scheduler"
	"github.com/banshee-data/gram/internal/simulation"
	"github.com/banshee-data/gram/internal/timeutil"
)

// Initialize creates <dirpath>/<Name>_<YYMMDD_HHMMSS>/ with its scripts and
// simulations subdirectories. dirpath is made absolute and created if
// missing. An existing sweep directory is never reused.
func (s *Sweep) Initialize(dirpath string) error {
	abs, err := filepath.Abs(dirpath)
	if err != nil {
		return &DirectoryError{Path: dirpath, Err: err}
	}
	if err := s.fs.MkdirAll(abs, 0755); err != nil {
		return &DirectoryError{Path: abs, Err: err}
	}

	created := s.clock.Now()
	root := filepath.Join(abs, s.Name+"_"+timeutil.Stamp(created))
	scripts := filepath.Join(root, scriptsDir)
	sims := filepath.Join(root, simulationsDir)
	for _, dir := range []string{root, scripts, sims} {
		if err := s.fs.Mkdir(dir, 0755); err != nil {
			return &DirectoryError{Path: dir, Err: err}
		}
	}

	s.CreatedAt = created
	s.Path = root
	s.ScriptsPath = scripts
	s.SimulationsPath = sims
	return nil
}

// Build initializes the sweep directory under dirpath, draws n samples and
// persists one simulation case per sample, then writes the state file, the
// manifest and the scripts. The manifest and scripts are only written once
// every sample has been persisted; a failed build leaves its partial
// directory in place. Build may be attempted once per Sweep.
func (s *Sweep) Build(dirpath string, n int, opts simulation.Options) error {
	if s.attempted {
		return fmt.Errorf("%w: %s", ErrAlreadyBuilt, s.Path)
	}
	if n < 1 {
		return fmt.Errorf("%w: n=%d", sampling.ErrInvalidCount, n)
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("sweep: simulation options: %w", err)
	}
	runWrapper, err := scheduler.RunWrapper(s.runCommand)
	if err != nil {
		return err
	}
	s.attempted = true

	if err := s.Initialize(dirpath); err != nil {
		return err
	}

	samples, err := s.sampler.Sample(n)
	if err != nil {
		return err
	}

	paths := make(map[int]string, n)
	for i, row := range samples {
		m, err := s.builder.Build(row)
		if err != nil {
			return &ModelBuildError{Index: i, Parameters: row, Err: err}
		}
		c, err := simulation.New(m, opts)
		if err != nil {
			return &ModelBuildError{Index: i, Parameters: row, Err: err}
		}
		c.Parameters = row
		c.CreatedAt = s.CreatedAt

		dir := filepath.Join(s.SimulationsPath, strconv.Itoa(i))
		if err := s.fs.Mkdir(dir, 0755); err != nil {
			return &DirectoryError{Path: dir, Err: err}
		}
		if err := c.Save(s.fs, dir); err != nil {
			return fmt.Errorf("sweep: save simulation %d: %w", i, err)
		}
		paths[i] = dir
		monitoring.Debugf("sweep %s: wrote simulation %d/%d", s.Name, i+1, n)
	}

	s.Parameters = samples
	s.SimulationOptions = opts
	s.SimulationPaths = paths

	if err := s.Save(); err != nil {
		return err
	}
	if err := s.writeManifest(); err != nil {
		return err
	}
	if err := s.fs.WriteFile(s.RunScriptPath(), []byte(runWrapper), 0755); err != nil {
		return fmt.Errorf("sweep: write run script: %w", err)
	}
	script, err := s.emitter.Emit(s.ManifestPath(), s.RunScriptPath())
	if err != nil {
		return fmt.Errorf("sweep: render %s submission script: %w", s.emitter.Name(), err)
	}
	if err := s.fs.WriteFile(s.SubmissionScriptPath(), []byte(script), 0755); err != nil {
		return fmt.Errorf("sweep: write submission script: %w", err)
	}

	monitoring.Logf("sweep %s built: %d simulations in %s (%s)", s.Name, n, s.Path, s.emitter.Name())
	return nil
}

// writeManifest writes one absolute simulation path per line in ascending
// sample order.
func (s *Sweep) writeManifest() error {
	var b strings.Builder
	for i := 0; i < len(s.SimulationPaths); i++ {
		p, ok := s.SimulationPaths[i]
		if !ok {
			return fmt.Errorf("sweep: manifest: missing simulation %d", i)
		}
		b.WriteString(p)
		b.WriteByte('\n')
	}
	if err := s.fs.WriteFile(s.ManifestPath(), []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("sweep: write manifest: %w", err)
	}
	return nil
}

// IsExist reports whether err came from a sweep directory that already exists.
func IsExist(err error) bool {
	var de *DirectoryError
	return errors.As(err, &de) && errors.Is(de.Err, fs.ErrExist)
}
