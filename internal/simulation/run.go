package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/banshee-data/gram/internal/fsutil"
	"github.com/banshee-data/gram/internal/monitoring"
	"github.com/banshee-data/gram/internal/timeutil"
)

// Engine executes a loaded simulation case whose files live in dir and
// writes its outputs back into dir.
type Engine interface {
	Run(ctx context.Context, dir string, c *Case) error
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, dir string, c *Case) error

// Run implements Engine.
func (f EngineFunc) Run(ctx context.Context, dir string, c *Case) error { return f(ctx, dir, c) }

// CommandEngine runs an external simulator executable with the simulation
// directory as its final argument.
type CommandEngine struct {
	Command string
	Args    []string
	Stdout  io.Writer
	Stderr  io.Writer
}

// Run implements Engine.
func (e CommandEngine) Run(ctx context.Context, dir string, c *Case) error {
	if e.Command == "" {
		return errors.New("simulation: no engine command configured")
	}
	args := append(append([]string(nil), e.Args...), dir)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Dir = dir
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	cmd.Env = append(os.Environ(), "GRAM_SIMULATION_PATH="+dir)
	return cmd.Run()
}

// Result records the outcome of one run.
type Result struct {
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	RuntimeSeconds float64   `json:"runtime_seconds"`
	ExitCode       int       `json:"exit_code"`
	Error          string    `json:"error,omitempty"`
}

// Runner is the per-sample job entry point: it loads the case at a path,
// executes it and persists the result next to it.
type Runner struct {
	FS     fsutil.FileSystem
	Clock  timeutil.Clock
	Engine Engine
}

// Run loads the case in dir, runs it and writes ResultFile. The returned
// error is the engine error, if any; the result is written either way.
func (r Runner) Run(ctx context.Context, dir string) (*Result, error) {
	fsys := r.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if r.Engine == nil {
		return nil, errors.New("simulation: no engine configured")
	}

	c, err := Load(fsys, dir)
	if err != nil {
		return nil, err
	}

	start := clock.Now()
	runErr := r.Engine.Run(ctx, dir, c)
	res := &Result{
		StartedAt:      start,
		CompletedAt:    clock.Now(),
		RuntimeSeconds: clock.Since(start).Seconds(),
	}
	if runErr != nil {
		res.ExitCode = 1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		res.Error = runErr.Error()
	}

	if err := saveResult(fsys, dir, res); err != nil {
		return res, errors.Join(runErr, err)
	}
	if runErr != nil {
		return res, fmt.Errorf("simulation %s: %w", dir, runErr)
	}
	monitoring.Logf("simulation %s complete, runtime %.2fs", dir, res.RuntimeSeconds)
	return res, nil
}

func saveResult(fsys fsutil.FileSystem, dir string, res *Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	path := filepath.Join(dir, ResultFile)
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadResult reads the result of a finished run.
func LoadResult(fsys fsutil.FileSystem, dir string) (*Result, error) {
	data, err := fsys.ReadFile(filepath.Join(dir, ResultFile))
	if err != nil {
		return nil, err
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	return &res, nil
}
