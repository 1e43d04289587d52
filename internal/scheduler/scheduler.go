// Package scheduler renders the shell scripts that dispatch one job per
// simulation listed in a sweep manifest.
package scheduler

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/banshee-data/gram/internal/version"
)

// ErrUnknownScheduler is returned by Lookup for an unregistered name.
var ErrUnknownScheduler = errors.New("scheduler: unknown scheduler")

// Emitter renders a submission script. The script reads manifestPath line by
// line and invokes runEntryPoint once per non-empty line, passing the line as
// its only argument.
type Emitter interface {
	Name() string
	// Extension is the file extension of the rendered script, including the dot.
	Extension() string
	Emit(manifestPath, runEntryPoint string) (string, error)
}

// Bash runs the jobs on the local machine, optionally Parallel at a time.
type Bash struct {
	Parallel int
}

func (Bash) Name() string      { return "bash" }
func (Bash) Extension() string { return ".sh" }

func (b Bash) Emit(manifestPath, runEntryPoint string) (string, error) {
	return render(bashTemplate, manifestPath, runEntryPoint, map[string]any{
		"Parallel": max(b.Parallel, 1),
	})
}

// Slurm submits each job with sbatch --wrap.
type Slurm struct {
	Account   string
	Partition string
	Time      string
	Memory    string
	CPUs      int
}

func (Slurm) Name() string      { return "slurm" }
func (Slurm) Extension() string { return ".sh" }

func (s Slurm) Emit(manifestPath, runEntryPoint string) (string, error) {
	var flags []string
	if s.Account != "" {
		flags = append(flags, "--account="+ShellQuote(s.Account))
	}
	if s.Partition != "" {
		flags = append(flags, "--partition="+ShellQuote(s.Partition))
	}
	if s.Time != "" {
		flags = append(flags, "--time="+ShellQuote(s.Time))
	}
	if s.Memory != "" {
		flags = append(flags, "--mem="+ShellQuote(s.Memory))
	}
	if s.CPUs > 0 {
		flags = append(flags, fmt.Sprintf("--cpus-per-task=%d", s.CPUs))
	}
	return render(slurmTemplate, manifestPath, runEntryPoint, map[string]any{
		"Flags": strings.Join(flags, " "),
	})
}

// MoabOptions are the #MSUB directives written for every job.
type MoabOptions struct {
	Account  string   `json:"account,omitempty" yaml:"account,omitempty"`
	Queue    string   `json:"queue,omitempty" yaml:"queue,omitempty"`
	Walltime string   `json:"walltime,omitempty" yaml:"walltime,omitempty"`
	Nodes    int      `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	PPN      int      `json:"ppn,omitempty" yaml:"ppn,omitempty"`
	Memory   string   `json:"memory,omitempty" yaml:"memory,omitempty"`
	Email    string   `json:"email,omitempty" yaml:"email,omitempty"`
	Modules  []string `json:"modules,omitempty" yaml:"modules,omitempty"`
}

// DefaultMoabOptions matches a short single-node queue.
func DefaultMoabOptions() MoabOptions {
	return MoabOptions{
		Queue:    "short",
		Walltime: "04:00:00",
		Nodes:    1,
		PPN:      2,
		Memory:   "1gb",
	}
}

// Moab submits each job through an msub heredoc.
type Moab struct {
	Options MoabOptions
}

func (Moab) Name() string      { return "moab" }
func (Moab) Extension() string { return ".sh" }

func (m Moab) Emit(manifestPath, runEntryPoint string) (string, error) {
	o := m.Options
	if o.Nodes < 1 {
		o.Nodes = 1
	}
	if o.PPN < 1 {
		o.PPN = 1
	}
	for _, v := range []string{o.Account, o.Queue, o.Walltime, o.Memory, o.Email} {
		if strings.ContainsAny(v, "\n`$") {
			return "", fmt.Errorf("moab option %q contains shell metacharacters", v)
		}
	}
	return render(moabTemplate, manifestPath, runEntryPoint, map[string]any{"Moab": o})
}

// RunWrapper renders scripts/run.sh: it execs runCommand with the simulation
// path given as its first argument.
func RunWrapper(runCommand string) (string, error) {
	fields := strings.Fields(runCommand)
	if len(fields) == 0 {
		return "", errors.New("scheduler: empty run command")
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = ShellQuote(f)
	}
	return execute(runTemplate, map[string]any{"Command": strings.Join(quoted, " ")})
}

// Lookup returns the emitter registered under name with default settings.
func Lookup(name string) (Emitter, error) {
	factory, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownScheduler, name, strings.Join(Names(), ", "))
	}
	return factory(), nil
}

// Names lists the registered scheduler names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var registry = map[string]func() Emitter{
	"bash":  func() Emitter { return Bash{Parallel: 1} },
	"slurm": func() Emitter { return Slurm{} },
	"moab":  func() Emitter { return Moab{Options: DefaultMoabOptions()} },
}

// ShellQuote wraps s in single quotes for POSIX shells.
func ShellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r == '/' || r == '.' || r == '-' || r == '_' || r == ':' || r == '=' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func render(tmpl *template.Template, manifestPath, runEntryPoint string, data map[string]any) (string, error) {
	if manifestPath == "" || runEntryPoint == "" {
		return "", errors.New("scheduler: manifest and run entry point are required")
	}
	data["Manifest"] = ShellQuote(manifestPath)
	data["Run"] = ShellQuote(runEntryPoint)
	return execute(tmpl, data)
}

func execute(tmpl *template.Template, data map[string]any) (string, error) {
	data["Version"] = version.Version
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
