package main

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/banshee-data/gram/internal/catalog"
	"github.com/banshee-data/gram/internal/config"
	"github.com/banshee-data/gram/internal/model"
	"github.com/banshee-data/gram/internal/monitoring"
	"github.com/banshee-data/gram/internal/sweep"
)

type buildFlags struct {
	configPath string
	name       string
	kind       string
	samples    int
	delta      string
	base       string
	out        string
	scheduler  string
	sequence   string
	seed       uint64
	runCommand string
	catalog    string
	parallel   int
}

func newBuildCmd() *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Sample parameters and write a sweep directory",
		Long: `Build samples N parameter sets around the base point, writes one
simulation case per sample and emits scripts/paths.txt, scripts/run.sh and
the job submission script.

Flags override values read from --config.

Examples:
  gram build --kind linear --samples 64 --out /scratch/sweeps
  gram build --config sweep.yaml --scheduler moab
  gram build --kind hill --delta 0.25 --sequence halton --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			_, err = runBuild(cmd.Context(), cmd.OutOrStdout(), cfg)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "Sweep config file (.json, .yaml or .yml)")
	flags.StringVar(&f.name, "name", "", "Sweep name used as the directory prefix (default <Model>Sweep)")
	flags.StringVar(&f.kind, "kind", "", fmt.Sprintf("Model kind %v", model.Kinds()))
	flags.IntVarP(&f.samples, "samples", "n", 16, "Number of samples")
	flags.StringVar(&f.delta, "delta", "", "Half-width of the sampling box in log10 units: one value or one per parameter")
	flags.StringVar(&f.base, "base", "", "Comma-separated log10 base point (defaults to the model's)")
	flags.StringVarP(&f.out, "out", "o", ".", "Directory in which the sweep directory is created")
	flags.StringVar(&f.scheduler, "scheduler", "bash", "Job submission scheduler (bash, slurm, moab)")
	flags.StringVar(&f.sequence, "sequence", "sobol", "Unit-cube sequence (sobol, halton)")
	flags.Uint64Var(&f.seed, "seed", 0, "Scrambling seed for the halton sequence")
	flags.StringVar(&f.runCommand, "run-command", sweep.DefaultRunCommand, "Per-sample entry point called by run.sh")
	flags.StringVar(&f.catalog, "catalog", "", "SQLite catalog to record the sweep in")
	flags.IntVar(&f.parallel, "parallel", 1, "Concurrent jobs for the bash scheduler")
	return cmd
}

// resolve loads --config, if any, and applies the flags the user set on top.
func (f *buildFlags) resolve(flags *pflag.FlagSet) (*config.SweepConfig, error) {
	cfg := config.EmptySweepConfig()
	if f.configPath != "" {
		loaded, err := config.LoadSweepConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.Changed("name") {
		cfg.Name = &f.name
	}
	if flags.Changed("kind") {
		cfg.Kind = &f.kind
	}
	if flags.Changed("samples") {
		cfg.Samples = &f.samples
	}
	if flags.Changed("delta") {
		delta, err := sweep.ParseCSVFloat64s(f.delta)
		if err != nil {
			return nil, fmt.Errorf("--delta: %w", err)
		}
		cfg.Delta = delta
	}
	if flags.Changed("base") {
		base, err := sweep.ParseCSVFloat64s(f.base)
		if err != nil {
			return nil, fmt.Errorf("--base: %w", err)
		}
		cfg.Base = base
	}
	if flags.Changed("out") {
		cfg.OutputDir = &f.out
	}
	if flags.Changed("scheduler") {
		cfg.Scheduler = &f.scheduler
	}
	if flags.Changed("sequence") {
		cfg.Sequence = &f.sequence
	}
	if flags.Changed("seed") {
		cfg.Seed = &f.seed
	}
	if flags.Changed("run-command") {
		cfg.RunCommand = &f.runCommand
	}
	if flags.Changed("catalog") {
		cfg.CatalogPath = &f.catalog
	}
	if flags.Changed("parallel") {
		cfg.Parallel = &f.parallel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runBuild builds the sweep described by cfg, prints where it was written and
// records it in the catalog when one is configured.
func runBuild(ctx context.Context, w io.Writer, cfg *config.SweepConfig, opts ...sweep.Option) (*sweep.Sweep, error) {
	builder, err := model.Lookup(cfg.GetKind())
	if err != nil {
		return nil, err
	}
	emitter, err := cfg.Emitter()
	if err != nil {
		return nil, err
	}
	seq, err := cfg.BuildSequence()
	if err != nil {
		return nil, err
	}

	opts = append([]sweep.Option{
		sweep.WithEmitter(emitter),
		sweep.WithSequence(seq),
		sweep.WithRunCommand(resolveRunCommand(cfg.GetRunCommand())),
		sweep.WithName(cfg.GetName()),
	}, opts...)
	s, err := sweep.New(builder, cfg.GetBase(), cfg.GetDelta(), opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Build(cfg.GetOutputDir(), cfg.GetSamples(), cfg.GetSimulation()); err != nil {
		return nil, err
	}

	if path := cfg.GetCatalogPath(); path != "" {
		if err := recordSweep(ctx, path, s.State()); err != nil {
			return s, err
		}
	}

	fmt.Fprintf(w, "%s\n", s.Path)
	fmt.Fprintf(w, "  %d simulations, submit with %s\n", s.N(), s.SubmissionScriptPath())
	return s, nil
}

func recordSweep(ctx context.Context, path string, st sweep.State) error {
	cat, err := catalog.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()
	if err := cat.Record(ctx, st); err != nil {
		return fmt.Errorf("failed to record sweep: %w", err)
	}
	monitoring.Logf("recorded sweep %s in %s", st.ID, path)
	return nil
}

// resolveRunCommand replaces the executable of command with its absolute
// path so run.sh works from any directory a job starts in. Commands not
// found on PATH are kept as given.
func resolveRunCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return command
	}
	p, err := exec.LookPath(fields[0])
	if err != nil {
		monitoring.Warnf("run command %q not found on PATH, using it as given", fields[0])
		return command
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	fields[0] = p
	return strings.Join(fields, " ")
}
