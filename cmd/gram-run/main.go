// Command gram-run is the per-sample job entry point. It loads the simulation
// case in a sweep's simulations/<i> directory, runs it through the
// configured engine and writes result.json next to the case.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gram/internal/monitoring"
	"github.com/banshee-data/gram/internal/simulation"
	"github.com/banshee-data/gram/internal/timeutil"
	"github.com/banshee-data/gram/internal/version"
)

// engineEnv names the environment variable consulted when --engine is unset.
const engineEnv = "GRAM_ENGINE"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode passes the engine's exit status through so the scheduler records
// it for the job. Anything else, including a signal, exits 1.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}

func newRootCmd() *cobra.Command {
	var (
		engine     string
		engineArgs []string
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:     "gram-run [--engine cmd] <simulation-path>",
		Short:   "Run one simulation case of a sweep",
		Version: version.Version,
		Long: `gram-run loads simulation.json from the given directory and runs the
engine executable with the directory as its final argument, in that
directory. The engine is taken from --engine or $GRAM_ENGINE. The outcome
is written to result.json whether or not the engine succeeds.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := monitoring.NewLogger(verbose)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()
			defer monitoring.Install(logger)()

			if engine == "" {
				engine = os.Getenv(engineEnv)
			}
			if engine == "" {
				return errors.New("no engine: set --engine or " + engineEnv)
			}

			runner := simulation.Runner{
				Clock: timeutil.RealClock{},
				Engine: simulation.CommandEngine{
					Command: engine,
					Args:    engineArgs,
					Stdout:  cmd.OutOrStdout(),
					Stderr:  cmd.ErrOrStderr(),
				},
			}
			res, err := runner.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "SIMULATION COMPLETE. RUNTIME: %.2fs\n", res.RuntimeSeconds)
			return nil
		},
	}
	cmd.Flags().StringVar(&engine, "engine", "", "Simulator executable (default $"+engineEnv+")")
	cmd.Flags().StringArrayVar(&engineArgs, "engine-arg", nil, "Argument passed to the engine before the simulation path (repeatable)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}
