package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gram/internal/catalog"
	"github.com/banshee-data/gram/internal/sweep"
)

func newShowCmd() *cobra.Command {
	var (
		jsonOut     bool
		catalogPath string
	)
	cmd := &cobra.Command{
		Use:   "show <sweep>",
		Short: "Print the state of a built sweep",
		Long: `Show prints the state of a sweep. The argument is a sweep directory or
its sweep.json file, or a sweep ID when --catalog is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadState(cmd.Context(), args[0], catalogPath)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			return printState(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the full state as JSON")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Look the sweep up by ID in this catalog")
	return cmd
}

// loadState reads a sweep state from disk, or from the catalog by ID when
// catalogPath is set.
func loadState(ctx context.Context, ref, catalogPath string) (sweep.State, error) {
	if catalogPath == "" {
		s, err := sweep.Load(nil, ref)
		if err != nil {
			return sweep.State{}, err
		}
		return s.State(), nil
	}
	cat, err := catalog.Open(catalogPath)
	if err != nil {
		return sweep.State{}, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()
	return cat.State(ctx, ref)
}

func printState(w io.Writer, st sweep.State) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", st.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", st.Name)
	fmt.Fprintf(tw, "Kind:\t%s\n", st.Kind)
	fmt.Fprintf(tw, "Path:\t%s\n", st.Path)
	fmt.Fprintf(tw, "Created:\t%s\n", st.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Samples:\t%d\n", len(st.SimulationPaths))
	fmt.Fprintf(tw, "Sequence:\t%s\n", st.Sampler.Sequence)
	fmt.Fprintf(tw, "Scheduler:\t%s\n", st.Scheduler)
	fmt.Fprintf(tw, "Run command:\t%s\n", st.RunCommand)
	fmt.Fprintf(tw, "Generated by:\t%s\n", st.GeneratedBy)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "parameter\tbase\tlow\thigh\t")
	names := st.ParameterNames()
	for i := range st.Sampler.Low {
		name := fmt.Sprintf("p%d", i)
		if i < len(names) {
			name = names[i]
		}
		var base float64
		if i < len(st.Base) {
			base = st.Base[i]
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t\n", name, base, st.Sampler.Low[i], st.Sampler.High[i])
	}
	return tw.Flush()
}
