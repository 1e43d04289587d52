package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gram/internal/monitoring"
	"github.com/banshee-data/gram/internal/report"
	"github.com/banshee-data/gram/internal/sweep"
)

type inspectFlags struct {
	png        string
	x, y       int
	html       string
	csv        string
	summaryCSV string
	catalog    string
}

func newInspectCmd() *cobra.Command {
	var f inspectFlags
	cmd := &cobra.Command{
		Use:   "inspect <sweep>",
		Short: "Summarise the sampled parameters of a sweep",
		Long: `Inspect prints per-parameter statistics of the samples in log10 space,
including the largest uncovered gap relative to the box width, and
optionally writes plots and CSV tables.

Examples:
  gram inspect ./LinearSweep_260119_143005
  gram inspect ./LinearSweep_260119_143005 --png k0_g0.png --x 0 --y 3
  gram inspect ./LinearSweep_260119_143005 --html samples.html --csv samples.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadState(cmd.Context(), args[0], f.catalog)
			if err != nil {
				return err
			}
			return runInspect(cmd.OutOrStdout(), st, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.png, "png", "", "Write a scatter plot of --x against --y to this PNG file")
	flags.IntVar(&f.x, "x", 0, "Parameter index on the x axis of --png")
	flags.IntVar(&f.y, "y", 1, "Parameter index on the y axis of --png")
	flags.StringVar(&f.html, "html", "", "Write interactive scatter charts to this HTML file")
	flags.StringVar(&f.csv, "csv", "", "Write the sampled parameters to this CSV file")
	flags.StringVar(&f.summaryCSV, "summary-csv", "", "Write the summary table to this CSV file")
	flags.StringVar(&f.catalog, "catalog", "", "Look the sweep up by ID in this catalog")
	return cmd
}

func runInspect(w io.Writer, st sweep.State, f inspectFlags) error {
	sums, err := report.Summarize(st)
	if err != nil {
		return err
	}
	if err := printSummary(w, st, sums); err != nil {
		return err
	}

	if f.png != "" {
		if err := writeFile(f.png, func(out io.Writer) error { return report.WritePNG(out, st, f.x, f.y) }); err != nil {
			return err
		}
	}
	if f.html != "" {
		if err := writeFile(f.html, func(out io.Writer) error { return report.WriteHTML(out, st) }); err != nil {
			return err
		}
	}
	if f.csv != "" {
		if err := writeFile(f.csv, func(out io.Writer) error { return report.WriteSamplesCSV(out, st) }); err != nil {
			return err
		}
	}
	if f.summaryCSV != "" {
		if err := writeFile(f.summaryCSV, func(out io.Writer) error { return report.WriteSummaryCSV(out, sums) }); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(w io.Writer, st sweep.State, sums []report.ParameterSummary) error {
	fmt.Fprintf(w, "%s: %d samples (%s)\n\n", st.Name, len(st.Parameters), st.Sampler.Sequence)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "parameter\tlow\thigh\tmin\tmax\tmean\tstd\tmedian\tmax gap\t")
	for _, s := range sums {
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.4f\t\n",
			s.Name, s.Low, s.High, s.Min, s.Max, s.Mean, s.Std, s.Median, s.RelativeGap)
	}
	return tw.Flush()
}

// writeFile creates path and streams render into it.
func writeFile(path string, render func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(out); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	monitoring.Logf("wrote %s", path)
	return nil
}
