package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gram/internal/catalog"
)

func newListCmd() *cobra.Command {
	var (
		catalogPath string
		jsonOut     bool
		remove      string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sweeps recorded in a catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if catalogPath == "" {
				return errors.New("--catalog is required")
			}
			cat, err := catalog.Open(catalogPath)
			if err != nil {
				return fmt.Errorf("failed to open catalog: %w", err)
			}
			defer cat.Close()

			ctx := cmd.Context()
			if remove != "" {
				if err := cat.Delete(ctx, remove); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", remove)
				return nil
			}

			entries, err := cat.List(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				if entries == nil {
					entries = []catalog.Entry{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sweeps recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSAMPLES\tSEQUENCE\tSCHEDULER\tCREATED\tPATH")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
					e.ID, e.Name, e.Samples, e.Sequence, e.Scheduler, e.CreatedAt.Format(time.RFC3339), e.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "SQLite catalog database")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&remove, "rm", "", "Remove the sweep with this ID from the catalog instead of listing")
	return cmd
}
