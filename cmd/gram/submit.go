package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gram/internal/submit"
	"github.com/banshee-data/gram/internal/sweep"
)

func newSubmitCmd() *cobra.Command {
	var (
		host, user, key, sshConfig string
		dryRun, jsonOut            bool
	)
	cmd := &cobra.Command{
		Use:   "submit <sweep>",
		Short: "Run a sweep's job submission script",
		Long: `Submit runs scripts/job_submission.sh of a built sweep, locally or on a
cluster login node over ssh. The remote host must see the sweep directory
at the same path.

Examples:
  gram submit ./LinearSweep_260119_143005
  gram submit /projects/p30653/HillSweep_260119_143005 --host quest
  gram submit ./LinearSweep_260119_143005 --host login.example.org --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sweep.Load(nil, args[0])
			if err != nil {
				return err
			}
			target, err := submit.ResolveTarget(host, user, key, sshConfig)
			if err != nil {
				return err
			}
			sub, err := submit.Submitter{Target: target, DryRun: dryRun}.Submit(cmd.Context(), s)
			if sub != nil && sub.Output != "" && !jsonOut {
				fmt.Fprint(cmd.ErrOrStderr(), sub.Output)
			}
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sub)
			}
			if sub.DryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "would execute: %s\n", strings.Join(sub.Command, " "))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "submitted %s (%d job IDs)\n", s.Name, len(sub.JobIDs))
			for _, id := range sub.JobIDs {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&host, "host", "", "Run on this host over ssh ([user@]host or an ssh config alias)")
	flags.StringVar(&user, "user", "", "SSH user (defaults to the ssh config)")
	flags.StringVar(&key, "key", "", "SSH private key (defaults to the ssh config)")
	flags.StringVar(&sshConfig, "ssh-config", "", "SSH config file (default ~/.ssh/config)")
	flags.BoolVar(&dryRun, "dry-run", false, "Print the command without running it")
	flags.BoolVar(&jsonOut, "json", false, "Output the submission as JSON")
	return cmd
}
