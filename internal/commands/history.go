package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/cli"
	"github.com/cleared-dev/recon/internal/runlog"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from logs/run-log.csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := runlog.Read(".")
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("no runs recorded"))
				return nil
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-9s  %s  %s\n",
					e.Timestamp.Local().Format(time.DateTime), e.Command, cli.SubtleStyle.Render(e.RunID), e.Details)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many runs (0 for all)")

	return cmd
}
