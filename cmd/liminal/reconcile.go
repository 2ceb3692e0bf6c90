package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liminalbooks/liminal/internal/logging"
	"github.com/liminalbooks/liminal/internal/reconcile"
)

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Fail interrupted runs and drop records of deleted books",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			res, err := reconcile.Run(cmd.Context(), a.cfg.DataDir, a.store, a.projects, logging.Component("reconcile"))
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}
			out := cmd.OutOrStdout()
			if res.SkippedRuns {
				fmt.Fprintln(out, "agent run in progress, running runs left untouched")
			} else {
				fmt.Fprintf(out, "interrupted runs: %d\n", res.InterruptedRuns)
			}
			fmt.Fprintf(out, "orphaned books: %d\n", len(res.OrphanProjects))
			return nil
		},
	}
}
