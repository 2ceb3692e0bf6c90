package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/liminalbooks/liminal/internal/db"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect agent runs",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	cmd.AddCommand(runsPruneCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list [project-id]",
		Short: "List recent runs, optionally of one book",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			projectID := ""
			if len(args) == 1 {
				projectID = args[0]
			}
			runs, err := a.store.ListRuns(cmd.Context(), projectID, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				log.Info().Msg("no runs")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d iterations\t%s\n",
					r.RunID, r.Kind, r.Status, r.Iterations, r.CreatedAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	return cmd
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the event log of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			run, err := a.store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			events, err := a.store.ListEvents(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s, %d iterations)\n", run.Kind, run.RunID, run.Status, run.Iterations)
			if run.Summary != "" {
				fmt.Fprintln(out, run.Summary)
			}
			for _, ev := range events {
				tool := ev.Tool
				if tool == "" {
					tool = "-"
				}
				fmt.Fprintf(out, "%4d  %s  %-10s %3d  %-14s %s\n",
					ev.Seq, ev.Timestamp.Local().Format(time.TimeOnly), ev.Type, ev.Iteration, tool, ev.Message)
			}
			return nil
		},
	}
}

func runsPruneCmd() *cobra.Command {
	var (
		keepLast int
		keepDays int
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old run logs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			policy := db.RetentionPolicy{KeepLast: keepLast, KeepDays: keepDays}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				policy = db.RetentionPolicy{
					KeepLast: a.cfg.Retention.KeepLast,
					KeepDays: a.cfg.Retention.KeepDays,
				}
			}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				return fmt.Errorf("set --keep-last or --keep-days (or configure retention in the config file)")
			}

			res, err := a.store.PruneRuns(cmd.Context(), policy, dryRun)
			if err != nil {
				return err
			}
			mode := "deleted"
			if dryRun {
				mode = "would delete"
			}
			log.Info().Msgf("%s %d runs (kept %d)", mode, res.Deleted, res.Kept)
			return nil
		},
	}
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep the newest N runs")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep runs newer than N days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be pruned without deleting")
	return cmd
}
