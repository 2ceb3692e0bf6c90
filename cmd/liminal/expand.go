package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/liminalbooks/liminal/internal/diff"
	"github.com/liminalbooks/liminal/internal/expansion"
	"github.com/liminalbooks/liminal/internal/logging"
)

func expandCmd() *cobra.Command {
	var (
		text      string
		question  string
		startLine int
		endLine   int
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "expand <project-id> <page>",
		Short: "Explain a passage by extending the page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(text) == "" || strings.TrimSpace(question) == "" {
				return fmt.Errorf("--text and --question are required")
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			client, err := a.llmClient(cmd.Context())
			if err != nil {
				return err
			}
			exp := expansion.NewExpander(a.projects, client, a.cfg.LLM.Temperature, logging.Component("expansion"))
			sel := expansion.Selection{StartLine: startLine, EndLine: endLine, SelectedText: text}

			if dryRun {
				preview, err := exp.DryRun(cmd.Context(), args[0], args[1], sel, question)
				if err != nil {
					return err
				}
				if !diff.Changed(preview.Diff) {
					log.Info().Msg("no changes")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), diff.Text(preview.Diff))
				return nil
			}

			unlock, err := a.lockAgent()
			if err != nil {
				return err
			}
			defer unlock()

			res, err := exp.Expand(cmd.Context(), args[0], args[1], sel, question)
			if err != nil {
				return err
			}
			log.Info().Msgf("expansion %s inserted at line %d", res.ExpansionID, res.InsertionLine)
			fmt.Fprintln(cmd.OutOrStdout(), res.InsertedContent)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "selected text")
	cmd.Flags().StringVar(&question, "question", "", "question about the selection")
	cmd.Flags().IntVar(&startLine, "start-line", 0, "first selected line")
	cmd.Flags().IntVar(&endLine, "end-line", 0, "last selected line")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the diff without saving")
	return cmd
}

func askCmd() *cobra.Command {
	var text, question string
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Answer a question about a passage without editing anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(text) == "" || strings.TrimSpace(question) == "" {
				return fmt.Errorf("--text and --question are required")
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			client, err := a.llmClient(cmd.Context())
			if err != nil {
				return err
			}
			exp := expansion.NewExpander(a.projects, client, a.cfg.LLM.Temperature, logging.Component("expansion"))
			answer, err := exp.Answer(cmd.Context(), expansion.Selection{SelectedText: text}, question)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "selected text")
	cmd.Flags().StringVar(&question, "question", "", "question about the selection")
	return cmd
}
