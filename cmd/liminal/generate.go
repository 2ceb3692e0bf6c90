package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liminalbooks/liminal/internal/agent"
)

func generateCmd() *cobra.Command {
	var depth string
	cmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: "Write a new book about a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.TrimSpace(strings.Join(args, " "))
			switch depth {
			case agent.DepthBeginner, agent.DepthIntermediate, agent.DepthAdvanced:
			default:
				return fmt.Errorf("invalid depth %q (beginner|intermediate|advanced)", depth)
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			unlock, err := a.lockAgent()
			if err != nil {
				return err
			}
			defer unlock()

			gen, err := a.generator(cmd.Context())
			if err != nil {
				return err
			}
			meta, err := gen.Generate(cmd.Context(), topic, depth)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d pages\n", meta.ID, meta.Title, len(meta.PageOrder))
			return nil
		},
	}
	cmd.Flags().StringVar(&depth, "depth", agent.DepthIntermediate, "depth level (beginner|intermediate|advanced)")
	return cmd
}
