package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage chat sessions",
	}
	cmd.AddCommand(sessionListCmd())
	cmd.AddCommand(sessionCreateCmd())
	cmd.AddCommand(sessionShowCmd())
	cmd.AddCommand(sessionDeleteCmd())
	return cmd
}

func sessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List the chat sessions of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			items, err := a.store.ListSessions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(items) == 0 {
				log.Info().Msg("no sessions")
				return nil
			}
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d messages\t%s\t%s\n",
					item.ID, item.MessageCount, item.UpdatedAt.Local().Format(time.DateTime), item.Title)
			}
			return nil
		},
	}
}

func sessionCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <project-id> [title]",
		Short: "Start a chat session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.projects.LoadMeta(args[0]); err != nil {
				return err
			}
			sess, err := a.store.CreateSession(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.ID)
			return nil
		},
	}
}

func sessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id> <session-id>",
		Short: "Print the messages of a chat session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.store.LoadSession(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, sess.Title)
			for _, m := range sess.Messages {
				fmt.Fprintf(out, "\n[%s] %s\n%s\n", m.Timestamp.Local().Format(time.DateTime), m.Role, m.Content)
			}
			return nil
		},
	}
}

func sessionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id> <session-id>",
		Short: "Delete a chat session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.DeleteSession(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			log.Info().Msgf("session %s deleted", args[1])
			return nil
		},
	}
}
