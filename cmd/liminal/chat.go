package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat <project-id> <message>",
		Short: "Ask the editor to change a book",
		Long:  "Send one chat message to the editing agent. Without --session a new session is started.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := args[0]
			message := strings.TrimSpace(strings.Join(args[1:], " "))
			if message == "" {
				return fmt.Errorf("message is required")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if _, err := a.projects.LoadMeta(projectID); err != nil {
				return err
			}
			if sessionID == "" {
				sess, err := a.store.CreateSession(ctx, projectID, "")
				if err != nil {
					return err
				}
				sessionID = sess.ID
				log.Info().Msgf("session %s started", sessionID)
			}

			unlock, err := a.lockAgent()
			if err != nil {
				return err
			}
			defer unlock()

			editor, err := a.editor(ctx)
			if err != nil {
				return err
			}
			res, err := editor.Chat(ctx, projectID, sessionID, message)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Response)
			if res.PagesChanged {
				log.Info().Str("session_id", sessionID).Str("run_id", res.RunID).Msg("pages changed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "continue an existing chat session")
	return cmd
}
