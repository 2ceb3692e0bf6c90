package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage books",
	}
	cmd.AddCommand(projectListCmd())
	cmd.AddCommand(projectCreateCmd())
	cmd.AddCommand(projectImportCmd())
	cmd.AddCommand(projectShowCmd())
	cmd.AddCommand(projectDeleteCmd())
	return cmd
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List books, most recently updated first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			items, err := a.projects.List()
			if err != nil {
				return err
			}
			if len(items) == 0 {
				log.Info().Msg("no projects")
				return nil
			}
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d pages\t%s\t%s\n",
					item.ID, item.PageCount, item.UpdatedAt.Local().Format(time.DateTime), item.Title)
			}
			return nil
		},
	}
}

func projectCreateCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create an empty book",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			meta, err := a.projects.Create(title, description)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), meta.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "book description")
	return cmd
}

func projectImportCmd() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "import <folder>",
		Short: "Import a folder of markdown files as a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			meta, err := a.projects.ImportFolder(args[0], title, description)
			if err != nil {
				return err
			}
			log.Info().Msgf("imported %d pages", len(meta.PageOrder))
			fmt.Fprintln(cmd.OutOrStdout(), meta.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "book title (default: folder name)")
	cmd.Flags().StringVar(&description, "description", "", "book description")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a book and its pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			pages, err := a.projects.Pages(args[0])
			if err != nil {
				return err
			}
			meta, err := a.projects.LoadMeta(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", meta.Title)
			if meta.Description != "" {
				fmt.Fprintf(out, "%s\n", meta.Description)
			}
			fmt.Fprintln(out)
			for _, p := range pages {
				fmt.Fprintf(out, "%s\t%s\n", p.Name, p.Title)
			}
			return nil
		},
	}
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a book with its pages, chat sessions and run logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.projects.Delete(args[0]); err != nil {
				return err
			}
			if err := a.store.DeleteProjectSessions(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := a.store.DeleteProjectRuns(cmd.Context(), args[0]); err != nil {
				return err
			}
			log.Info().Msgf("project %s deleted", args[0])
			return nil
		},
	}
}
