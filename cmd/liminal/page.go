package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/liminalbooks/liminal/internal/project"
)

func pageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Read book pages",
	}
	cmd.AddCommand(pageShowCmd())
	cmd.AddCommand(pageAddCmd())
	cmd.AddCommand(pageSaveCmd())
	cmd.AddCommand(pageReorderCmd())
	return cmd
}

func pageShowCmd() *cobra.Command {
	var (
		raw   bool
		width int
	)
	cmd := &cobra.Command{
		Use:   "show <project-id> <page>",
		Short: "Render a page in the terminal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			content, err := a.projects.ReadPage(args[0], args[1])
			if err != nil {
				return err
			}
			if raw {
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			}

			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return fmt.Errorf("create markdown renderer: %w", err)
			}
			out, err := r.Render(content)
			if err != nil {
				return fmt.Errorf("render page: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the markdown source")
	cmd.Flags().IntVar(&width, "width", 80, "wrap width")
	return cmd
}

func pageAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <project-id> <title>",
		Short: "Append an empty page",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			title := strings.TrimSpace(strings.Join(args[1:], " "))
			name, err := a.projects.CreatePage(args[0], title, project.NewPageContent)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

func pageSaveCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "save <project-id> <page>",
		Short: "Replace a page with markdown from a file or stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if file == "" || file == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("read page content: %w", err)
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.projects.ReadPage(args[0], args[1]); err != nil {
				return err
			}
			if err := a.projects.WritePage(args[0], args[1], string(data)); err != nil {
				return err
			}
			log.Info().Msgf("page %s saved", args[1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "markdown file (default stdin)")
	return cmd
}

func pageReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <project-id> <page>...",
		Short: "Set the reading order of every page",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			return a.projects.Reorder(args[0], args[1:])
		},
	}
}
