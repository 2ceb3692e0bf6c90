package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/liminalbooks/liminal/internal/agent"
)

const (
	colorPrimary   = "12"
	colorSecondary = "8"
	colorSuccess   = "10"
	colorError     = "9"
)

// consoleSink prints loop progress to stderr, one styled line per event.
type consoleSink struct {
	out       io.Writer
	iteration lipgloss.Style
	muted     lipgloss.Style
	tool      lipgloss.Style
	done      lipgloss.Style
	failed    lipgloss.Style
}

func newConsoleSink() *consoleSink {
	return &consoleSink{
		out:       os.Stderr,
		iteration: lipgloss.NewStyle().Foreground(lipgloss.Color(colorPrimary)).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorSecondary)).Italic(true),
		tool:      lipgloss.NewStyle().Foreground(lipgloss.Color(colorPrimary)),
		done:      lipgloss.NewStyle().Foreground(lipgloss.Color(colorSuccess)).Bold(true),
		failed:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorError)).Bold(true),
	}
}

func (s *consoleSink) Notify(ev agent.Event) {
	var line string
	switch ev.Kind {
	case agent.EventIteration:
		line = s.iteration.Render(fmt.Sprintf("[%d/%d]", ev.Iteration, ev.Max))
	case agent.EventThinking:
		line = "  " + s.muted.Render(ev.Message)
	case agent.EventTool:
		line = "  " + s.tool.Render("> "+ev.Message)
	case agent.EventComplete:
		line = s.done.Render(ev.Message)
	case agent.EventFailed:
		line = s.failed.Render("failed: " + ev.Message)
	default:
		line = ev.Message
	}
	_, _ = fmt.Fprintln(s.out, line)
}
