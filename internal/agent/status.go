package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/liminalbooks/liminal/internal/db"
)

const statusMaxRunes = 80

var thinkingPattern = regexp.MustCompile(`<thinking>\s*([\s\S]*?)\s*</thinking>`)

// EventKind classifies a progress notification.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventIteration EventKind = "iteration"
	EventThinking  EventKind = "thinking"
	EventTool      EventKind = "tool"
	EventWrapUp    EventKind = "wrap_up"
	EventComplete  EventKind = "complete"
	EventFailed    EventKind = "failed"
)

// Event is a one-way progress notification emitted by a loop.
type Event struct {
	Kind      EventKind
	Iteration int
	Max       int
	Tool      string
	Message   string
}

// StatusSink receives progress notifications. Notify must not block the loop
// for long and its failures never affect control flow.
type StatusSink interface {
	Notify(Event)
}

// SinkFunc adapts a function to StatusSink.
type SinkFunc func(Event)

// Notify calls f.
func (f SinkFunc) Notify(ev Event) { f(ev) }

// NopSink discards every event.
type NopSink struct{}

// Notify does nothing.
func (NopSink) Notify(Event) {}

// MultiSink fans events out to several sinks in order.
type MultiSink []StatusSink

// Notify forwards ev to every non-nil sink.
func (m MultiSink) Notify(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Notify(ev)
		}
	}
}

// LogSink writes events to a zerolog logger.
type LogSink struct {
	Logger zerolog.Logger
}

// Notify logs ev at debug level, failures at warn.
func (s LogSink) Notify(ev Event) {
	e := s.Logger.Debug()
	if ev.Kind == EventFailed {
		e = s.Logger.Warn()
	}
	e.Str("kind", string(ev.Kind)).
		Int("iteration", ev.Iteration).
		Str("tool", ev.Tool).
		Msg(ev.Message)
}

// EventRecorder persists run events.
type EventRecorder interface {
	AppendEvent(ctx context.Context, runID string, ev db.Event) error
}

// RecorderSink stores events in the run event log.
type RecorderSink struct {
	ctx    context.Context
	rec    EventRecorder
	runID  string
	logger zerolog.Logger
}

// NewRecorderSink returns a sink appending events of runID to rec.
func NewRecorderSink(ctx context.Context, rec EventRecorder, runID string, logger zerolog.Logger) *RecorderSink {
	return &RecorderSink{ctx: ctx, rec: rec, runID: runID, logger: logger}
}

// Notify appends ev. Storage errors are logged and dropped.
func (s *RecorderSink) Notify(ev Event) {
	err := s.rec.AppendEvent(s.ctx, s.runID, db.Event{
		Timestamp: time.Now().UTC(),
		Type:      string(ev.Kind),
		Iteration: ev.Iteration,
		Tool:      ev.Tool,
		Message:   ev.Message,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("run_id", s.runID).Msg("record run event")
	}
}

// StatusLine derives a short human-readable status from a model reply: the
// first line of a <thinking> block if present, else the first line that
// does not look like markup.
func StatusLine(text string) (string, bool) {
	if m := thinkingPattern.FindStringSubmatch(text); m != nil {
		first, _, _ := strings.Cut(m[1], "\n")
		first = strings.TrimSpace(first)
		if first != "" {
			return truncateStatus(first), true
		}
	}

	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" || isMarkupLine(line) {
			continue
		}
		return truncateStatus(line), true
	}
	return "", false
}

func isMarkupLine(line string) bool {
	switch {
	case strings.HasPrefix(line, "{"), strings.HasPrefix(line, "}"):
		return true
	case strings.HasPrefix(line, "```"):
		return true
	case strings.HasPrefix(line, "<") && (strings.HasSuffix(line, ">") || strings.Contains(line, "</")):
		return true
	case strings.HasPrefix(line, `"`) && strings.Contains(line, ":"):
		return true
	}
	return false
}

func truncateStatus(s string) string {
	r := []rune(s)
	if len(r) <= statusMaxRunes {
		return s
	}
	cut := r[:statusMaxRunes]
	if i := lastSpace(cut); i > statusMaxRunes/2 {
		cut = cut[:i]
	}
	return string(cut) + "..."
}

func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == ' ' {
			return i
		}
	}
	return -1
}

// describeTool renders the status shown before a generation tool runs.
func describeTool(call ToolCall) string {
	arg := func(key, fallback string) string {
		if v, ok := call.Arguments[key]; ok {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
		return fallback
	}
	switch call.Name {
	case ToolSetBookInfo:
		return "Naming: " + arg("title", "book")
	case ToolCreateFile:
		return "Creating: " + arg("title", "chapter")
	case ToolEditFile:
		return "Editing: " + arg("filename", "file")
	case ToolReadFile:
		return "Reading: " + arg("filename", "file")
	case ToolListFiles:
		return "Reviewing structure..."
	case ToolFinish:
		return "Finalizing content..."
	default:
		return "Executing: " + call.Name
	}
}
