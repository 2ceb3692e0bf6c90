package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/liminalbooks/liminal/internal/db"
	"github.com/liminalbooks/liminal/internal/llm"
)

const defaultEditReply = "I've made the requested changes to your learning material."

// SessionStore persists chat sessions.
type SessionStore interface {
	LoadSession(ctx context.Context, projectID, sessionID string) (db.Session, error)
	SaveSession(ctx context.Context, sess db.Session) error
}

// ChatResult is the outcome of one chat turn.
type ChatResult struct {
	Response     string `json:"response"`
	ToolUsed     string `json:"tool_used,omitempty"`
	PagesChanged bool   `json:"pages_changed"`
	RunID        string `json:"run_id,omitempty"`
}

// Editor changes an existing book through chat sessions.
type Editor struct {
	docs     DocumentStore
	sessions SessionStore
	client   llm.Client
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time
}

// NewEditor constructs an Editor.
func NewEditor(docs DocumentStore, sessions SessionStore, client llm.Client, opts Options, logger zerolog.Logger) *Editor {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 10
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	return &Editor{
		docs:     docs,
		sessions: sessions,
		client:   client,
		opts:     opts,
		logger:   logger.With().Str("component", "agent.edit").Logger(),
		now:      time.Now,
	}
}

// Chat appends message to the session, runs the editing loop over the recent
// history and stores the final reply. Nothing is saved when the model call
// fails inside the loop.
func (e *Editor) Chat(ctx context.Context, projectID, sessionID, message string) (ChatResult, error) {
	sess, err := e.sessions.LoadSession(ctx, projectID, sessionID)
	if err != nil {
		return ChatResult{}, fmt.Errorf("load session: %w", err)
	}
	meta, err := e.docs.LoadMeta(projectID)
	if err != nil {
		return ChatResult{}, fmt.Errorf("load project: %w", err)
	}

	e.appendMessage(&sess, "user", message)

	state := &State{ProjectID: projectID, BookTitle: meta.Title}
	for _, f := range meta.PageOrder {
		state.Pages = append(state.Pages, PageInfo{Filename: f, Title: f})
	}

	transcript := []llm.Message{llm.System(SystemPrompt(ModeEdit))}
	history := sess.Messages
	if len(history) > e.opts.HistoryLimit {
		history = history[len(history)-e.opts.HistoryLimit:]
	}
	for _, m := range history {
		if m.Role == "user" {
			transcript = append(transcript, llm.User(m.Content))
		} else {
			transcript = append(transcript, llm.Assistant(m.Content))
		}
	}

	run := startRun(ctx, e.opts.Runs, "edit", projectID, sessionID, e.opts.Sink, e.logger)
	loop := NewLoop(e.client, NewExecutor(e.docs, e.logger), run.sink, e.opts.Temperature, e.logger)
	out, err := loop.Run(ctx, EditPolicy(e.opts.MaxIterations), state, transcript)
	if err != nil {
		run.finish(db.RunStatusFailed, out.Iterations, err.Error())
		return ChatResult{}, err
	}

	reply := strings.TrimSpace(out.Reply)
	if reply == "" {
		reply = e.askForResponse(ctx, out.Transcript)
	}

	e.appendMessage(&sess, "assistant", reply)
	if err := e.sessions.SaveSession(ctx, sess); err != nil {
		run.finish(db.RunStatusFailed, out.Iterations, err.Error())
		return ChatResult{}, fmt.Errorf("save session: %w", err)
	}
	run.finish(db.RunStatusFinished, out.Iterations, reply)

	return ChatResult{
		Response:     reply,
		ToolUsed:     out.ToolUsed,
		PagesChanged: out.PagesChanged,
		RunID:        run.id,
	}, nil
}

// askForResponse issues one extra model call asking for a respond tool call.
// Any failure falls back to a fixed acknowledgement.
func (e *Editor) askForResponse(ctx context.Context, transcript []llm.Message) string {
	transcript = append(transcript, llm.User(respondNudge))
	reply, err := e.client.Complete(ctx, transcript, e.opts.Temperature)
	if err != nil {
		e.logger.Warn().Err(err).Msg("final respond call")
		return defaultEditReply
	}
	call, err := ParseToolCall(reply)
	if err != nil || call.Name != ToolRespond {
		return defaultEditReply
	}
	action, err := DecodeAction(ModeEdit, call)
	if err != nil {
		return defaultEditReply
	}
	if msg := strings.TrimSpace(action.(Respond).Message); msg != "" {
		return msg
	}
	return defaultEditReply
}

func (e *Editor) appendMessage(sess *db.Session, role, content string) {
	now := e.now().UTC()
	if role == "user" && sess.Title == db.DefaultSessionTitle {
		sess.Title = db.AutoTitle(content)
	}
	sess.Messages = append(sess.Messages, db.Message{Role: role, Content: content, Timestamp: now})
	sess.UpdatedAt = now
}
