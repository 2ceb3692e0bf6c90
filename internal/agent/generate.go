package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/liminalbooks/liminal/internal/db"
	"github.com/liminalbooks/liminal/internal/llm"
	"github.com/liminalbooks/liminal/internal/project"
)

// Depth levels accepted by Generate.
const (
	DepthBeginner     = "beginner"
	DepthIntermediate = "intermediate"
	DepthAdvanced     = "advanced"
)

// ProjectStore is the DocumentStore that can also create projects.
type ProjectStore interface {
	DocumentStore
	Create(title, description string) (project.Meta, error)
}

// RunLog records loop runs and their events.
type RunLog interface {
	EventRecorder
	CreateRun(ctx context.Context, run db.Run) error
	FinishRun(ctx context.Context, runID, status string, iterations int, summary string) error
}

// Options configures Generator and Editor.
type Options struct {
	MaxIterations int
	Temperature   float64
	// HistoryLimit bounds the session messages replayed to the editor.
	HistoryLimit int
	// Sink receives progress notifications. May be nil.
	Sink StatusSink
	// Runs, when set, persists every run and its events.
	Runs RunLog
}

// Generator writes a new book from a topic.
type Generator struct {
	docs   ProjectStore
	client llm.Client
	opts   Options
	logger zerolog.Logger
}

// NewGenerator constructs a Generator.
func NewGenerator(docs ProjectStore, client llm.Client, opts Options, logger zerolog.Logger) *Generator {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 30
	}
	return &Generator{
		docs:   docs,
		client: client,
		opts:   opts,
		logger: logger.With().Str("component", "agent.generate").Logger(),
	}
}

// Generate creates a project for topic, runs the generation loop and returns
// the project metadata as stored afterwards.
func (g *Generator) Generate(ctx context.Context, topic, depth string) (project.Meta, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return project.Meta{}, fmt.Errorf("topic is required")
	}
	if depth == "" {
		depth = DepthIntermediate
	}

	meta, err := g.docs.Create(topic, "")
	if err != nil {
		return project.Meta{}, fmt.Errorf("create project: %w", err)
	}

	run := startRun(ctx, g.opts.Runs, "generate", meta.ID, "", g.opts.Sink, g.logger)
	run.sink.Notify(Event{Kind: EventStarted, Message: "Starting content generation..."})

	state := &State{ProjectID: meta.ID, BookTitle: meta.Title}
	transcript := []llm.Message{
		llm.System(SystemPrompt(ModeGenerate)),
		llm.User(GenerationPrompt(topic, depth)),
	}

	loop := NewLoop(g.client, NewExecutor(g.docs, g.logger), run.sink, g.opts.Temperature, g.logger)
	out, err := loop.Run(ctx, GeneratePolicy(g.opts.MaxIterations), state, transcript)
	if err != nil {
		run.finish(db.RunStatusFailed, out.Iterations, err.Error())
		return project.Meta{}, err
	}
	g.logger.Info().
		Str("project_id", meta.ID).
		Int("iterations", out.Iterations).
		Int("pages", len(state.Pages)).
		Bool("finished", out.Done).
		Msg("generation finished")
	run.finish(db.RunStatusFinished, out.Iterations, fmt.Sprintf("%d pages", len(state.Pages)))

	meta, err = g.docs.LoadMeta(meta.ID)
	if err != nil {
		return project.Meta{}, fmt.Errorf("reload project: %w", err)
	}
	return meta, nil
}

// runHandle tracks the optional run record of one invocation.
type runHandle struct {
	ctx    context.Context
	runs   RunLog
	id     string
	sink   StatusSink
	logger zerolog.Logger
}

func startRun(ctx context.Context, runs RunLog, kind, projectID, sessionID string, sink StatusSink, logger zerolog.Logger) runHandle {
	h := runHandle{ctx: ctx, runs: runs, sink: MultiSink{LogSink{Logger: logger}, sink}, logger: logger}
	if runs == nil {
		return h
	}
	id := uuid.NewString()
	if err := runs.CreateRun(ctx, db.Run{RunID: id, Kind: kind, ProjectID: projectID, SessionID: sessionID}); err != nil {
		logger.Warn().Err(err).Msg("create run record")
		return h
	}
	h.id = id
	h.sink = append(h.sink.(MultiSink), NewRecorderSink(ctx, runs, id, logger))
	logger.Debug().Str("run_id", id).Str("kind", kind).Msg("run started")
	return h
}

func (h runHandle) finish(status string, iterations int, summary string) {
	if h.id == "" {
		return
	}
	if err := h.runs.FinishRun(h.ctx, h.id, status, iterations, summary); err != nil {
		h.logger.Warn().Err(err).Str("run_id", h.id).Msg("finish run record")
	}
}
