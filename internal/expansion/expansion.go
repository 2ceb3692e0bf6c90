// Package expansion lets a model explain a highlighted passage, either by
// patching the explanation into the page or by answering directly.
package expansion

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/liminalbooks/liminal/internal/diff"
	"github.com/liminalbooks/liminal/internal/llm"
	"github.com/liminalbooks/liminal/internal/patch"
)

// Selection is the highlighted passage of a page.
type Selection struct {
	StartLine    int    `json:"startLine"`
	EndLine      int    `json:"endLine"`
	SelectedText string `json:"selectedText"`
}

// Result describes an applied expansion.
type Result struct {
	ExpansionID     string `json:"expansionId"`
	UpdatedMarkdown string `json:"updatedMarkdown"`
	InsertedContent string `json:"insertedContent"`
	// InsertionLine is the first inserted line, or 1 when nothing was inserted.
	InsertionLine int   `json:"insertionLine"`
	UpdatedLines  []int `json:"updatedLines"`
}

// Preview is an expansion that was computed but not saved.
type Preview struct {
	Result
	Diff []diff.Line `json:"diff"`
}

// PageStore reads and writes page content.
type PageStore interface {
	ReadPage(projectID, page string) (string, error)
	WritePage(projectID, page, content string) error
}

// Expander runs selection expansions and answers.
type Expander struct {
	pages       PageStore
	client      llm.Client
	temperature float64
	logger      zerolog.Logger
}

// NewExpander constructs an Expander.
func NewExpander(pages PageStore, client llm.Client, temperature float64, logger zerolog.Logger) *Expander {
	return &Expander{
		pages:       pages,
		client:      client,
		temperature: temperature,
		logger:      logger.With().Str("component", "expansion").Logger(),
	}
}

// Expand asks the model for a patch explaining the selection, applies it to
// the page and saves the result.
func (e *Expander) Expand(ctx context.Context, projectID, page string, sel Selection, question string) (Result, error) {
	_, res, err := e.compute(ctx, projectID, page, sel, question)
	if err != nil {
		return Result{}, err
	}
	if err := e.pages.WritePage(projectID, page, res.UpdatedMarkdown); err != nil {
		return Result{}, fmt.Errorf("save page: %w", err)
	}
	e.logger.Info().
		Str("project_id", projectID).
		Str("page", page).
		Str("expansion_id", res.ExpansionID).
		Int("inserted_lines", len(res.UpdatedLines)).
		Msg("expansion applied")
	return res, nil
}

// DryRun computes the expansion like Expand but leaves the page untouched.
func (e *Expander) DryRun(ctx context.Context, projectID, page string, sel Selection, question string) (Preview, error) {
	before, res, err := e.compute(ctx, projectID, page, sel, question)
	if err != nil {
		return Preview{}, err
	}
	return Preview{
		Result: res,
		Diff:   diff.Lines(splitLines(before), splitLines(res.UpdatedMarkdown)),
	}, nil
}

// Answer replies to a question about the selection without touching any page.
func (e *Expander) Answer(ctx context.Context, sel Selection, question string) (string, error) {
	reply, err := e.client.Complete(ctx, []llm.Message{
		llm.System(answerSystemPrompt),
		llm.User(answerPrompt(sel.SelectedText, question)),
	}, e.temperature)
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

func (e *Expander) compute(ctx context.Context, projectID, page string, sel Selection, question string) (string, Result, error) {
	content, err := e.pages.ReadPage(projectID, page)
	if err != nil {
		return "", Result{}, fmt.Errorf("load page: %w", err)
	}

	reply, err := e.client.Complete(ctx, []llm.Message{
		llm.System(expansionSystemPrompt),
		llm.User(expansionPrompt(content, sel.SelectedText, question)),
	}, e.temperature)
	if err != nil {
		return "", Result{}, fmt.Errorf("request expansion: %w", err)
	}

	ops, err := patch.Parse(reply)
	if err != nil {
		e.logger.Debug().Str("reply", reply).Msg("reply without patch")
		return "", Result{}, fmt.Errorf("parse expansion patch: %w", err)
	}

	res := Result{UpdatedMarkdown: content, UpdatedLines: []int{}}
	for _, op := range ops {
		upd, ok := op.(patch.UpdateFile)
		if !ok || len(upd.Chunks) == 0 {
			continue
		}
		applied := patch.ApplyUpdateChunks(res.UpdatedMarkdown, upd.Chunks)
		res.UpdatedMarkdown = applied.Content
		res.UpdatedLines = applied.InsertedLines
		res.InsertedContent = applied.InsertedText
	}

	res.ExpansionID = newExpansionID()
	res.InsertionLine = 1
	if len(res.UpdatedLines) > 0 {
		res.InsertionLine = res.UpdatedLines[0]
	}
	return content, res, nil
}

func newExpansionID() string {
	head, _, _ := strings.Cut(uuid.NewString(), "-")
	return "exp_" + head
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
