package agent

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/liminalbooks/liminal/internal/project"
)

const (
	defaultPageTitle     = "Untitled"
	defaultFinishSummary = "Content generation complete."
	defaultRespondText   = "I'm here to help with your learning material."
)

// DocumentStore persists book pages and metadata.
type DocumentStore interface {
	ReadPage(projectID, page string) (string, error)
	WritePage(projectID, page, content string) error
	CreatePage(projectID, title, content string) (string, error)
	DeletePage(projectID, page string) error
	LoadMeta(projectID string) (project.Meta, error)
	SaveMeta(meta project.Meta) error
}

// Executor runs typed tool calls against a DocumentStore.
type Executor struct {
	docs   DocumentStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewExecutor constructs an Executor.
func NewExecutor(docs DocumentStore, logger zerolog.Logger) *Executor {
	return &Executor{
		docs:   docs,
		logger: logger.With().Str("component", "agent.executor").Logger(),
		now:    time.Now,
	}
}

// Execute runs one tool call. Failures are reported through the result and
// never returned as errors, so the model can correct itself.
func (e *Executor) Execute(state *State, mode Mode, call ToolCall) ToolResult {
	action, err := DecodeAction(mode, call)
	if err != nil {
		e.logger.Debug().Err(err).Str("tool", call.Name).Msg("tool call rejected")
		if errors.Is(err, ErrUnknownTool) {
			return failed(call.Name, "Unknown tool: "+call.Name)
		}
		return failed(call.Name, fmt.Sprintf("Invalid arguments: %v", err))
	}

	start := time.Now()
	res := e.run(state, mode, action)
	e.logger.Debug().
		Str("tool", res.ToolName).
		Bool("success", res.Success).
		Dur("duration", time.Since(start)).
		Msg("tool executed")
	return res
}

func (e *Executor) run(state *State, mode Mode, action Action) ToolResult {
	switch a := action.(type) {
	case CreateFile:
		return e.createFile(state, a)
	case EditFile:
		return e.editFile(state, a)
	case ReadFile:
		return e.readFile(state, a)
	case ListFiles:
		return e.listFiles(state, mode)
	case SetBookInfo:
		return e.setBookInfo(state, mode, a)
	case DeleteFile:
		return e.deleteFile(state, a)
	case Respond:
		msg := a.Message
		if msg == "" {
			msg = defaultRespondText
		}
		state.ResponseToUser = &msg
		return succeeded(a.ToolName(), msg)
	case Finish:
		summary := a.Summary
		if summary == "" {
			summary = defaultFinishSummary
		}
		state.Finished = true
		return succeeded(a.ToolName(), "Finished: "+summary)
	default:
		return failed(action.ToolName(), "Unknown tool: "+action.ToolName())
	}
}

func (e *Executor) createFile(state *State, a CreateFile) ToolResult {
	title := a.Title
	if title == "" {
		title = defaultPageTitle
	}
	filename, err := e.docs.CreatePage(state.ProjectID, title, a.Content)
	if err != nil {
		return failed(a.ToolName(), fmt.Sprintf("Failed to create page: %v", err))
	}
	state.Pages = append(state.Pages, PageInfo{Filename: filename, Title: title})
	return succeeded(a.ToolName(), fmt.Sprintf("Created page '%s' as %s", title, filename))
}

func (e *Executor) editFile(state *State, a EditFile) ToolResult {
	content, err := e.docs.ReadPage(state.ProjectID, a.Filename)
	if err != nil {
		return failed(a.ToolName(), fmt.Sprintf("Failed to read file '%s': %v", a.Filename, err))
	}
	if a.OldContent == "" {
		return failed(a.ToolName(), fmt.Sprintf("old_content is empty. Provide the exact text to replace in '%s'.", a.Filename))
	}
	if !strings.Contains(content, a.OldContent) {
		return failed(a.ToolName(), fmt.Sprintf("Could not find the specified text in '%s'. Make sure old_content matches exactly.", a.Filename))
	}
	updated := strings.Replace(content, a.OldContent, a.NewContent, 1)
	if err := e.docs.WritePage(state.ProjectID, a.Filename, updated); err != nil {
		return failed(a.ToolName(), fmt.Sprintf("Failed to save edits to '%s': %v", a.Filename, err))
	}
	return succeeded(a.ToolName(), fmt.Sprintf("Successfully edited '%s'", a.Filename))
}

func (e *Executor) readFile(state *State, a ReadFile) ToolResult {
	content, err := e.docs.ReadPage(state.ProjectID, a.Filename)
	if err != nil {
		return failed(a.ToolName(), fmt.Sprintf("Failed to read '%s': %v", a.Filename, err))
	}
	return succeeded(a.ToolName(), fmt.Sprintf("Content of '%s':\n\n%s", a.Filename, content))
}

func (e *Executor) listFiles(state *State, mode Mode) ToolResult {
	name := ToolListFiles
	if mode == ModeEdit && len(state.Pages) == 0 {
		if meta, err := e.docs.LoadMeta(state.ProjectID); err == nil {
			for _, f := range meta.PageOrder {
				state.Pages = append(state.Pages, PageInfo{Filename: f, Title: f})
			}
		} else {
			e.logger.Warn().Err(err).Str("project_id", state.ProjectID).Msg("refresh page list")
		}
	}

	if len(state.Pages) == 0 {
		if mode == ModeEdit {
			return succeeded(name, "No pages in this project yet.")
		}
		return succeeded(name, "No pages created yet.")
	}

	var b strings.Builder
	b.WriteString("Pages in project:")
	for _, p := range state.Pages {
		b.WriteString("\n- ")
		b.WriteString(p.Filename)
		if mode == ModeGenerate {
			b.WriteString(" (" + p.Title + ")")
		}
	}
	return succeeded(name, b.String())
}

func (e *Executor) setBookInfo(state *State, mode Mode, a SetBookInfo) ToolResult {
	title := a.Title
	if title == "" {
		title = defaultPageTitle
	}
	meta, err := e.docs.LoadMeta(state.ProjectID)
	if err != nil {
		return failed(a.ToolName(), fmt.Sprintf("Failed to load project: %v", err))
	}
	meta.Title = title
	meta.Description = a.Description
	meta.UpdatedAt = e.now().UTC()
	if err := e.docs.SaveMeta(meta); err != nil {
		return failed(a.ToolName(), fmt.Sprintf("Failed to save book info: %v", err))
	}
	state.BookTitle = title

	if mode == ModeEdit {
		return succeeded(a.ToolName(), fmt.Sprintf("Updated book - Title: '%s', Description: '%s'", title, a.Description))
	}
	return succeeded(a.ToolName(), fmt.Sprintf("Book info set - Title: '%s', Description: '%s'", title, a.Description))
}

func (e *Executor) deleteFile(state *State, a DeleteFile) ToolResult {
	meta, err := e.docs.LoadMeta(state.ProjectID)
	if err != nil {
		return failed(a.ToolName(), fmt.Sprintf("Failed to load project: %v", err))
	}
	idx := slices.Index(meta.PageOrder, a.Filename)
	if idx < 0 {
		return failed(a.ToolName(), fmt.Sprintf("File '%s' not found in project", a.Filename))
	}

	meta.PageOrder = slices.Delete(meta.PageOrder, idx, idx+1)
	if err := e.docs.DeletePage(state.ProjectID, a.Filename); err != nil {
		return failed(a.ToolName(), fmt.Sprintf("Failed to delete '%s': %v", a.Filename, err))
	}
	meta.UpdatedAt = e.now().UTC()
	if err := e.docs.SaveMeta(meta); err != nil {
		return failed(a.ToolName(), fmt.Sprintf("Failed to save project: %v", err))
	}
	state.removePage(a.Filename)
	return succeeded(a.ToolName(), fmt.Sprintf("Deleted '%s'", a.Filename))
}
