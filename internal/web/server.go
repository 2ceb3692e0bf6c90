// Package web serves a local reader for books and a JSON API over the
// project store and the selection expander.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/liminalbooks/liminal/internal/expansion"
	"github.com/liminalbooks/liminal/internal/lock"
	"github.com/liminalbooks/liminal/internal/patch"
	"github.com/liminalbooks/liminal/internal/project"
)

// Books is the project store the server reads and writes.
type Books interface {
	List() ([]project.Summary, error)
	LoadMeta(projectID string) (project.Meta, error)
	Pages(projectID string) ([]project.Page, error)
	ReadPage(projectID, page string) (string, error)
	WritePage(projectID, page, content string) error
	CreatePage(projectID, title, content string) (string, error)
	Reorder(projectID string, order []string) error
}

// Expander extends pages and answers questions about selections.
type Expander interface {
	Expand(ctx context.Context, projectID, page string, sel expansion.Selection, question string) (expansion.Result, error)
	Answer(ctx context.Context, sel expansion.Selection, question string) (string, error)
}

// Server provides the web UI handlers and state.
type Server struct {
	books    Books
	expander Expander
	dataDir  string
	md       goldmark.Markdown
	tmpl     *template.Template
	logger   zerolog.Logger
}

//go:embed templates/*.html
var templatesFS embed.FS

// NewServer creates a new web server. expander may be nil, in which case the
// model-backed endpoints answer 503.
func NewServer(books Books, expander Expander, dataDir string, logger zerolog.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		books:    books,
		expander: expander,
		dataDir:  dataDir,
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
		tmpl:     tmpl,
		logger:   logger,
	}, nil
}

// Routes returns the router for the web UI and API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /books/{id}", s.handleBook)
	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	mux.HandleFunc("PUT /api/projects/{id}/order", s.handleReorder)
	mux.HandleFunc("POST /api/projects/{id}/pages", s.handleAddPage)
	mux.HandleFunc("GET /api/projects/{id}/pages/{page}", s.handleGetPage)
	mux.HandleFunc("PUT /api/projects/{id}/pages/{page}", s.handleSavePage)
	mux.HandleFunc("POST /api/projects/{id}/pages/{page}/expand", s.handleExpand)
	mux.HandleFunc("POST /api/answer", s.handleAnswer)
	return mux
}

type renderedPage struct {
	Name  string
	Title string
	HTML  template.HTML
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	items, err := s.books.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.render(w, "index.html", items)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	meta, err := s.books.LoadMeta(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	pages, err := s.books.Pages(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]renderedPage, 0, len(pages))
	for _, p := range pages {
		var buf bytes.Buffer
		if err := s.md.Convert([]byte(p.Content), &buf); err != nil {
			s.writeError(w, err)
			return
		}
		// goldmark escapes raw HTML unless WithUnsafe is set.
		out = append(out, renderedPage{Name: p.Name, Title: p.Title, HTML: template.HTML(buf.String())})
	}
	s.render(w, "book.html", struct {
		Meta  project.Meta
		Pages []renderedPage
	}{Meta: meta, Pages: out})
}

func (s *Server) handleListProjects(w http.ResponseWriter, _ *http.Request) {
	items, err := s.books.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	meta, err := s.books.LoadMeta(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

type pageBody struct {
	Name    string `json:"name,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	page := r.PathValue("page")
	content, err := s.books.ReadPage(r.PathValue("id"), page)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageBody{Name: page, Content: content})
}

func (s *Server) handleSavePage(w http.ResponseWriter, r *http.Request) {
	var body pageBody
	if !decodeJSON(w, r, &body) {
		return
	}
	id, page := r.PathValue("id"), r.PathValue("page")
	if _, err := s.books.ReadPage(id, page); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.books.WritePage(id, page, body.Content); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddPage(w http.ResponseWriter, r *http.Request) {
	var body pageBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "title is required"})
		return
	}
	if body.Content == "" {
		body.Content = project.NewPageContent
	}
	name, err := s.books.CreatePage(r.PathValue("id"), body.Title, body.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pageBody{Name: name, Title: body.Title, Content: body.Content})
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Order []string `json:"order"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.books.Reorder(r.PathValue("id"), body.Order); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type expandRequest struct {
	Selection expansion.Selection `json:"selection"`
	Question  string              `json:"question"`
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	if s.expander == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "no language model configured"})
		return
	}
	var req expandRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	l, err := lock.Acquire(s.dataDir)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer func() { _ = l.Release() }()

	res, err := s.expander.Expand(r.Context(), r.PathValue("id"), r.PathValue("page"), req.Selection, req.Question)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if s.expander == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "no language model configured"})
		return
	}
	var req expandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	answer, err := s.expander.Answer(r.Context(), req.Selection, req.Question)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Answer string `json:"answer"`
	}{Answer: answer})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, project.ErrProjectNotFound), errors.Is(err, project.ErrPageNotFound):
		status = http.StatusNotFound
	case errors.Is(err, project.ErrInvalidName), errors.Is(err, project.ErrBadOrder):
		status = http.StatusBadRequest
	case errors.Is(err, lock.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, patch.ErrNoPatch):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
