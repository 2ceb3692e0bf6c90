package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liminalbooks/liminal/internal/expansion"
	"github.com/liminalbooks/liminal/internal/lock"
	"github.com/liminalbooks/liminal/internal/project"
)

type fakeExpander struct {
	result expansion.Result
	err    error
	got    expansion.Selection
}

func (f *fakeExpander) Expand(_ context.Context, _, _ string, sel expansion.Selection, _ string) (expansion.Result, error) {
	f.got = sel
	return f.result, f.err
}

func (f *fakeExpander) Answer(_ context.Context, sel expansion.Selection, question string) (string, error) {
	f.got = sel
	return "answer to " + question, f.err
}

type fixture struct {
	srv     *httptest.Server
	books   *project.Store
	dataDir string
	meta    project.Meta
	page    string
}

func newFixture(t *testing.T, exp Expander) fixture {
	t.Helper()
	dataDir := t.TempDir()
	books := project.NewStore(filepath.Join(dataDir, "projects"))
	meta, err := books.Create("Go Basics", "a short book")
	require.NoError(t, err)
	page, err := books.CreatePage(meta.ID, "Intro", "# Intro\n\nHello **world**.\n\n<script>alert(1)</script>\n")
	require.NoError(t, err)

	s, err := NewServer(books, exp, dataDir, zerolog.Nop())
	require.NoError(t, err)
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return fixture{srv: srv, books: books, dataDir: dataDir, meta: meta, page: page}
}

func (f fixture) do(t *testing.T, method, path, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestIndexAndBook(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Go Basics")
	assert.Contains(t, body, "/books/"+f.meta.ID)

	resp, body = f.do(t, http.MethodGet, "/books/"+f.meta.ID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<strong>world</strong>")
	assert.NotContains(t, body, "<script>alert(1)</script>")

	resp, _ = f.do(t, http.MethodGet, "/books/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPageAPI(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	base := "/api/projects/" + f.meta.ID

	resp, body := f.do(t, http.MethodGet, base+"/pages/"+f.page, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page pageBody
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	assert.Equal(t, f.page, page.Name)
	assert.Contains(t, page.Content, "# Intro")

	resp, _ = f.do(t, http.MethodPut, base+"/pages/"+f.page, `{"content":"# Intro\n\nRewritten.\n"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	content, err := f.books.ReadPage(f.meta.ID, f.page)
	require.NoError(t, err)
	assert.Equal(t, "# Intro\n\nRewritten.\n", content)

	resp, _ = f.do(t, http.MethodPut, base+"/pages/99-nope.md", `{"content":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, base+"/pages", `{"title":"Next Steps"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	assert.Equal(t, "02-next-steps.md", page.Name)
	assert.Equal(t, project.NewPageContent, page.Content)

	resp, _ = f.do(t, http.MethodPut, base+"/order", `{"order":["02-next-steps.md","`+f.page+`"]}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	meta, err := f.books.LoadMeta(f.meta.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"02-next-steps.md", f.page}, meta.PageOrder)

	resp, _ = f.do(t, http.MethodPut, base+"/order", `{"order":["02-next-steps.md"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, base+"/pages", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExpandAndAnswer(t *testing.T) {
	t.Parallel()

	exp := &fakeExpander{result: expansion.Result{ExpansionID: "exp_1234", InsertionLine: 4, UpdatedLines: []int{4}}}
	f := newFixture(t, exp)
	path := "/api/projects/" + f.meta.ID + "/pages/" + f.page + "/expand"

	resp, body := f.do(t, http.MethodPost, path,
		`{"selection":{"startLine":3,"endLine":3,"selectedText":"Hello"},"question":"why?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"expansionId":"exp_1234"`)
	assert.Contains(t, body, `"insertionLine":4`)
	assert.Equal(t, expansion.Selection{StartLine: 3, EndLine: 3, SelectedText: "Hello"}, exp.got)

	resp, body = f.do(t, http.MethodPost, "/api/answer", `{"selection":{"selectedText":"Hello"},"question":"what?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "answer to what?")
}

func TestExpandBusyAndUnconfigured(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeExpander{})
	held, err := lock.Acquire(f.dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = held.Release() })

	path := "/api/projects/" + f.meta.ID + "/pages/" + f.page + "/expand"
	resp, _ := f.do(t, http.MethodPost, path, `{"selection":{},"question":"q"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	bare := newFixture(t, nil)
	resp, _ = bare.do(t, http.MethodPost, "/api/answer", `{"question":"q"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
