// Package project stores books on disk: one directory per project holding a
// meta.json manifest and a pages/ folder of markdown files.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	metaFile = "meta.json"
	pagesDir = "pages"
)

var (
	// ErrProjectNotFound is returned when a project directory has no manifest.
	ErrProjectNotFound = errors.New("project not found")
	// ErrPageNotFound is returned when a page file does not exist.
	ErrPageNotFound = errors.New("page not found")
	// ErrInvalidName is returned for ids and page names that are not flat file names.
	ErrInvalidName = errors.New("invalid name")
	// ErrNoMarkdown is returned when an import folder holds no markdown files.
	ErrNoMarkdown = errors.New("no markdown files found in folder")
)

// Meta is the project manifest persisted as meta.json.
type Meta struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	PageOrder   []string  `json:"pageOrder"`
}

// Summary is a project list entry.
type Summary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PageCount   int       `json:"pageCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Page is a loaded page.
type Page struct {
	Name    string
	Title   string
	Content string
}

// Store manages projects under a root directory.
type Store struct {
	root string
	now  func() time.Time
}

// NewStore returns a store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{root: dir, now: func() time.Time { return time.Now().UTC() }}
}

// Root returns the directory holding project folders.
func (s *Store) Root() string { return s.root }

// Create allocates a new empty project.
func (s *Store) Create(title, description string) (Meta, error) {
	now := s.now()
	meta := Meta{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		PageOrder:   []string{},
	}
	if err := s.SaveMeta(meta); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// List returns every readable project, most recently updated first.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("read projects dir: %w", err)
	}

	out := []Summary{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.LoadMeta(entry.Name())
		if err != nil {
			continue
		}
		out = append(out, Summary{
			ID:          meta.ID,
			Title:       meta.Title,
			Description: meta.Description,
			PageCount:   len(meta.PageOrder),
			UpdatedAt:   meta.UpdatedAt,
		})
	}
	slices.SortStableFunc(out, func(a, b Summary) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

// LoadMeta reads a project manifest.
func (s *Store) LoadMeta(projectID string) (Meta, error) {
	dir, err := s.projectDir(projectID)
	if err != nil {
		return Meta{}, err
	}
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, fmt.Errorf("load project %q: %w", projectID, ErrProjectNotFound)
		}
		return Meta{}, fmt.Errorf("load project %q: %w", projectID, err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("parse project %q: %w", projectID, err)
	}
	if meta.PageOrder == nil {
		meta.PageOrder = []string{}
	}
	return meta, nil
}

// SaveMeta writes a project manifest, creating the project layout if needed.
func (s *Store) SaveMeta(meta Meta) error {
	dir, err := s.projectDir(meta.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dir, pagesDir), 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	if err := atomicWrite(filepath.Join(dir, metaFile), data); err != nil {
		return fmt.Errorf("write project: %w", err)
	}
	return nil
}

// Delete removes a project and all of its pages.
func (s *Store) Delete(projectID string) error {
	dir, err := s.projectDir(projectID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, metaFile)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete project %q: %w", projectID, ErrProjectNotFound)
		}
		return err
	}
	return os.RemoveAll(dir)
}

// ReadPage returns the content of a page.
func (s *Store) ReadPage(projectID, page string) (string, error) {
	path, err := s.pagePath(projectID, page)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("read page %q: %w", page, ErrPageNotFound)
		}
		return "", fmt.Errorf("read page %q: %w", page, err)
	}
	return string(data), nil
}

// WritePage replaces the content of a page and touches the project's
// update time.
func (s *Store) WritePage(projectID, page, content string) error {
	path, err := s.pagePath(projectID, page)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create pages dir: %w", err)
	}
	if err := atomicWrite(path, []byte(content)); err != nil {
		return fmt.Errorf("write page %q: %w", page, err)
	}

	if meta, err := s.LoadMeta(projectID); err == nil {
		meta.UpdatedAt = s.now()
		_ = s.SaveMeta(meta)
	}
	return nil
}

// CreatePage appends a new page and returns its file name. The page number
// follows the highest numbered page in the book and skips any name already
// tracked or present on disk.
func (s *Store) CreatePage(projectID, title, content string) (string, error) {
	meta, err := s.LoadMeta(projectID)
	if err != nil {
		return "", err
	}

	n := len(meta.PageOrder) + 1
	for _, existing := range meta.PageOrder {
		if num, ok := pageNumber(existing); ok {
			n = max(n, num+1)
		}
	}
	name := PageName(n, title)
	for s.pageTaken(projectID, meta, name) {
		n++
		name = PageName(n, title)
	}
	if err := s.WritePage(projectID, name, content); err != nil {
		return "", err
	}

	meta.PageOrder = append(meta.PageOrder, name)
	meta.UpdatedAt = s.now()
	if err := s.SaveMeta(meta); err != nil {
		return "", err
	}
	return name, nil
}

// DeletePage removes a page file. A missing file is not an error.
func (s *Store) DeletePage(projectID, page string) error {
	path, err := s.pagePath(projectID, page)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete page %q: %w", page, err)
	}
	return nil
}

// NewPageContent is the body of a page added without content.
const NewPageContent = "# New Page\n\nStart writing here..."

// ErrBadOrder is returned when a reorder is not a permutation of the current pages.
var ErrBadOrder = errors.New("page order must list every page exactly once")

// Reorder replaces the page order. The new order must contain exactly the
// pages already in the book.
func (s *Store) Reorder(projectID string, order []string) error {
	meta, err := s.LoadMeta(projectID)
	if err != nil {
		return err
	}
	if len(order) != len(meta.PageOrder) {
		return fmt.Errorf("reorder %q: %w", projectID, ErrBadOrder)
	}
	want := slices.Sorted(slices.Values(meta.PageOrder))
	got := slices.Sorted(slices.Values(order))
	if !slices.Equal(want, got) {
		return fmt.Errorf("reorder %q: %w", projectID, ErrBadOrder)
	}
	meta.PageOrder = slices.Clone(order)
	meta.UpdatedAt = s.now()
	return s.SaveMeta(meta)
}

// Pages loads every page of a project in page order. Titles come from the
// first level-one heading, falling back to the file name.
func (s *Store) Pages(projectID string) ([]Page, error) {
	meta, err := s.LoadMeta(projectID)
	if err != nil {
		return nil, err
	}
	pages := make([]Page, 0, len(meta.PageOrder))
	for _, name := range meta.PageOrder {
		content, err := s.ReadPage(projectID, name)
		if err != nil {
			return nil, err
		}
		title, ok := HeadingTitle(content)
		if !ok {
			title = name
		}
		pages = append(pages, Page{Name: name, Title: title, Content: content})
	}
	return pages, nil
}

// PageName builds the file name of the n-th page.
func PageName(n int, title string) string {
	s := slug.Make(title)
	if s == "" {
		s = "page"
	}
	return fmt.Sprintf("%02d-%s.md", n, s)
}

// pageNumber parses the NN prefix of a page file name.
func pageNumber(name string) (int, bool) {
	prefix, _, ok := strings.Cut(name, "-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s *Store) pageTaken(projectID string, meta Meta, name string) bool {
	if slices.Contains(meta.PageOrder, name) {
		return true
	}
	path, err := s.pagePath(projectID, name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// HeadingTitle returns the text of the first "# " line.
func HeadingTitle(content string) (string, bool) {
	for line := range strings.Lines(content) {
		if rest, ok := strings.CutPrefix(strings.TrimRight(line, "\r\n"), "# "); ok {
			return rest, true
		}
	}
	return "", false
}

func (s *Store) projectDir(projectID string) (string, error) {
	if err := validateName(projectID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, projectID), nil
}

func (s *Store) pagePath(projectID, page string) (string, error) {
	dir, err := s.projectDir(projectID)
	if err != nil {
		return "", err
	}
	if err := validateName(page); err != nil {
		return "", err
	}
	return filepath.Join(dir, pagesDir, page), nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name)
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}
