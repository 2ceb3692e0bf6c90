package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "projects"))
}

func TestStore_CreateAndLoad(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	meta, err := s.Create("Go Concurrency", "goroutines and channels")
	require.NoError(t, err)
	require.NotEmpty(t, meta.ID)

	loaded, err := s.LoadMeta(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go Concurrency", loaded.Title)
	assert.Equal(t, "goroutines and channels", loaded.Description)
	assert.Empty(t, loaded.PageOrder)
	assert.NotNil(t, loaded.PageOrder)

	raw, err := os.ReadFile(filepath.Join(s.Root(), meta.ID, "meta.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"pageOrder"`)
	assert.Contains(t, string(raw), `"createdAt"`)
}

func TestStore_CreatePageNumbersSequentially(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	meta, err := s.Create("Book", "")
	require.NoError(t, err)

	first, err := s.CreatePage(meta.ID, "Introduction", "# Introduction\n")
	require.NoError(t, err)
	second, err := s.CreatePage(meta.ID, "Why Go?", "# Why Go?\n")
	require.NoError(t, err)

	assert.Equal(t, "01-introduction.md", first)
	assert.Equal(t, "02-why-go.md", second)

	loaded, err := s.LoadMeta(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, loaded.PageOrder)

	content, err := s.ReadPage(meta.ID, second)
	require.NoError(t, err)
	assert.Equal(t, "# Why Go?\n", content)
}

func TestStore_CreatePageAfterDeleteKeepsExistingPages(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	meta, err := s.Create("Book", "")
	require.NoError(t, err)
	intro, err := s.CreatePage(meta.ID, "Intro", "# Intro\n")
	require.NoError(t, err)
	basics, err := s.CreatePage(meta.ID, "Basics", "ORIGINAL BASICS")
	require.NoError(t, err)

	require.NoError(t, s.DeletePage(meta.ID, intro))
	meta, err = s.LoadMeta(meta.ID)
	require.NoError(t, err)
	meta.PageOrder = []string{basics}
	require.NoError(t, s.SaveMeta(meta))

	name, err := s.CreatePage(meta.ID, "Basics", "NEW PAGE")
	require.NoError(t, err)
	assert.Equal(t, "03-basics.md", name)

	content, err := s.ReadPage(meta.ID, basics)
	require.NoError(t, err)
	assert.Equal(t, "ORIGINAL BASICS", content)

	loaded, err := s.LoadMeta(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{basics, name}, loaded.PageOrder)
}

func TestStore_CreatePageSkipsUntrackedFile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	meta, err := s.Create("Book", "")
	require.NoError(t, err)
	stray := filepath.Join(s.Root(), meta.ID, "pages", "01-notes.md")
	require.NoError(t, os.WriteFile(stray, []byte("stray"), 0o644))

	name, err := s.CreatePage(meta.ID, "Notes", "# Notes\n")
	require.NoError(t, err)
	assert.Equal(t, "02-notes.md", name)

	data, err := os.ReadFile(stray)
	require.NoError(t, err)
	assert.Equal(t, "stray", string(data))
}

func TestStore_WritePageTouchesUpdatedAt(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return base }

	meta, err := s.Create("Book", "")
	require.NoError(t, err)
	name, err := s.CreatePage(meta.ID, "One", "x")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, s.WritePage(meta.ID, name, "y"))

	loaded, err := s.LoadMeta(meta.ID)
	require.NoError(t, err)
	assert.True(t, loaded.UpdatedAt.Equal(base.Add(time.Hour)))
	assert.True(t, loaded.CreatedAt.Equal(base))
}

func TestStore_ReadMissingPage(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	meta, err := s.Create("Book", "")
	require.NoError(t, err)

	_, err = s.ReadPage(meta.ID, "09-nope.md")
	require.ErrorIs(t, err, ErrPageNotFound)

	_, err = s.LoadMeta("missing")
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestStore_RejectsPathTraversal(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	meta, err := s.Create("Book", "")
	require.NoError(t, err)

	for _, name := range []string{"../meta.json", "a/b.md", "..", ""} {
		_, err := s.ReadPage(meta.ID, name)
		require.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestStore_DeletePageIgnoresMissingFile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	meta, err := s.Create("Book", "")
	require.NoError(t, err)
	name, err := s.CreatePage(meta.ID, "One", "x")
	require.NoError(t, err)

	require.NoError(t, s.DeletePage(meta.ID, name))
	require.NoError(t, s.DeletePage(meta.ID, name))
	_, err = s.ReadPage(meta.ID, name)
	require.ErrorIs(t, err, ErrPageNotFound)
}

func TestStore_ListSortsByUpdatedAt(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	older, err := s.Create("Older", "")
	require.NoError(t, err)
	s.now = func() time.Time { return base.Add(time.Minute) }
	newer, err := s.Create("Newer", "")
	require.NoError(t, err)
	_, err = s.CreatePage(newer.ID, "Page", "x")
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "junk"), 0o755))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, 1, list[0].PageCount)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestStore_ListWithoutRoot(t *testing.T) {
	t.Parallel()

	list, err := newTestStore(t).List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	meta, err := s.Create("Book", "")
	require.NoError(t, err)

	require.NoError(t, s.Delete(meta.ID))
	_, err = s.LoadMeta(meta.ID)
	require.ErrorIs(t, err, ErrProjectNotFound)
	require.ErrorIs(t, s.Delete(meta.ID), ErrProjectNotFound)
}

func TestStore_Pages(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	meta, err := s.Create("Book", "")
	require.NoError(t, err)
	_, err = s.CreatePage(meta.ID, "Intro", "# Getting Started\nbody\n")
	require.NoError(t, err)
	_, err = s.CreatePage(meta.ID, "Notes", "no heading\n")
	require.NoError(t, err)

	pages, err := s.Pages(meta.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Getting Started", pages[0].Title)
	assert.Equal(t, "02-notes.md", pages[1].Title)
}

func TestImportFolder(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "02-error_handling.md"), []byte("plain text\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "01-intro.md"), []byte("# Welcome\nhi\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("skip"), 0o644))

	s := newTestStore(t)
	meta, err := s.ImportFolder(src, "Imported", "from disk")
	require.NoError(t, err)
	assert.Equal(t, []string{"01-welcome.md", "02-error-handling.md"}, meta.PageOrder)

	content, err := s.ReadPage(meta.ID, "02-error-handling.md")
	require.NoError(t, err)
	assert.Equal(t, "plain text\n", content)

	loaded, err := s.LoadMeta(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.PageOrder, loaded.PageOrder)
}

func TestImportFolder_Errors(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.ImportFolder(t.TempDir(), "Empty", "")
	require.ErrorIs(t, err, ErrNoMarkdown)

	_, err = s.ImportFolder(filepath.Join(t.TempDir(), "missing"), "Missing", "")
	require.Error(t, err)
}

func TestTitleFromStem(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "error handling", titleFromStem("03-error_handling"))
	assert.Equal(t, "123", titleFromStem("123"))
	assert.Equal(t, "Intro", titleFromStem("Intro"))
}

func TestStore_Reorder(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	meta, err := s.Create("Book", "")
	require.NoError(t, err)
	a, err := s.CreatePage(meta.ID, "A", "# A\n")
	require.NoError(t, err)
	b, err := s.CreatePage(meta.ID, "B", "# B\n")
	require.NoError(t, err)

	require.NoError(t, s.Reorder(meta.ID, []string{b, a}))
	loaded, err := s.LoadMeta(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b, a}, loaded.PageOrder)

	require.ErrorIs(t, s.Reorder(meta.ID, []string{b}), ErrBadOrder)
	require.ErrorIs(t, s.Reorder(meta.ID, []string{b, b}), ErrBadOrder)
	require.ErrorIs(t, s.Reorder(meta.ID, []string{a, "03-c.md"}), ErrBadOrder)
}
