package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	sqlDB, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewStore(sqlDB)
}

func fixedClock(s *Store, start time.Time) func(time.Duration) {
	now := start
	s.now = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

func TestOpen_FileDatabaseCreatesDirectory(t *testing.T) {
	t.Parallel()

	sqlDB, err := Open(t.TempDir() + "/nested/liminal.db")
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestSessions_CreateAppendLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	sess, err := s.CreateSession(ctx, "proj-1", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionTitle, sess.Title)

	_, err = s.AppendMessage(ctx, "proj-1", sess.ID, "user", "Add a section on select statements")
	require.NoError(t, err)
	updated, err := s.AppendMessage(ctx, "proj-1", sess.ID, "assistant", "Done.")
	require.NoError(t, err)
	assert.Equal(t, "Add a section on select statements", updated.Title)

	loaded, err := s.LoadSession(ctx, "proj-1", sess.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, "user", loaded.Messages[0].Role)
	assert.Equal(t, "Done.", loaded.Messages[1].Content)
	assert.Equal(t, "Add a section on select statements", loaded.Title)
}

func TestSessions_AutoTitleTruncatesLongMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	sess, err := s.CreateSession(ctx, "p", DefaultSessionTitle)
	require.NoError(t, err)

	long := strings.Repeat("é", 60)
	updated, err := s.AppendMessage(ctx, "p", sess.ID, "user", long)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 50)+"...", updated.Title)

	again, err := s.AppendMessage(ctx, "p", sess.ID, "user", "second")
	require.NoError(t, err)
	assert.Equal(t, updated.Title, again.Title)
}

func TestSessions_CustomTitleIsKept(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	sess, err := s.CreateSession(ctx, "p", "Chapter 3 fixes")
	require.NoError(t, err)

	updated, err := s.AppendMessage(ctx, "p", sess.ID, "user", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Chapter 3 fixes", updated.Title)
}

func TestSessions_LoadWrongProject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	sess, err := s.CreateSession(ctx, "p", "")
	require.NoError(t, err)

	_, err = s.LoadSession(ctx, "other", sess.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.AppendMessage(ctx, "other", sess.ID, "user", "x")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessions_SaveReplacesMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	sess, err := s.CreateSession(ctx, "p", "")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, "p", sess.ID, "user", "one")
	require.NoError(t, err)

	sess.Title = "Renamed"
	sess.Messages = []Message{{Role: "user", Content: "a"}, {Role: "assistant", Content: "b"}, {Role: "user", Content: "c"}}
	require.NoError(t, s.SaveSession(ctx, sess))

	loaded, err := s.LoadSession(ctx, "p", sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Title)
	require.Len(t, loaded.Messages, 3)
	assert.Equal(t, "c", loaded.Messages[2].Content)
}

func TestSessions_ListAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	advance := fixedClock(s, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	first, err := s.CreateSession(ctx, "p", "first")
	require.NoError(t, err)
	advance(time.Second)
	second, err := s.CreateSession(ctx, "p", "second")
	require.NoError(t, err)
	_, err = s.CreateSession(ctx, "elsewhere", "x")
	require.NoError(t, err)

	advance(time.Second)
	_, err = s.AppendMessage(ctx, "p", first.ID, "user", "bump")
	require.NoError(t, err)

	list, err := s.ListSessions(ctx, "p")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, 1, list[0].MessageCount)
	assert.Equal(t, second.ID, list[1].ID)

	require.NoError(t, s.DeleteSession(ctx, "p", first.ID))
	require.NoError(t, s.DeleteSession(ctx, "p", first.ID))
	list, err = s.ListSessions(ctx, "p")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.DeleteProjectSessions(ctx, "p"))
	list, err = s.ListSessions(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRuns_EventLog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateRun(ctx, Run{RunID: "run-1", Kind: "generate", ProjectID: "p"}))
	require.NoError(t, s.AppendEvent(ctx, "run-1", Event{Type: "iteration", Iteration: 1, Message: "Iteration 1"}))
	require.NoError(t, s.AppendEvent(ctx, "run-1", Event{Type: "tool", Iteration: 1, Tool: "create_file", Message: "Creating: Intro"}))
	require.NoError(t, s.FinishRun(ctx, "run-1", RunStatusFinished, 1, "done"))

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunStatusFinished, run.Status)
	assert.Equal(t, 1, run.Iterations)
	assert.Equal(t, "done", run.Summary)
	assert.Equal(t, "p", run.ProjectID)
	assert.Empty(t, run.SessionID)
	assert.False(t, run.EndedAt.IsZero())

	events, err := s.ListEvents(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "run_started", events[0].Type)
	assert.Equal(t, 3, events[2].Seq)
	assert.Equal(t, "create_file", events[2].Tool)
	assert.Equal(t, "run_finished", events[3].Type)

	runs, err := s.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	runs, err = s.ListRuns(ctx, "other", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRuns_Missing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetRun(ctx, "nope")
	require.ErrorIs(t, err, ErrRunNotFound)
	require.ErrorIs(t, s.FinishRun(ctx, "nope", RunStatusFailed, 0, ""), ErrRunNotFound)
	require.Error(t, s.AppendEvent(ctx, "nope", Event{Type: "x"}))
}
