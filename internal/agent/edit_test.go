package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liminalbooks/liminal/internal/db"
	"github.com/liminalbooks/liminal/internal/llm"
)

func TestEditor_ChatEditsAndResponds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	docs := newProjectStore(t)
	meta := newProject(t, docs, "Intro", "# Intro\n\nChannels connect goroutines.\n")
	sessions := newDBStore(t)
	sess, err := sessions.CreateSession(ctx, meta.ID, "")
	require.NoError(t, err)

	client := &scriptedClient{replies: []string{
		toolCall(ToolEditFile, `{"filename": "01-intro.md", "old_content": "Channels connect goroutines.", "new_content": "Channels connect goroutines and synchronize them."}`),
		toolCall(ToolRespond, `{"message": "I expanded the first paragraph."}`),
	}}

	editor := NewEditor(docs, sessions, client, Options{Runs: sessions}, testLogger())
	res, err := editor.Chat(ctx, meta.ID, sess.ID, "Mention synchronization in the intro")
	require.NoError(t, err)

	assert.Equal(t, "I expanded the first paragraph.", res.Response)
	assert.Equal(t, ToolRespond, res.ToolUsed)
	assert.True(t, res.PagesChanged)
	assert.NotEmpty(t, res.RunID)

	content, err := docs.ReadPage(meta.ID, "01-intro.md")
	require.NoError(t, err)
	assert.Equal(t, "# Intro\n\nChannels connect goroutines and synchronize them.\n", content)

	loaded, err := sessions.LoadSession(ctx, meta.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mention synchronization in the intro", loaded.Title)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, "user", loaded.Messages[0].Role)
	assert.Equal(t, "assistant", loaded.Messages[1].Role)
	assert.Equal(t, "I expanded the first paragraph.", loaded.Messages[1].Content)

	run, err := sessions.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "edit", run.Kind)
	assert.Equal(t, sess.ID, run.SessionID)
	assert.Equal(t, db.RunStatusFinished, run.Status)
}

func TestEditor_ExhaustedLoopFallsBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		finalCall string
		want      string
	}{
		{
			name:      "extra call responds",
			finalCall: toolCall(ToolRespond, `{"message": "Nothing needed changing."}`),
			want:      "Nothing needed changing.",
		},
		{
			name:      "extra call does not respond",
			finalCall: toolCall(ToolListFiles, ""),
			want:      "I've made the requested changes to your learning material.",
		},
		{
			name:      "extra call is prose",
			finalCall: "All done!",
			want:      "I've made the requested changes to your learning material.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			docs := newProjectStore(t)
			meta := newProject(t, docs, "Intro", "# Intro\n")
			sessions := newDBStore(t)
			sess, err := sessions.CreateSession(ctx, meta.ID, "")
			require.NoError(t, err)

			list := toolCall(ToolListFiles, "")
			client := &scriptedClient{replies: []string{list, list, tc.finalCall}}

			editor := NewEditor(docs, sessions, client, Options{MaxIterations: 2}, testLogger())
			res, err := editor.Chat(ctx, meta.ID, sess.ID, "What is in the book?")
			require.NoError(t, err)

			assert.Equal(t, tc.want, res.Response)
			assert.Equal(t, 3, client.callCount())
			assert.False(t, res.PagesChanged)

			last := client.calls[2]
			assert.Equal(t, "Now use the respond tool to tell the user what you did.", last[len(last)-1].Content)
		})
	}
}

func TestEditor_ReplaysOnlyRecentHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	docs := newProjectStore(t)
	meta := newProject(t, docs)
	sessions := newDBStore(t)
	sess, err := sessions.CreateSession(ctx, meta.ID, "Long chat")
	require.NoError(t, err)
	for i := range 30 {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		sess.Messages = append(sess.Messages, db.Message{Role: role, Content: fmt.Sprintf("message %d", i)})
	}
	require.NoError(t, sessions.SaveSession(ctx, sess))

	client := &scriptedClient{replies: []string{"Sure."}}
	editor := NewEditor(docs, sessions, client, Options{HistoryLimit: 20}, testLogger())
	res, err := editor.Chat(ctx, meta.ID, sess.ID, "latest question")
	require.NoError(t, err)
	assert.Equal(t, "Sure.", res.Response)
	assert.Empty(t, res.ToolUsed)

	first := client.calls[0]
	require.Len(t, first, 21)
	assert.Equal(t, llm.RoleSystem, first[0].Role)
	assert.Contains(t, first[0].Content, "delete_file")
	assert.Equal(t, "message 11", first[1].Content)
	assert.Equal(t, llm.RoleAssistant, first[1].Role)
	assert.Equal(t, llm.User("latest question"), first[20])

	loaded, err := sessions.LoadSession(ctx, meta.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Long chat", loaded.Title)
	assert.Len(t, loaded.Messages, 32)
}

func TestEditor_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing session", func(t *testing.T) {
		t.Parallel()
		docs := newProjectStore(t)
		meta := newProject(t, docs)
		client := &scriptedClient{}

		editor := NewEditor(docs, newDBStore(t), client, Options{}, testLogger())
		_, err := editor.Chat(ctx, meta.ID, "nope", "hello")
		require.ErrorIs(t, err, db.ErrSessionNotFound)
		assert.Zero(t, client.callCount())
	})

	t.Run("model failure saves nothing", func(t *testing.T) {
		t.Parallel()
		docs := newProjectStore(t)
		meta := newProject(t, docs)
		sessions := newDBStore(t)
		sess, err := sessions.CreateSession(ctx, meta.ID, "")
		require.NoError(t, err)

		boom := errors.New("timeout")
		client := &scriptedClient{err: boom}
		editor := NewEditor(docs, sessions, client, Options{}, testLogger())
		_, err = editor.Chat(ctx, meta.ID, sess.ID, "hello")
		require.ErrorIs(t, err, boom)

		loaded, err := sessions.LoadSession(ctx, meta.ID, sess.ID)
		require.NoError(t, err)
		assert.Empty(t, loaded.Messages)
		assert.Equal(t, db.DefaultSessionTitle, loaded.Title)
	})
}
