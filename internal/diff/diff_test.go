package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLines_TagsAddedAndRemoved(t *testing.T) {
	t.Parallel()

	lines := Lines([]string{"a", "b", "c"}, []string{"a", "x", "c"})
	require.Len(t, lines, 4)

	assert.Equal(t, Line{Type: LineContext, Text: "a", OldLine: 1, NewLine: 1}, lines[0])
	assert.Equal(t, LineRemoved, lines[1].Type)
	assert.Equal(t, "b", lines[1].Text)
	assert.Equal(t, LineAdded, lines[2].Type)
	assert.Equal(t, "x", lines[2].Text)
	assert.Equal(t, 2, lines[2].NewLine)
	assert.Equal(t, Line{Type: LineContext, Text: "c", OldLine: 3, NewLine: 3}, lines[3])
}

func TestInserted_ReportsOnlyNewLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{1}, Inserted([]string{"B"}, []string{"B", "X"}))
	assert.Equal(t, []int{0, 1}, Inserted(nil, []string{"p", "q"}))
	assert.Empty(t, Inserted([]string{"B", "C"}, []string{"B"}))
}

func TestInserted_KeepsBlankLines(t *testing.T) {
	t.Parallel()

	got := Inserted([]string{"intro", ""}, []string{"intro", "", "more", ""})
	assert.Equal(t, []int{2, 3}, got)
}

func TestText_RendersPrefixes(t *testing.T) {
	t.Parallel()

	lines := Lines([]string{"a"}, []string{"a", "b"})
	assert.Equal(t, " a\n+b\n", Text(lines))
	assert.True(t, Changed(lines))
	assert.False(t, Changed(Lines([]string{"a"}, []string{"a"})))
}
