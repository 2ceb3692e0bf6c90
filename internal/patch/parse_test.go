package patch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AddFile(t *testing.T) {
	t.Parallel()

	ops, err := Parse("*** Begin Patch\n*** Add File: pages/01-a.md\n+# A\n+body\n*** End Patch")
	require.NoError(t, err)
	require.Len(t, ops, 1)

	add, ok := ops[0].(AddFile)
	require.True(t, ok)
	assert.Equal(t, "pages/01-a.md", add.FilePath())
	assert.Equal(t, "# A\nbody\n", add.Content)
}

func TestParse_AddFileKeepsEmptyRemainders(t *testing.T) {
	t.Parallel()

	ops, err := Parse("*** Begin Patch\n*** Add File: a.md\n+one\n+\n+two\n")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "one\n\ntwo\n", ops[0].(AddFile).Content)
}

func TestParse_MissingBeginMarker(t *testing.T) {
	t.Parallel()

	ops, err := Parse("*** Update File: content.md\n@@\n-a\n+b\n*** End Patch")
	require.ErrorIs(t, err, ErrNoPatch)
	assert.Empty(t, ops)
}

func TestParse_IgnoresPreambleAndToleratesMissingEnd(t *testing.T) {
	t.Parallel()

	text := "Sure, here is the edit.\n\n*** Begin Patch\n*** Update File: content.md\n@@ ## Heading\n intro\n+added\n"
	ops, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	upd, ok := ops[0].(UpdateFile)
	require.True(t, ok)
	want := []Chunk{{
		ChangeContext: "## Heading",
		OldLines:      []string{"intro"},
		NewLines:      []string{"intro", "added"},
	}}
	if diff := cmp.Diff(want, upd.Chunks); diff != "" {
		t.Errorf("chunks mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_UpdateFileMultipleChunks(t *testing.T) {
	t.Parallel()

	text := `*** Begin Patch
*** Update File: content.md
@@
 first
-old
+new

@@second anchor
 tail
+more
*** End of File
*** Delete File: stale.md
*** End Patch`

	ops, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	upd := ops[0].(UpdateFile)
	assert.Equal(t, "content.md", upd.Path)
	want := []Chunk{
		// The blank line before the next "@@" is implicit context.
		{OldLines: []string{"first", "old", ""}, NewLines: []string{"first", "new", ""}},
		{
			ChangeContext: "second anchor",
			OldLines:      []string{"tail"},
			NewLines:      []string{"tail", "more"},
			IsEndOfFile:   true,
		},
	}
	if diff := cmp.Diff(want, upd.Chunks); diff != "" {
		t.Errorf("chunks mismatch (-want +got):\n%s", diff)
	}

	del, ok := ops[1].(DeleteFile)
	require.True(t, ok)
	assert.Equal(t, "stale.md", del.FilePath())
}

func TestParse_ChunkWithoutContextMarker(t *testing.T) {
	t.Parallel()

	ops, err := Parse("*** Begin Patch\n*** Update File: c.md\n-gone\n+here\n*** End Patch\n")
	require.NoError(t, err)
	upd := ops[0].(UpdateFile)
	require.Len(t, upd.Chunks, 1)
	assert.Empty(t, upd.Chunks[0].ChangeContext)
	assert.Equal(t, []string{"gone"}, upd.Chunks[0].OldLines)
	assert.Equal(t, []string{"here"}, upd.Chunks[0].NewLines)
}

func TestParse_DropsEmptyChunks(t *testing.T) {
	t.Parallel()

	ops, err := Parse("*** Begin Patch\n*** Update File: c.md\n@@ anchor\n@@ other\n+x\n*** End Patch")
	require.NoError(t, err)
	upd := ops[0].(UpdateFile)
	require.Len(t, upd.Chunks, 1)
	assert.Equal(t, "other", upd.Chunks[0].ChangeContext)
}

func TestParse_CRLFInput(t *testing.T) {
	t.Parallel()

	ops, err := Parse("*** Begin Patch\r\n*** Add File: a.md\r\n+line\r\n*** End Patch\r\n")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "line\n", ops[0].(AddFile).Content)
}
