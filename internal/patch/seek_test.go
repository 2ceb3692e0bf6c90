package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeekSequence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		lines   []string
		pattern []string
		start   int
		eof     bool
		want    int
		wantOK  bool
	}{
		{
			name:    "exact copy wins over whitespace-varied copy",
			lines:   []string{"  foo", "bar  ", "x", "foo", "bar"},
			pattern: []string{"foo", "bar"},
			want:    3,
			wantOK:  true,
		},
		{
			name:    "trimmed match when no exact copy",
			lines:   []string{"x", "  foo", "bar  "},
			pattern: []string{"foo", "bar"},
			want:    1,
			wantOK:  true,
		},
		{
			name:    "wraps around above the origin",
			lines:   []string{"a", "b", "c"},
			pattern: []string{"a"},
			start:   2,
			want:    0,
			wantOK:  true,
		},
		{
			name:    "eof anchors at the last feasible index",
			lines:   []string{"x", "y", "x"},
			pattern: []string{"x"},
			eof:     true,
			want:    2,
			wantOK:  true,
		},
		{
			name:    "start past the end is clamped",
			lines:   []string{"a", "b"},
			pattern: []string{"b"},
			start:   10,
			want:    1,
			wantOK:  true,
		},
		{
			name:    "empty pattern matches at start",
			lines:   []string{"a"},
			pattern: nil,
			start:   4,
			want:    4,
			wantOK:  true,
		},
		{
			name:    "pattern longer than document",
			lines:   []string{"a"},
			pattern: []string{"a", "b"},
		},
		{
			name:    "no match",
			lines:   []string{"a", "b"},
			pattern: []string{"c"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := SeekSequence(tc.lines, tc.pattern, tc.start, tc.eof)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestFindLineFuzzy(t *testing.T) {
	t.Parallel()

	lines := []string{
		"# Intro",
		"",
		"Some text here about channels.",
		"The quick brown fox jumps",
	}

	idx, ok := FindLineFuzzy(lines, "  # Intro ")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = FindLineFuzzy(lines, "text here")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	idx, ok = FindLineFuzzy(lines, "The quick brown dog")
	assert.True(t, ok)
	assert.Equal(t, 3, idx)

	_, ok = FindLineFuzzy(lines, "nothing like it")
	assert.False(t, ok)
}

func TestFindLineFuzzy_BlankLinesDoNotContain(t *testing.T) {
	t.Parallel()

	_, ok := FindLineFuzzy([]string{"", "   "}, "heading")
	assert.False(t, ok)
}
