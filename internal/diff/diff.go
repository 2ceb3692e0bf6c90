// Package diff computes line-level differences between page revisions.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType classifies a single diff line.
type LineType string

const (
	LineContext LineType = "context"
	LineAdded   LineType = "added"
	LineRemoved LineType = "removed"
)

// Line is a single line of a line diff.
type Line struct {
	Type    LineType `json:"type"`
	Text    string   `json:"text"`
	OldLine int      `json:"old_line,omitempty"`
	NewLine int      `json:"new_line,omitempty"`
}

// Lines diffs two line slices and returns every line tagged with its type.
// Line numbers are 1-indexed.
func Lines(before, after []string) []Line {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(joinLines(before), joinLines(after))
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out []Line
	oldLine := 1
	newLine := 1
	for _, d := range diffs {
		for _, text := range splitChunk(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				out = append(out, Line{Type: LineContext, Text: text, OldLine: oldLine, NewLine: newLine})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				out = append(out, Line{Type: LineRemoved, Text: text, OldLine: oldLine})
				oldLine++
			case diffmatchpatch.DiffInsert:
				out = append(out, Line{Type: LineAdded, Text: text, NewLine: newLine})
				newLine++
			}
		}
	}
	return out
}

// Inserted returns the 0-based indexes into after of lines that do not
// survive from before.
func Inserted(before, after []string) []int {
	if len(before) == 0 {
		out := make([]int, len(after))
		for i := range after {
			out[i] = i
		}
		return out
	}
	var out []int
	for _, l := range Lines(before, after) {
		if l.Type == LineAdded {
			out = append(out, l.NewLine-1)
		}
	}
	return out
}

// Text renders a line diff in a unified-like form with +, - and space prefixes.
func Text(lines []Line) string {
	var b strings.Builder
	for _, l := range lines {
		switch l.Type {
		case LineAdded:
			b.WriteByte('+')
		case LineRemoved:
			b.WriteByte('-')
		default:
			b.WriteByte(' ')
		}
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Changed reports whether a diff contains any added or removed line.
func Changed(lines []Line) bool {
	for _, l := range lines {
		if l.Type != LineContext {
			return true
		}
	}
	return false
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func splitChunk(text string) []string {
	parts := strings.Split(text, "\n")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
