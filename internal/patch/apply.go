package patch

import (
	"cmp"
	"slices"
	"strings"

	"github.com/liminalbooks/liminal/internal/diff"
)

// Replacement swaps OldLen lines at Start for NewLines.
type Replacement struct {
	Start    int
	OldLen   int
	NewLines []string
}

// Result is the outcome of applying update chunks to a document.
type Result struct {
	Content string
	// InsertedLines are the 1-indexed final positions of lines the patch added.
	InsertedLines []int
	// InsertedText is the added lines joined by "\n".
	InsertedText string
}

// ApplyUpdateChunks applies chunks to text and returns the new document. The
// result ends with exactly one line break; trailing blank lines are dropped
// along with their inserted positions.
func ApplyUpdateChunks(text string, chunks []Chunk) Result {
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	reps := ComputeReplacements(lines, chunks)
	out, inserted, insertedText := ApplyReplacements(lines, reps)

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	inserted = slices.DeleteFunc(inserted, func(p int) bool { return p > len(out) })

	return Result{
		Content:       strings.Join(out, "\n") + "\n",
		InsertedLines: inserted,
		InsertedText:  insertedText,
	}
}

// ComputeReplacements resolves every chunk to a position in lines. Chunks are
// processed in order with a cursor that only moves forward on successful
// matches; unresolved chunks degrade to insertions instead of failing. The
// result is stably sorted by start.
func ComputeReplacements(lines []string, chunks []Chunk) []Replacement {
	var reps []Replacement
	cursor := 0

	for _, chunk := range chunks {
		if chunk.ChangeContext != "" {
			if idx, ok := SeekSequence(lines, []string{chunk.ChangeContext}, cursor, false); ok {
				cursor = idx + 1
			} else if idx, ok := FindLineFuzzy(lines, chunk.ChangeContext); ok {
				cursor = idx + 1
			}
		}

		if len(chunk.OldLines) == 0 {
			at := min(cursor, len(lines))
			if chunk.IsEndOfFile {
				at = len(lines)
			}
			reps = append(reps, Replacement{Start: at, NewLines: slices.Clone(chunk.NewLines)})
			continue
		}

		if rep, ok := locate(lines, chunk, cursor); ok {
			reps = append(reps, rep)
			cursor = rep.Start + rep.OldLen
			continue
		}

		at := len(lines)
		if cursor > 0 {
			at = min(cursor, len(lines))
		}
		reps = append(reps, Replacement{Start: at, NewLines: slices.Clone(chunk.NewLines)})
	}

	slices.SortStableFunc(reps, func(a, b Replacement) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return reps
}

// locate finds the old lines of a chunk: sequence seek, then the same seek
// without a trailing blank line, then a fuzzy anchor on the first
// significant old line.
func locate(lines []string, chunk Chunk, cursor int) (Replacement, bool) {
	old := chunk.OldLines
	repl := slices.Clone(chunk.NewLines)

	if at, ok := SeekSequence(lines, old, cursor, chunk.IsEndOfFile); ok {
		return Replacement{Start: at, OldLen: len(old), NewLines: repl}, true
	}

	if n := len(old); n > 1 && old[n-1] == "" {
		if at, ok := SeekSequence(lines, old[:n-1], cursor, chunk.IsEndOfFile); ok {
			if m := len(repl); m > 0 && repl[m-1] == "" {
				repl = repl[:m-1]
			}
			return Replacement{Start: at, OldLen: n - 1, NewLines: repl}, true
		}
	}

	if at, oldLen, ok := fuzzyAnchor(lines, old); ok {
		return Replacement{Start: at, OldLen: oldLen, NewLines: repl}, true
	}
	return Replacement{}, false
}

// fuzzyAnchor anchors on the first non-blank old line and accepts the
// position when old lines keep matching loosely from there.
func fuzzyAnchor(lines, old []string) (int, int, bool) {
	k := slices.IndexFunc(old, func(s string) bool { return strings.TrimSpace(s) != "" })
	if k < 0 {
		return 0, 0, false
	}
	idx, ok := FindLineFuzzy(lines, old[k])
	if !ok {
		return 0, 0, false
	}

	matched := 0
	for j := k; j < len(old) && idx+j-k < len(lines); j++ {
		if !looseMatch(lines[idx+j-k], old[j]) {
			break
		}
		matched++
	}
	if matched == 0 {
		return 0, 0, false
	}

	// Leading blank old lines only cover blank document lines above the anchor.
	start, lead := idx, k
	for lead > 0 && start > 0 && strings.TrimSpace(lines[start-1]) == "" {
		start--
		lead--
	}
	return start, len(old) - lead, true
}

// ApplyReplacements performs reps, which must be sorted by start, from the
// bottom of the document up so earlier starts stay valid. It returns the new
// lines, the 1-indexed final positions of added lines and their text.
func ApplyReplacements(lines []string, reps []Replacement) ([]string, []int, string) {
	out := slices.Clone(lines)
	positions := make([][]int, len(reps))
	added := make([][]string, len(reps))

	for i := len(reps) - 1; i >= 0; i-- {
		rep := reps[i]
		start := min(max(rep.Start, 0), len(out))
		oldLen := min(max(rep.OldLen, 0), len(out)-start)

		removed := slices.Clone(out[start : start+oldLen])
		out = slices.Replace(out, start, start+oldLen, rep.NewLines...)

		delta := len(rep.NewLines) - oldLen
		for j := i + 1; j < len(reps); j++ {
			for p := range positions[j] {
				positions[j][p] += delta
			}
		}

		for _, off := range diff.Inserted(removed, rep.NewLines) {
			positions[i] = append(positions[i], start+off+1)
			added[i] = append(added[i], rep.NewLines[off])
		}
	}

	var inserted []int
	var text []string
	for i := range reps {
		inserted = append(inserted, positions[i]...)
		text = append(text, added[i]...)
	}
	return out, inserted, strings.Join(text, "\n")
}
