package patch

import (
	"slices"
	"strings"
)

// SeekSequence finds pattern as a contiguous run inside lines. It tries an
// exact scan from the origin, then a whitespace-trimmed scan from the origin,
// then a trimmed scan from the top of the document up to the origin. The
// origin is the last feasible index when eof is set, else start clamped to
// the document. An empty pattern matches at start.
func SeekSequence(lines, pattern []string, start int, eof bool) (int, bool) {
	if len(pattern) == 0 {
		return start, true
	}
	if len(pattern) > len(lines) {
		return 0, false
	}

	last := len(lines) - len(pattern)
	origin := min(max(start, 0), last)
	if eof {
		origin = last
	}

	for i := origin; i <= last; i++ {
		if matchAt(lines, pattern, i, exactEqual) {
			return i, true
		}
	}
	for i := origin; i <= last; i++ {
		if matchAt(lines, pattern, i, trimEqual) {
			return i, true
		}
	}
	for i := 0; i < origin; i++ {
		if matchAt(lines, pattern, i, trimEqual) {
			return i, true
		}
	}
	return 0, false
}

// FindLineFuzzy locates a single line anywhere in the document. Priority:
// trimmed equality, then substring containment in either direction, then
// equality of the first three words. Blank lines never satisfy the
// containment rule because the empty string is contained in everything.
func FindLineFuzzy(lines []string, target string) (int, bool) {
	want := strings.TrimSpace(target)

	for i, line := range lines {
		if strings.TrimSpace(line) == want {
			return i, true
		}
	}

	for i, line := range lines {
		if looseContains(strings.TrimSpace(line), want) {
			return i, true
		}
	}

	wantWords := leadingWords(want, 3)
	if len(wantWords) == 0 {
		return 0, false
	}
	for i, line := range lines {
		if slices.Equal(leadingWords(line, 3), wantWords) {
			return i, true
		}
	}
	return 0, false
}

// looseMatch is the per-line test used when validating a fuzzy anchor.
func looseMatch(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a == b || looseContains(a, b)
}

func looseContains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func matchAt(lines, pattern []string, at int, eq func(a, b string) bool) bool {
	if at+len(pattern) > len(lines) {
		return false
	}
	for j, p := range pattern {
		if !eq(lines[at+j], p) {
			return false
		}
	}
	return true
}

func exactEqual(a, b string) bool { return a == b }

func trimEqual(a, b string) bool { return strings.TrimSpace(a) == strings.TrimSpace(b) }

func leadingWords(s string, n int) []string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return words
}
