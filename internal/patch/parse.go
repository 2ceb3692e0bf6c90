// Package patch parses and applies the envelope patch format models use to
// propose localized edits to markdown pages.
//
//	*** Begin Patch
//	*** Update File: content.md
//	@@ optional anchor line
//	 context
//	-removed
//	+added
//	*** End of File
//	*** End Patch
package patch

import (
	"errors"
	"strings"
)

const (
	markerBegin     = "*** Begin Patch"
	markerEnd       = "*** End Patch"
	markerAdd       = "*** Add File:"
	markerUpdate    = "*** Update File:"
	markerDelete    = "*** Delete File:"
	markerEndOfFile = "*** End of File"
	markerContext   = "@@"
)

// ErrNoPatch is returned when the input has no begin marker.
var ErrNoPatch = errors.New("no patch found in output")

// Operation is one file operation of a patch: AddFile, UpdateFile or DeleteFile.
type Operation interface {
	FilePath() string
	isOperation()
}

// AddFile creates a file with the given content.
type AddFile struct {
	Path    string
	Content string
}

// UpdateFile edits an existing file chunk by chunk.
type UpdateFile struct {
	Path   string
	Chunks []Chunk
}

// DeleteFile removes a file.
type DeleteFile struct {
	Path string
}

func (o AddFile) FilePath() string    { return o.Path }
func (o UpdateFile) FilePath() string { return o.Path }
func (o DeleteFile) FilePath() string { return o.Path }

func (AddFile) isOperation()    {}
func (UpdateFile) isOperation() {}
func (DeleteFile) isOperation() {}

// Chunk is one contiguous change unit of an UpdateFile operation.
type Chunk struct {
	// ChangeContext is the single anchor line that followed "@@", or empty.
	ChangeContext string
	OldLines      []string
	NewLines      []string
	// IsEndOfFile requires OldLines to sit at the end of the document.
	IsEndOfFile bool
}

// Parse extracts the file operations from raw model output. Text before the
// begin marker is ignored and a missing end marker is tolerated.
func Parse(text string) ([]Operation, error) {
	lines := splitInput(text)

	i := 0
	for i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), markerBegin) {
		i++
	}
	if i >= len(lines) {
		return nil, ErrNoPatch
	}
	i++

	var ops []Operation
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, markerEnd):
			return ops, nil
		case strings.HasPrefix(line, markerAdd):
			op, next := parseAddFile(lines, i)
			ops = append(ops, op)
			i = next
		case strings.HasPrefix(line, markerUpdate):
			op, next := parseUpdateFile(lines, i)
			ops = append(ops, op)
			i = next
		case strings.HasPrefix(line, markerDelete):
			ops = append(ops, DeleteFile{Path: directivePath(line, markerDelete)})
			i++
		default:
			i++
		}
	}
	return ops, nil
}

func parseAddFile(lines []string, i int) (AddFile, int) {
	op := AddFile{Path: directivePath(strings.TrimSpace(lines[i]), markerAdd)}
	var content strings.Builder
	i++
	for i < len(lines) {
		line := lines[i]
		if strings.HasPrefix(line, "***") {
			break
		}
		rest, ok := strings.CutPrefix(line, "+")
		if !ok {
			break
		}
		content.WriteString(rest)
		content.WriteByte('\n')
		i++
	}
	op.Content = content.String()
	return op, i
}

func parseUpdateFile(lines []string, i int) (UpdateFile, int) {
	op := UpdateFile{Path: directivePath(strings.TrimSpace(lines[i]), markerUpdate)}
	i++
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if isFileBoundary(trimmed) {
			break
		}
		if trimmed == "" {
			i++
			continue
		}
		chunk, consumed := parseChunk(lines[i:])
		if chunk != nil {
			op.Chunks = append(op.Chunks, *chunk)
		}
		i += max(consumed, 1)
	}
	return op, i
}

// parseChunk reads one chunk from the head of lines and reports how many
// lines it consumed. A nil chunk means the lines held no change.
func parseChunk(lines []string) (*Chunk, int) {
	if len(lines) == 0 {
		return nil, 0
	}

	first := lines[0]
	trimmed := strings.TrimSpace(first)

	var chunk Chunk
	start := 0
	switch {
	case strings.HasPrefix(trimmed, markerContext):
		chunk.ChangeContext = contextText(trimmed)
		start = 1
	case hasDiffPrefix(first):
	default:
		return nil, 1
	}

	consumed := start
	for _, line := range lines[start:] {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, markerContext) || isFileBoundary(trimmed) {
			break
		}
		if trimmed == markerEndOfFile {
			chunk.IsEndOfFile = true
			consumed++
			break
		}

		switch {
		case line == "":
			chunk.OldLines = append(chunk.OldLines, "")
			chunk.NewLines = append(chunk.NewLines, "")
		case line[0] == ' ':
			chunk.OldLines = append(chunk.OldLines, line[1:])
			chunk.NewLines = append(chunk.NewLines, line[1:])
		case line[0] == '+':
			chunk.NewLines = append(chunk.NewLines, line[1:])
		case line[0] == '-':
			chunk.OldLines = append(chunk.OldLines, line[1:])
		default:
			return finishChunk(chunk, consumed)
		}
		consumed++
	}
	return finishChunk(chunk, consumed)
}

func finishChunk(chunk Chunk, consumed int) (*Chunk, int) {
	if len(chunk.OldLines) == 0 && len(chunk.NewLines) == 0 {
		return nil, consumed
	}
	return &chunk, consumed
}

// contextText returns the anchor of a trimmed "@@" line: "@@ text" keeps
// everything after the single separating space, "@@text" is trimmed.
func contextText(trimmed string) string {
	if trimmed == markerContext {
		return ""
	}
	if rest, ok := strings.CutPrefix(trimmed, markerContext+" "); ok {
		return rest
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, markerContext))
}

func hasDiffPrefix(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-")
}

func isFileBoundary(trimmed string) bool {
	return strings.HasPrefix(trimmed, markerAdd) ||
		strings.HasPrefix(trimmed, markerUpdate) ||
		strings.HasPrefix(trimmed, markerDelete) ||
		strings.HasPrefix(trimmed, markerEnd)
}

func directivePath(trimmed, marker string) string {
	return strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
}

// splitInput splits on "\n", drops a "\r" before each break and does not
// produce a trailing empty line for input ending in a newline.
func splitInput(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
