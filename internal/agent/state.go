package agent

import "slices"

// PageInfo mirrors one known page of the project.
type PageInfo struct {
	Filename string
	Title    string
}

// State is the per-invocation state of a loop.
type State struct {
	ProjectID     string
	BookTitle     string
	Pages         []PageInfo
	Iteration     int
	MaxIterations int

	// Finished is set by the finish tool.
	Finished bool
	// ResponseToUser is set by the respond tool.
	ResponseToUser *string
}

func (s *State) removePage(filename string) {
	s.Pages = slices.DeleteFunc(s.Pages, func(p PageInfo) bool { return p.Filename == filename })
}

// ToolResult is the outcome of one tool execution. Output is replayed
// verbatim into the transcript.
type ToolResult struct {
	ToolName string
	Success  bool
	Output   string
}

func succeeded(name, output string) ToolResult {
	return ToolResult{ToolName: name, Success: true, Output: output}
}

func failed(name, output string) ToolResult {
	return ToolResult{ToolName: name, Success: false, Output: output}
}

// Message formats the result as a transcript turn.
func (r ToolResult) Message() string {
	if r.Success {
		return "Tool '" + r.ToolName + "' executed successfully:\n" + r.Output
	}
	return "Tool '" + r.ToolName + "' failed:\n" + r.Output
}
