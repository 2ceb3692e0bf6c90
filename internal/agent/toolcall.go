package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoToolCall is returned when a model reply carries no recognizable tool call.
var ErrNoToolCall = errors.New("no valid tool call found")

const diagnosticPrefixRunes = 200

var toolCallPatterns = []*regexp.Regexp{
	regexp.MustCompile(`<tool_call>\s*(\{[\s\S]*?\})\s*</tool_call>`),
	regexp.MustCompile(`\{[^{}]*"tool"[^{}]*\}`),
	regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```"),
}

// ToolCall is one structured tool invocation extracted from a model reply.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

type wireToolCall struct {
	Tool      *string        `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// ParseToolCall extracts exactly one tool call from free-form model text.
// The first pattern that matches decides; a match that fails to decode is
// reported as is instead of falling through to later patterns.
func ParseToolCall(text string) (ToolCall, error) {
	for _, re := range toolCallPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := m[0]
		if len(m) > 1 {
			raw = m[1]
		}
		return decodeToolCall(raw)
	}
	return ToolCall{}, fmt.Errorf("%w in response: %s", ErrNoToolCall, truncateRunes(text, diagnosticPrefixRunes))
}

func decodeToolCall(raw string) (ToolCall, error) {
	var wire wireToolCall
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &wire); err != nil {
		return ToolCall{}, fmt.Errorf("parse tool json: %w", err)
	}
	if wire.Tool == nil {
		return ToolCall{}, fmt.Errorf("missing 'tool' field")
	}
	args := wire.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return ToolCall{Name: *wire.Tool, Arguments: args}, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
