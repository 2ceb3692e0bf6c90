// Package llm defines the chat-completion contract the agents and the
// expansion service talk to.
package llm

import "context"

// Role is the author of a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Client completes an ordered transcript and returns the raw reply text.
type Client interface {
	Complete(ctx context.Context, messages []Message, temperature float64) (string, error)
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant returns an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }
