package llm

import (
	"context"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn sent to a provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemText builds a system message.
func SystemText(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserText builds a user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantText builds an assistant message.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// Request represents a single completion request.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Provider turns a conversation into one assistant reply.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// ModelInfo represents a model available from a provider.
type ModelInfo struct {
	ID      string
	Created time.Time
	OwnedBy string
}
