// Package conversation holds the in-memory conversation list and the active
// selection.
package conversation

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/novachat/nova/internal/llm"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Conversation is a titled message list.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Messages  []Message
}

// DefaultTitle names a conversation until its first exchange.
const DefaultTitle = "New Chat"

// titleWidth is the display width kept from the first user message.
const titleWidth = 30

// TitleFrom derives a conversation title from the first user message.
func TitleFrom(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return DefaultTitle
	}
	if runewidth.StringWidth(text) <= titleWidth {
		return text
	}
	return runewidth.Truncate(text, titleWidth, "") + "..."
}

// Greeting returns the time-of-day greeting a new conversation opens with.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Good Morning! What can I do for you?"
	case h < 18:
		return "Good Afternoon! What can I do for you?"
	default:
		return "Good Evening! What can I do for you?"
	}
}

// ToLLM converts messages into provider chat turns.
func ToLLM(msgs []Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleUser:
			out = append(out, llm.UserText(m.Content))
		case RoleAssistant:
			out = append(out, llm.AssistantText(m.Content))
		}
	}
	return out
}

func (c Conversation) clone() Conversation {
	c.Messages = append([]Message(nil), c.Messages...)
	return c
}

// HasUserMessage reports whether the user has spoken in c.
func (c Conversation) HasUserMessage() bool {
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}
