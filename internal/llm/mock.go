package llm

import (
	"context"
	"strings"
	"sync"
)

var defaultMockReplies = []string{
	"This is a mock reply. Configure a real provider with `nova config setup`.",
	"Mock provider here: I received your message.",
	"Still the mock provider. Nothing left this machine.",
}

// MockProvider answers from a fixed list, round robin, without any network.
type MockProvider struct {
	replies []string

	mu    sync.Mutex
	next  int
	calls []Request
}

func NewMockProvider(replies ...string) *MockProvider {
	if len(replies) == 0 {
		replies = defaultMockReplies
	}
	return &MockProvider{replies: replies}
}

func (p *MockProvider) Name() string { return "Mock" }

func (p *MockProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	reply := p.replies[p.next%len(p.replies)]
	p.next++
	if last := lastUserText(req.Messages); last != "" && strings.Contains(reply, "{input}") {
		reply = strings.ReplaceAll(reply, "{input}", last)
	}
	return reply, nil
}

// Calls returns the requests seen so far.
func (p *MockProvider) Calls() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.calls...)
}

func lastUserText(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
