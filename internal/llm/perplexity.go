package llm

import (
	"context"
	"slices"

	"github.com/novachat/nova/internal/config"
)

// PerplexityProvider is the chat-completions client with a fixed model list
// and a system prompt placed ahead of every conversation.
type PerplexityProvider struct {
	*OpenAICompatProvider
	systemPrompt string
}

// NewPerplexityProvider builds the client. An unknown model falls back to
// the first supported one.
func NewPerplexityProvider(baseURL, apiKey, model, systemPrompt string) *PerplexityProvider {
	if !slices.Contains(config.PerplexityModels, model) {
		model = config.PerplexityModels[0]
	}
	if systemPrompt == "" {
		systemPrompt = config.DefaultPerplexityPrompt
	}
	return &PerplexityProvider{
		OpenAICompatProvider: NewOpenAICompatProvider(baseURL, apiKey, model, "Perplexity"),
		systemPrompt:         systemPrompt,
	}
}

func (p *PerplexityProvider) Complete(ctx context.Context, req Request) (string, error) {
	msgs := make([]Message, 0, len(req.Messages)+1)
	msgs = append(msgs, SystemText(p.systemPrompt))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			continue
		}
		// Perplexity wants the first turn after the system prompt to be the user's.
		if m.Role == RoleAssistant && len(msgs) == 1 {
			continue
		}
		msgs = append(msgs, m)
	}
	req.Messages = msgs
	return p.OpenAICompatProvider.Complete(ctx, req)
}
