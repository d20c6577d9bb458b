package llm

import (
	"fmt"

	"github.com/novachat/nova/internal/config"
)

// NewProvider creates the provider selected by api. It returns
// ErrNotConfigured when the key is empty so no network path is reachable
// without a secret.
func NewProvider(api config.APIConfig, cfg *config.Config) (Provider, error) {
	if !api.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	switch api.Provider {
	case config.ProviderOpenAI, "":
		baseURL := cfg.OpenAI.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return NewOpenAICompatProvider(baseURL, api.APIKey, api.ModelOrDefault(), "OpenAI"), nil
	case config.ProviderPerplexity:
		baseURL := cfg.Perplexity.BaseURL
		if baseURL == "" {
			baseURL = "https://api.perplexity.ai"
		}
		return NewPerplexityProvider(baseURL, api.APIKey, api.Model, cfg.Perplexity.SystemPrompt), nil
	case config.ProviderSupabase:
		return NewSupabaseProvider(cfg.Supabase.URL, cfg.Supabase.Function, api.APIKey), nil
	case config.ProviderMock:
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", api.Provider)
	}
}
