package config

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/novachat/nova/internal/logging"
	"github.com/novachat/nova/internal/storage"
)

// APIConfigKey is the storage slot holding the provider settings.
const APIConfigKey = "chatbot_api_config"

// ProviderType identifies a response backend.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderPerplexity ProviderType = "perplexity"
	ProviderSupabase   ProviderType = "supabase"
	ProviderMock       ProviderType = "mock"
)

// ProviderTypes lists the selectable providers in display order.
var ProviderTypes = []ProviderType{ProviderPerplexity, ProviderOpenAI, ProviderSupabase, ProviderMock}

// PerplexityModels are the models Perplexity accepts from nova.
var PerplexityModels = []string{
	"llama-3.1-sonar-small-128k-online",
	"llama-3.1-sonar-large-128k-online",
	"llama-3.1-sonar-huge-128k-online",
}

// ParseProviderType validates a provider name.
func ParseProviderType(s string) (ProviderType, error) {
	p := ProviderType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ProviderTypes {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q (want one of perplexity, openai, supabase, mock)", s)
}

// DefaultModel returns the model used when none is configured.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderOpenAI:
		return "gpt-3.5-turbo"
	case ProviderPerplexity:
		return PerplexityModels[0]
	default:
		return ""
	}
}

// APIConfig is the persisted provider selection. The JSON shape is the
// stored wire format.
type APIConfig struct {
	Provider ProviderType `json:"provider"`
	APIKey   string       `json:"apiKey,omitempty"`
	Model    string       `json:"model,omitempty"`
}

// IsConfigured reports whether a non-empty secret is present.
func (c APIConfig) IsConfigured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// ModelOrDefault returns Model, falling back to the provider default.
func (c APIConfig) ModelOrDefault() string {
	if c.Model != "" {
		return c.Model
	}
	return c.Provider.DefaultModel()
}

// MaskedKey returns the key with all but the last four characters hidden.
func (c APIConfig) MaskedKey() string {
	k := strings.TrimSpace(c.APIKey)
	if k == "" {
		return ""
	}
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", 8) + k[len(k)-4:]
}

// Validate rejects a model the provider is known not to serve.
func (c APIConfig) Validate() error {
	if c.Provider == ProviderPerplexity && c.Model != "" && !slices.Contains(PerplexityModels, c.Model) {
		return fmt.Errorf("unknown Perplexity model %q", c.Model)
	}
	return nil
}

// Describe is a one-line summary with the key masked.
func (c APIConfig) Describe() string {
	model := c.ModelOrDefault()
	if model == "" {
		model = "default"
	}
	state := "no API key, offline replies"
	if c.IsConfigured() {
		state = "key " + c.MaskedKey()
	}
	return fmt.Sprintf("Provider: %s · model: %s · %s", c.Provider, model, state)
}

func defaultAPIConfig() APIConfig {
	return APIConfig{Provider: ProviderOpenAI}
}

// APIStore owns the process-wide APIConfig. It is the only mutation entry
// point; everything else receives copies.
type APIStore struct {
	kv storage.KV

	mu        sync.RWMutex
	cfg       APIConfig
	listeners []func(APIConfig)
}

// NewAPIStore returns a store over kv holding the default config.
// Call Load to read the persisted value.
func NewAPIStore(kv storage.KV) *APIStore {
	return &APIStore{kv: kv, cfg: defaultAPIConfig()}
}

// Load reads the persisted config. A missing slot leaves the default in
// place. A malformed slot is logged and treated as unconfigured.
func (s *APIStore) Load() error {
	log := logging.For("config")
	data, ok, err := s.kv.Get(APIConfigKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to read saved API config")
		s.set(defaultAPIConfig())
		return nil
	}
	if !ok {
		s.set(defaultAPIConfig())
		return nil
	}

	var cfg APIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Error().Err(err).Msg("failed to parse saved API config")
		s.set(defaultAPIConfig())
		return nil
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	s.set(cfg)
	return nil
}

// Save persists cfg and then makes it current. On a write failure the
// previous config stays in effect.
func (s *APIStore) Save(cfg APIConfig) error {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := s.kv.Set(APIConfigKey, data); err != nil {
		return fmt.Errorf("save API config: %w", err)
	}
	s.set(cfg)
	return nil
}

// Switch selects provider and model and keeps the stored key.
func (s *APIStore) Switch(provider ProviderType, model string) (APIConfig, error) {
	next := APIConfig{Provider: provider, APIKey: s.Get().APIKey, Model: model}
	if err := next.Validate(); err != nil {
		return APIConfig{}, err
	}
	if err := s.Save(next); err != nil {
		return APIConfig{}, err
	}
	return next, nil
}

// Get returns a copy of the current config.
func (s *APIStore) Get() APIConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Clear removes the persisted slot and resets to the default config.
func (s *APIStore) Clear() error {
	if err := s.kv.Delete(APIConfigKey); err != nil {
		return fmt.Errorf("clear API config: %w", err)
	}
	s.set(defaultAPIConfig())
	return nil
}

// IsConfigured reports whether a non-empty secret is present.
func (s *APIStore) IsConfigured() bool {
	return s.Get().IsConfigured()
}

// OnChange registers fn to run after every Save, Clear, or Load.
func (s *APIStore) OnChange(fn func(APIConfig)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *APIStore) set(cfg APIConfig) {
	s.mu.Lock()
	s.cfg = cfg
	listeners := append([]func(APIConfig){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}
