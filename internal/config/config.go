package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application settings loaded from config.yaml.
// Provider credentials live in the APIStore, not here.
type Config struct {
	Assistant  AssistantConfig  `mapstructure:"assistant"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Perplexity PerplexityConfig `mapstructure:"perplexity"`
	Supabase   SupabaseConfig   `mapstructure:"supabase"`
	Wikipedia  WikipediaConfig  `mapstructure:"wikipedia"`
	Voice      VoiceConfig      `mapstructure:"voice"`
	History    HistoryConfig    `mapstructure:"history"`
	Log        LogConfig        `mapstructure:"log"`
	Theme      ThemeConfig      `mapstructure:"theme"`
}

type AssistantConfig struct {
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type OpenAIConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type PerplexityConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// SupabaseConfig points at the project hosting the chat edge function.
type SupabaseConfig struct {
	URL      string `mapstructure:"url"`
	Function string `mapstructure:"function"`
}

type WikipediaConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// VoiceConfig configures microphone capture and transcription.
type VoiceConfig struct {
	CaptureCommand     string        `mapstructure:"capture_command"` // e.g. "arecord -q -f S16_LE -r 16000 -c 1 -d {seconds} {file}"
	Duration           time.Duration `mapstructure:"duration"`
	Language           string        `mapstructure:"language"`
	TranscribeURL      string        `mapstructure:"transcribe_url"` // full /audio/transcriptions URL
	TranscribeModel    string        `mapstructure:"transcribe_model"`
	TranscribeAPIKey   string        `mapstructure:"transcribe_api_key"`
	MaxNoSpeechRetries int           `mapstructure:"max_no_speech_retries"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
	Continuous         bool          `mapstructure:"continuous"`
}

// HistoryConfig enables the optional SQLite conversation archive.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ThemeConfig allows customization of UI colors
// Colors can be ANSI color numbers (0-255) or hex codes (#RRGGBB)
type ThemeConfig struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Error     string `mapstructure:"error"`
	Muted     string `mapstructure:"muted"`
	UserMsgBg string `mapstructure:"user_msg_bg"`
}

// DefaultPerplexityPrompt is prepended to every Perplexity request.
const DefaultPerplexityPrompt = "You are NOVA, a helpful voice-enabled AI assistant. Be precise and concise."

func setDefaults(v *viper.Viper) {
	v.SetDefault("assistant.name", "NOVA")
	v.SetDefault("assistant.temperature", 0.7)
	v.SetDefault("assistant.max_tokens", 500)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.system_prompt", DefaultPerplexityPrompt)
	v.SetDefault("supabase.function", "chat")
	v.SetDefault("wikipedia.base_url", "https://en.wikipedia.org/api/rest_v1")
	v.SetDefault("voice.duration", 5*time.Second)
	v.SetDefault("voice.language", "en")
	v.SetDefault("voice.transcribe_model", "whisper-1")
	v.SetDefault("voice.max_no_speech_retries", 3)
	v.SetDefault("voice.retry_delay", 300*time.Millisecond)
	v.SetDefault("history.enabled", false)
	v.SetDefault("log.level", "info")
}

// Load reads config.yaml from the config dir (or the working directory).
// A missing file is not an error; defaults apply.
func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}
	return LoadFrom(configPath, ".")
}

// LoadFrom reads config.yaml from the first of dirs that has one.
func LoadFrom(dirs ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix("NOVA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Supabase.URL = expandEnv(cfg.Supabase.URL)
	cfg.Voice.TranscribeAPIKey = expandEnv(cfg.Voice.TranscribeAPIKey)
	cfg.Voice.TranscribeURL = expandEnv(cfg.Voice.TranscribeURL)
	if cfg.Supabase.URL == "" {
		cfg.Supabase.URL = os.Getenv("SUPABASE_URL")
	}
	return &cfg, nil
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// GetConfigDir returns the XDG config directory for nova.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "nova"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "nova"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// GetStoragePath returns the key-value storage file holding the API config.
func GetStoragePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "storage.json"), nil
}

// GetDataDir returns the XDG data directory for nova.
// Uses $XDG_DATA_HOME if set, otherwise ~/.local/share
func GetDataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "nova"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "nova"), nil
}

// DefaultConfigContent is written by `nova config edit` when no file exists.
func DefaultConfigContent() string {
	return `# nova configuration
# Provider credentials are managed with: nova config setup

assistant:
  name: NOVA
  temperature: 0.7
  max_tokens: 500

perplexity:
  # system_prompt: You are NOVA, a helpful assistant.

supabase:
  # url: https://<project>.supabase.co
  function: chat

voice:
  # capture_command: arecord -q -f S16_LE -r 16000 -c 1 -d {seconds} {file}
  duration: 5s
  language: en
  # transcribe_url: http://localhost:8080/inference
  continuous: false

history:
  # Keep conversations in a local SQLite database across runs
  enabled: false

log:
  level: info
`
}
