package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Assistant.Name != "NOVA" {
		t.Fatalf("assistant name=%q, want %q", cfg.Assistant.Name, "NOVA")
	}
	if cfg.Assistant.MaxTokens != 500 {
		t.Fatalf("max_tokens=%d, want 500", cfg.Assistant.MaxTokens)
	}
	if cfg.Voice.RetryDelay != 300*time.Millisecond {
		t.Fatalf("retry_delay=%v, want 300ms", cfg.Voice.RetryDelay)
	}
	if cfg.Voice.MaxNoSpeechRetries != 3 {
		t.Fatalf("max_no_speech_retries=%d, want 3", cfg.Voice.MaxNoSpeechRetries)
	}
	if cfg.History.Enabled {
		t.Fatal("history should be disabled by default")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := `
assistant:
  temperature: 0.2
supabase:
  url: ${TEST_SUPABASE_URL}
voice:
  duration: 8s
  continuous: true
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("NOVA_LOG_LEVEL", "debug")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Assistant.Temperature != 0.2 {
		t.Fatalf("temperature=%v, want 0.2", cfg.Assistant.Temperature)
	}
	if cfg.Supabase.URL != "https://example.supabase.co" {
		t.Fatalf("supabase url=%q", cfg.Supabase.URL)
	}
	if cfg.Voice.Duration != 8*time.Second || !cfg.Voice.Continuous {
		t.Fatalf("voice=%+v", cfg.Voice)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level=%q, want env override %q", cfg.Log.Level, "debug")
	}
}

func TestGetConfigDirXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := GetConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg", "nova") {
		t.Fatalf("dir=%q", dir)
	}
}
