package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/novachat/nova/internal/config"
)

func TestThemeFromConfigOverrides(t *testing.T) {
	theme := ThemeFromConfig(config.ThemeConfig{Secondary: "4", UserMsgBg: "#000000"})
	if theme.Secondary != lipgloss.Color("4") || theme.Border != lipgloss.Color("4") {
		t.Fatalf("secondary=%q border=%q, want both 4", theme.Secondary, theme.Border)
	}
	if theme.UserMsgBg != lipgloss.Color("#000000") {
		t.Fatalf("user bg=%q", theme.UserMsgBg)
	}
	if theme.Primary != DefaultTheme().Primary {
		t.Fatalf("primary changed without override: %q", theme.Primary)
	}
}

func TestPresetsMatch(t *testing.T) {
	for _, name := range PresetThemeNames {
		p := GetPresetTheme(name)
		if p == nil {
			t.Fatalf("preset %q listed but missing", name)
		}
		if got := MatchPresetTheme(p.Config); got != name {
			t.Fatalf("MatchPresetTheme(%s)=%q", name, got)
		}
	}
	if MatchPresetTheme(config.ThemeConfig{Primary: "1"}) != "" {
		t.Fatal("custom config should not match a preset")
	}
	if GetPresetTheme("nope") != nil {
		t.Fatal("unknown preset should be nil")
	}
}

func TestFormatConfigured(t *testing.T) {
	s := NewStylesWithTheme(&bytes.Buffer{}, DefaultTheme())
	if got := s.FormatConfigured(true, "OpenAI"); !strings.Contains(got, "OpenAI") {
		t.Fatalf("configured=%q", got)
	}
	if got := s.FormatConfigured(false, "OpenAI"); !strings.Contains(got, "offline") {
		t.Fatalf("unconfigured=%q", got)
	}
}

func TestRenderMarkdown(t *testing.T) {
	if RenderMarkdown("", 40) != "" {
		t.Fatal("empty input should render empty")
	}
	out := RenderMarkdown("**Paris** is the capital.", 40)
	if !strings.Contains(out, "Paris") || strings.Contains(out, "**") {
		t.Fatalf("rendered=%q", out)
	}
}
