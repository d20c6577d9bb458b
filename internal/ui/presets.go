package ui

import "github.com/novachat/nova/internal/config"

// ThemePreset is a named color theme offered by `nova config theme`.
type ThemePreset struct {
	Name        string
	Description string
	Config      config.ThemeConfig
}

// PresetThemeNames defines the display order of themes
var PresetThemeNames = []string{"nova", "dracula", "nord", "gruvbox"}

// PresetThemes contains all predefined themes
var PresetThemes = map[string]ThemePreset{
	"nova": {
		Name:        "nova",
		Description: "Violet and blue on dark (default)",
		Config: config.ThemeConfig{
			Primary:   "#8b5cf6",
			Secondary: "#60a5fa",
			Error:     "#f87171",
			Muted:     "#6b7280",
			UserMsgBg: "#312e81",
		},
	},
	"dracula": {
		Name:        "dracula",
		Description: "Dark theme with purple accents",
		Config: config.ThemeConfig{
			Primary:   "#bd93f9",
			Secondary: "#8be9fd",
			Error:     "#ff5555",
			Muted:     "#6272a4",
			UserMsgBg: "#44475a",
		},
	},
	"nord": {
		Name:        "nord",
		Description: "Arctic, north-bluish palette",
		Config: config.ThemeConfig{
			Primary:   "#88c0d0",
			Secondary: "#81a1c1",
			Error:     "#bf616a",
			Muted:     "#4c566a",
			UserMsgBg: "#3b4252",
		},
	},
	"gruvbox": {
		Name:        "gruvbox",
		Description: "Retro groove",
		Config: config.ThemeConfig{
			Primary:   "#b8bb26",
			Secondary: "#83a598",
			Error:     "#fb4934",
			Muted:     "#928374",
			UserMsgBg: "#3c3836",
		},
	},
}

// GetPresetTheme returns a preset by name, or nil if not found
func GetPresetTheme(name string) *ThemePreset {
	if preset, ok := PresetThemes[name]; ok {
		return &preset
	}
	return nil
}

// MatchPresetTheme finds the preset equal to cfg, or returns "".
func MatchPresetTheme(cfg config.ThemeConfig) string {
	for _, name := range PresetThemeNames {
		if PresetThemes[name].Config == cfg {
			return name
		}
	}
	return ""
}
