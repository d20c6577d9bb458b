// Package ui holds the terminal theme, lipgloss styles and the glamour
// markdown renderer shared by the chat TUI and the plain CLI output.
package ui

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/novachat/nova/internal/config"
)

// Theme defines the color palette for the UI
type Theme struct {
	Primary   lipgloss.Color // accent: active conversation, prompts
	Secondary lipgloss.Color // headers, borders
	Success   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
	Text      lipgloss.Color
	Spinner   lipgloss.Color
	Border    lipgloss.Color
	UserMsgBg lipgloss.Color // background behind user messages
}

// DefaultTheme returns the nova palette (indigo on dark).
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#8b5cf6"), // violet
		Secondary: lipgloss.Color("#60a5fa"), // blue
		Success:   lipgloss.Color("#34d399"),
		Error:     lipgloss.Color("#f87171"),
		Muted:     lipgloss.Color("#6b7280"),
		Text:      lipgloss.Color("#e5e7eb"),
		Spinner:   lipgloss.Color("#c084fc"),
		Border:    lipgloss.Color("#60a5fa"),
		UserMsgBg: lipgloss.Color("#312e81"),
	}
}

// ThemeFromConfig creates a theme with config overrides applied.
// Colors can be ANSI numbers (0-255) or hex codes.
func ThemeFromConfig(cfg config.ThemeConfig) *Theme {
	theme := DefaultTheme()
	if cfg.Primary != "" {
		theme.Primary = lipgloss.Color(cfg.Primary)
		theme.Spinner = lipgloss.Color(cfg.Primary)
	}
	if cfg.Secondary != "" {
		theme.Secondary = lipgloss.Color(cfg.Secondary)
		theme.Border = lipgloss.Color(cfg.Secondary) // border follows secondary
	}
	if cfg.Error != "" {
		theme.Error = lipgloss.Color(cfg.Error)
	}
	if cfg.Muted != "" {
		theme.Muted = lipgloss.Color(cfg.Muted)
	}
	if cfg.UserMsgBg != "" {
		theme.UserMsgBg = lipgloss.Color(cfg.UserMsgBg)
	}
	return theme
}

var (
	themeMu      sync.RWMutex
	currentTheme = DefaultTheme()
)

// GetTheme returns the current active theme
func GetTheme() *Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

// SetTheme sets the current active theme and drops cached markdown renderers.
func SetTheme(t *Theme) {
	themeMu.Lock()
	currentTheme = t
	themeMu.Unlock()
	resetRenderers()
}

// InitTheme initializes the theme from config
func InitTheme(cfg config.ThemeConfig) {
	SetTheme(ThemeFromConfig(cfg))
}

// Status indicators
const (
	ConfiguredIcon   = "●"
	UnconfiguredIcon = "○"
	SuccessIcon      = "✓"
	FailIcon         = "✗"
	ListeningIcon    = "◉"
)

// Styles are lipgloss styles bound to one renderer.
type Styles struct {
	renderer *lipgloss.Renderer
	theme    *Theme

	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Success     lipgloss.Style
	Error       lipgloss.Style
	Muted       lipgloss.Style
	Bold        lipgloss.Style
	Highlighted lipgloss.Style
	Spinner     lipgloss.Style
	Footer      lipgloss.Style

	// chat layout
	Sidebar       lipgloss.Style
	SidebarItem   lipgloss.Style
	SidebarActive lipgloss.Style
	UserMsg       lipgloss.Style
	AssistantName lipgloss.Style
	Status        lipgloss.Style
	StatusError   lipgloss.Style
	Input         lipgloss.Style
}

// NewStyles creates styles for the given output using the current theme.
func NewStyles(output io.Writer) *Styles {
	return NewStylesWithTheme(output, GetTheme())
}

// NewStylesWithTheme creates styles with a specific theme
func NewStylesWithTheme(output io.Writer, theme *Theme) *Styles {
	r := lipgloss.NewRenderer(output)

	return &Styles{
		renderer: r,
		theme:    theme,

		Title:       r.NewStyle().Bold(true).Foreground(theme.Text),
		Subtitle:    r.NewStyle().Foreground(theme.Muted),
		Success:     r.NewStyle().Foreground(theme.Success),
		Error:       r.NewStyle().Foreground(theme.Error),
		Muted:       r.NewStyle().Foreground(theme.Muted),
		Bold:        r.NewStyle().Bold(true),
		Highlighted: r.NewStyle().Bold(true).Foreground(theme.Primary),
		Spinner:     r.NewStyle().Foreground(theme.Spinner),
		Footer:      r.NewStyle().Foreground(theme.Muted),

		Sidebar: r.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(theme.Border).
			PaddingRight(1),
		SidebarItem: r.NewStyle().
			Foreground(theme.Muted).
			PaddingLeft(2),
		SidebarActive: r.NewStyle().
			Bold(true).
			Foreground(theme.Primary).
			PaddingLeft(1).
			BorderStyle(lipgloss.ThickBorder()).
			BorderLeft(true).
			BorderForeground(theme.Primary),
		UserMsg: r.NewStyle().
			Foreground(theme.Text).
			Background(theme.UserMsgBg).
			Padding(0, 1),
		AssistantName: r.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),
		Status:      r.NewStyle().Foreground(theme.Muted),
		StatusError: r.NewStyle().Foreground(theme.Error),
		Input: r.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),
	}
}

// DefaultStyles returns styles for stderr.
func DefaultStyles() *Styles {
	return NewStyles(os.Stderr)
}

// Theme returns the theme used by these styles
func (s *Styles) Theme() *Theme {
	return s.theme
}

// FormatConfigured renders the provider indicator shown in the status line.
func (s *Styles) FormatConfigured(configured bool, label string) string {
	if configured {
		return s.Success.Render(ConfiguredIcon + " " + label)
	}
	return s.Muted.Render(UnconfiguredIcon + " offline")
}

// FormatResult returns a styled success/fail result
func (s *Styles) FormatResult(success bool, msg string) string {
	if success {
		return s.Success.Render(SuccessIcon+" ") + msg
	}
	return s.Error.Render(FailIcon+" ") + msg
}
