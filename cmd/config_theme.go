package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/novachat/nova/internal/config"
	"github.com/novachat/nova/internal/ui"
)

var configThemeCmd = &cobra.Command{
	Use:   "theme [name]",
	Short: "Select a UI color theme",
	Long: `Select one of the built-in color themes. Without a name an
interactive picker with a live preview opens.

Available themes: ` + strings.Join(ui.PresetThemeNames, ", "),
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: ui.PresetThemeNames,
	RunE:      configTheme,
}

func init() {
	configCmd.AddCommand(configThemeCmd)
}

func configTheme(cmd *cobra.Command, args []string) error {
	var selected string
	if len(args) == 1 {
		selected = args[0]
	} else {
		current := ""
		if cfg, err := config.Load(); err == nil {
			current = ui.MatchPresetTheme(cfg.Theme)
		}
		var err error
		selected, err = runThemeSelector(current)
		if err != nil {
			return err
		}
		if selected == "" {
			return nil
		}
	}

	preset := ui.GetPresetTheme(selected)
	if preset == nil {
		return fmt.Errorf("unknown theme %q (want one of %s)", selected, strings.Join(ui.PresetThemeNames, ", "))
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	if err := saveTheme(path, preset.Config); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Theme set to %s\n", preset.Name)
	return nil
}

func saveTheme(path string, t config.ThemeConfig) error {
	return setConfigValues(path,
		[2]string{"theme.primary", t.Primary},
		[2]string{"theme.secondary", t.Secondary},
		[2]string{"theme.error", t.Error},
		[2]string{"theme.muted", t.Muted},
		[2]string{"theme.user_msg_bg", t.UserMsgBg},
	)
}

var themeKeys = struct {
	up, down, choose, cancel key.Binding
}{
	up:     key.NewBinding(key.WithKeys("up", "k")),
	down:   key.NewBinding(key.WithKeys("down", "j")),
	choose: key.NewBinding(key.WithKeys("enter")),
	cancel: key.NewBinding(key.WithKeys("esc", "q", "ctrl+c")),
}

type themePicker struct {
	presets  []ui.ThemePreset
	cursor   int
	current  string
	selected string
	out      io.Writer
}

func newThemePicker(current string, out io.Writer) themePicker {
	m := themePicker{current: current, out: out}
	for i, name := range ui.PresetThemeNames {
		m.presets = append(m.presets, ui.PresetThemes[name])
		if name == current {
			m.cursor = i
		}
	}
	return m
}

func (m themePicker) Init() tea.Cmd { return nil }

func (m themePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(k, themeKeys.up):
		m.cursor = (m.cursor - 1 + len(m.presets)) % len(m.presets)
	case key.Matches(k, themeKeys.down):
		m.cursor = (m.cursor + 1) % len(m.presets)
	case key.Matches(k, themeKeys.choose):
		m.selected = m.presets[m.cursor].Name
		return m, tea.Quit
	case key.Matches(k, themeKeys.cancel):
		return m, tea.Quit
	}
	return m, nil
}

func (m themePicker) View() string {
	hovered := m.presets[m.cursor]
	theme := ui.ThemeFromConfig(hovered.Config)

	var list strings.Builder
	list.WriteString(lipgloss.NewStyle().Bold(true).Render("Theme") + "\n\n")
	for i, p := range m.presets {
		label := p.Name
		if p.Name == m.current {
			label += " (current)"
		}
		if i == m.cursor {
			list.WriteString(lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render("❯ "+label) + "\n")
		} else {
			list.WriteString("  " + label + "\n")
		}
	}
	list.WriteString("\n" + lipgloss.NewStyle().Foreground(theme.Muted).Render("↑/↓ move · enter choose · esc cancel"))

	left := lipgloss.NewStyle().Width(26).Render(list.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", renderThemePreview(theme, hovered, m.out))
}

// renderThemePreview draws a miniature chat in the theme's colors.
func renderThemePreview(theme *ui.Theme, preset ui.ThemePreset, out io.Writer) string {
	s := ui.NewStylesWithTheme(out, theme)
	var b strings.Builder
	b.WriteString(s.Title.Render(preset.Name) + "  " + s.Muted.Render(preset.Description) + "\n\n")
	b.WriteString(s.SidebarActive.Render("Capital of France") + "\n")
	b.WriteString(s.SidebarItem.Render("Tell me a joke") + "\n\n")
	b.WriteString(s.Highlighted.Render("You") + "\n")
	b.WriteString(s.UserMsg.Width(34).Render("what is the capital of France") + "\n\n")
	b.WriteString(s.AssistantName.Render("NOVA") + "\n")
	b.WriteString("The capital of France is Paris.\n\n")
	b.WriteString(s.FormatConfigured(true, "openai") + "  " + s.Error.Render(ui.ListeningIcon+" listening") + "\n")
	b.WriteString(s.StatusError.Render("Error: no-speech"))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(1, 2).
		Render(b.String())
}

func runThemeSelector(current string) (string, error) {
	var opts []tea.ProgramOption
	var out io.Writer = os.Stdout
	if tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
		defer tty.Close()
		opts = append(opts, tea.WithInput(tty), tea.WithOutput(tty))
		out = tty
	}

	final, err := tea.NewProgram(newThemePicker(current, out), opts...).Run()
	if err != nil {
		return "", err
	}
	return final.(themePicker).selected, nil
}
