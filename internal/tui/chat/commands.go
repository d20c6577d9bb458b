package chat

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/novachat/nova/internal/config"
)

// Command represents a slash command
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
}

// AllCommands returns all available slash commands
func AllCommands() []Command {
	return []Command{
		{
			Name:        "help",
			Aliases:     []string{"h", "?"},
			Description: "Show commands and keys",
			Usage:       "/help",
		},
		{
			Name:        "new",
			Aliases:     []string{"n"},
			Description: "Start a new chat",
			Usage:       "/new",
		},
		{
			Name:        "delete",
			Aliases:     []string{"del", "rm"},
			Description: "Delete the current chat",
			Usage:       "/delete",
		},
		{
			Name:        "switch",
			Aliases:     []string{"sw", "s"},
			Description: "Switch to the chat whose title best matches",
			Usage:       "/switch <title>",
		},
		{
			Name:        "listen",
			Aliases:     []string{"voice", "mic"},
			Description: "Start or stop voice input",
			Usage:       "/listen",
		},
		{
			Name:        "provider",
			Aliases:     []string{"p"},
			Description: "Show the response provider, or switch provider/model",
			Usage:       "/provider [name] [model]",
		},
		{
			Name:        "settings",
			Description: "Edit provider and API key",
			Usage:       "/settings",
		},
		{
			Name:        "clear-key",
			Aliases:     []string{"logout"},
			Description: "Forget the stored API key",
			Usage:       "/clear-key",
		},
		{
			Name:        "quit",
			Aliases:     []string{"q", "exit"},
			Description: "Exit nova",
			Usage:       "/quit",
		},
	}
}

// CommandSource adapts a command list for fuzzy matching.
type CommandSource []Command

func (c CommandSource) String(i int) string { return c[i].Name }
func (c CommandSource) Len() int            { return len(c) }

// FilterCommands returns commands matching query, best first. Exact
// name or alias matches come before fuzzy ones.
func FilterCommands(query string) []Command {
	commands := AllCommands()
	query = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(query), "/"))
	if query == "" {
		return commands
	}

	var out []Command
	for _, c := range commands {
		if c.Name == query || slices.Contains(c.Aliases, query) {
			out = append(out, c)
		}
	}
	for _, match := range fuzzy.FindFrom(query, CommandSource(commands)) {
		c := commands[match.Index]
		if !slices.ContainsFunc(out, func(o Command) bool { return o.Name == c.Name }) {
			out = append(out, c)
		}
	}
	return out
}

// LookupCommand resolves a name, alias, or unique prefix.
func LookupCommand(name string) (Command, error) {
	all := AllCommands()
	for _, c := range all {
		if c.Name == name || slices.Contains(c.Aliases, name) {
			return c, nil
		}
	}
	var matches []Command
	for _, c := range all {
		if strings.HasPrefix(c.Name, name) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return Command{}, fmt.Errorf("unknown command: /%s (type /help)", name)
	default:
		names := make([]string, len(matches))
		for i, c := range matches {
			names[i] = "/" + c.Name
		}
		return Command{}, fmt.Errorf("ambiguous command: /%s (%s)", name, strings.Join(names, ", "))
	}
}

// ExecuteCommand runs a slash command line.
func (m *Model) ExecuteCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	cmd, err := LookupCommand(name)
	if err != nil {
		return m, m.setStatus(err.Error(), true)
	}

	switch cmd.Name {
	case "help":
		m.showHelp = true
		m.refreshViewport()
		m.viewport.GotoTop()
		return m, nil
	case "new":
		return m, m.newChat()
	case "delete":
		return m, m.deleteChat()
	case "switch":
		return m, m.cmdSwitch(strings.Join(args, " "))
	case "listen":
		return m, m.toggleVoice()
	case "provider":
		return m, m.cmdProvider(args)
	case "settings":
		return m, m.cmdSettings()
	case "clear-key":
		return m, m.cmdClearKey()
	case "quit":
		return m, m.quit()
	}
	return m, nil
}

func (m *Model) cmdSwitch(query string) tea.Cmd {
	if query == "" {
		return m.setStatus("Usage: /switch <title>", true)
	}
	found := m.convs.Find(query)
	if len(found) == 0 {
		return m.setStatus("No chat matches \""+query+"\"", true)
	}
	if err := m.convs.Select(found[0].ID); err != nil {
		return m.setStatus(err.Error(), true)
	}
	m.afterSwitch()
	return nil
}

func (m *Model) cmdProvider(args []string) tea.Cmd {
	if m.api == nil {
		return m.setStatus("Settings are not available", true)
	}
	if len(args) == 0 {
		return m.setStatus(m.api.Get().Describe(), false)
	}

	provider, err := config.ParseProviderType(args[0])
	if err != nil {
		return m.setStatus(err.Error(), true)
	}
	var model string
	if len(args) > 1 {
		model = args[1]
	}
	next, err := m.api.Switch(provider, model)
	if err != nil {
		return m.setStatus(err.Error(), true)
	}
	msg := "Provider set to " + string(provider)
	if !next.IsConfigured() {
		msg += " (no API key yet: use /settings or `nova config setup`)"
	}
	return m.setStatus(msg, false)
}

func (m *Model) cmdSettings() tea.Cmd {
	if m.settings == nil {
		return m.setStatus("Run `nova config setup` to change settings", false)
	}
	return tea.ExecProcess(m.settings(), func(err error) tea.Msg { return settingsDoneMsg{err: err} })
}

func (m *Model) cmdClearKey() tea.Cmd {
	if m.api == nil {
		return nil
	}
	if err := m.api.Clear(); err != nil {
		return m.setStatus("Failed to clear settings: "+err.Error(), true)
	}
	return m.setStatus("API key cleared; using offline replies", false)
}
