package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/novachat/nova/internal/conversation"
	"github.com/novachat/nova/internal/ui"
)

const (
	sidebarWidth    = 26
	minWidthSidebar = 70 // narrower terminals hide the sidebar
	inputHeight     = 2
)

// chrome is the number of rows used by header, input and status line.
const chrome = 1 + inputHeight + 2 + 1

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	main := m.mainWidth()
	m.textarea.SetWidth(main - 2)
	m.viewport.Width = main
	m.viewport.Height = max(height-chrome, 3)
	m.renderedKey = ""
	m.refreshViewport()
	m.viewport.GotoBottom()
}

func (m *Model) showSidebar() bool {
	return m.width >= minWidthSidebar
}

func (m *Model) mainWidth() int {
	if m.showSidebar() {
		return max(m.width-sidebarWidth-2, 20)
	}
	return max(m.width, 20)
}

// refreshViewport re-renders the active conversation when it changed.
func (m *Model) refreshViewport() {
	conv, ok := m.convs.Active()
	key := fmt.Sprintf("%v|%d|%d", m.showHelp, m.viewport.Width, m.width)
	if m.loading {
		key += "|" + m.pending.ConvID + m.spinner.View()
	}
	if ok {
		key += fmt.Sprintf("|%s|%d", conv.ID, len(conv.Messages))
	}
	if key == m.renderedKey {
		return
	}
	atBottom := m.viewport.AtBottom() || m.renderedKey == ""

	switch {
	case m.showHelp:
		m.rendered = m.renderHelp()
	case !ok:
		m.rendered = m.styles.Muted.Render("No conversation. Press Ctrl+N or just start typing.")
	default:
		m.rendered = m.renderMessages(conv.Messages)
	}
	m.renderedKey = key
	m.viewport.SetContent(m.rendered)
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderMessages(msgs []conversation.Message) string {
	width := m.viewport.Width
	name := m.cfg.Assistant.Name
	if name == "" {
		name = "NOVA"
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		stamp := m.styles.Muted.Render(msg.Timestamp.Format("15:04"))
		if msg.Role == conversation.RoleUser {
			b.WriteString(m.styles.Highlighted.Render("You") + " " + stamp + "\n")
			b.WriteString(m.styles.UserMsg.Width(width).Render(wordwrap.String(msg.Content, max(width-2, 10))))
			continue
		}
		b.WriteString(m.styles.AssistantName.Render(name) + " " + stamp + "\n")
		b.WriteString(ui.RenderMarkdown(msg.Content, width))
	}
	if m.loading && m.pending.ConvID == m.activeID() {
		b.WriteString("\n\n" + m.styles.AssistantName.Render(name) + "\n")
		b.WriteString(m.spinner.View() + " " + m.styles.Muted.Render("Thinking..."))
	}
	return b.String()
}

func (m *Model) activeID() string {
	return m.convs.ActiveID()
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	m.refreshViewport()

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.styles.Input.Width(m.mainWidth()-2).Render(m.textarea.View()),
		m.renderStatusLine(),
	)
	if !m.showSidebar() {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
}

func (m *Model) renderHeader() string {
	title := conversation.DefaultTitle
	if conv, ok := m.convs.Active(); ok {
		title = conv.Title
	}

	label := "offline"
	configured := false
	if m.api != nil {
		api := m.api.Get()
		configured = api.IsConfigured()
		label = string(api.Provider)
		if model := api.ModelOrDefault(); model != "" {
			label += ":" + model
		}
	}
	left := m.styles.Title.Render(runewidth.Truncate(title, m.mainWidth()/2, "…"))
	right := m.styles.FormatConfigured(configured, label)
	if m.listening {
		right = m.styles.Error.Render(ui.ListeningIcon+" listening") + "  " + right
	}

	gap := m.mainWidth() - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) renderSidebar() string {
	inner := sidebarWidth - 2
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Chats") + "\n\n")

	active := m.activeID()
	for _, c := range m.convs.List() {
		title := runewidth.Truncate(c.Title, inner-2, "…")
		if c.ID == active {
			b.WriteString(m.styles.SidebarActive.Render(title))
		} else {
			b.WriteString(m.styles.SidebarItem.Render(title))
		}
		b.WriteString("\n")
	}

	return m.styles.Sidebar.
		Width(sidebarWidth).
		Height(max(m.height-1, 1)).
		Render(b.String())
}

func (m *Model) renderStatusLine() string {
	if m.status != "" {
		if m.statusErr {
			return m.styles.StatusError.Render(m.status)
		}
		return m.styles.Status.Render(m.status)
	}

	if v := m.textarea.Value(); strings.HasPrefix(v, "/") && !strings.Contains(v, " ") {
		var names []string
		for _, c := range FilterCommands(v) {
			names = append(names, "/"+c.Name)
		}
		if len(names) > 0 {
			return m.styles.Muted.Render(strings.Join(names, "  "))
		}
	}

	var hints []string
	for _, k := range m.keyMap.ShortHelp() {
		h := k.Help()
		hints = append(hints, h.Key+" "+h.Desc)
	}
	return m.styles.Footer.Render(runewidth.Truncate(strings.Join(hints, " · "), m.mainWidth(), "…"))
}

func (m *Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Commands") + "\n\n")
	for _, c := range AllCommands() {
		if c.Name == "settings" && m.settings == nil {
			continue
		}
		b.WriteString(fmt.Sprintf("  %-22s %s\n", c.Usage, m.styles.Muted.Render(c.Description)))
	}
	b.WriteString("\n" + m.styles.Title.Render("Keys") + "\n\n")
	for _, k := range m.keyMap.ShortHelp() {
		h := k.Help()
		b.WriteString(fmt.Sprintf("  %-22s %s\n", h.Key, m.styles.Muted.Render(h.Desc)))
	}
	b.WriteString("\n" + m.styles.Muted.Render(`Try "what is the capital of France", "calculate 2+2*3", "wikipedia Alan Turing", or "open youtube".`))
	b.WriteString("\n" + m.styles.Muted.Render("Press Esc to close."))
	return b.String()
}
