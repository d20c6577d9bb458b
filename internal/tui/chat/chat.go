// Package chat is the full-screen bubbletea chat client.
package chat

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/novachat/nova/internal/assistant"
	"github.com/novachat/nova/internal/config"
	"github.com/novachat/nova/internal/conversation"
	"github.com/novachat/nova/internal/logging"
	"github.com/novachat/nova/internal/ui"
	"github.com/novachat/nova/internal/voice"
)

// statusTTL is how long a transient notice stays in the status line.
const statusTTL = 4 * time.Second

// Options wires the model to the rest of the application.
type Options struct {
	Config   *config.Config
	Service  *assistant.Service
	APIStore *config.APIStore
	Voice    *voice.Adapter // nil disables voice input

	// Watch, when set, blocks until ctx is done and calls fn whenever the
	// persisted settings change on disk.
	Watch func(ctx context.Context, fn func()) error

	// Settings runs the interactive settings form. Nil hides /settings.
	Settings func() *exec.Cmd

	Output io.Writer
}

// Model is the main chat TUI model
type Model struct {
	width  int
	height int

	textarea textarea.Model
	spinner  spinner.Model
	viewport viewport.Model
	styles   *ui.Styles
	keyMap   KeyMap

	cfg      *config.Config
	svc      *assistant.Service
	convs    *conversation.Manager
	api      *config.APIStore
	voice    *voice.Adapter
	watch    func(ctx context.Context, fn func()) error
	settings func() *exec.Cmd
	log      zerolog.Logger

	// Request state. One turn is in flight at a time.
	loading bool
	pending assistant.Ticket

	listening bool
	showHelp  bool

	status    string
	statusErr bool
	statusID  int

	// rendered caches the viewport content for renderedKey.
	rendered    string
	renderedKey string

	// events carries messages produced off the bubbletea goroutine
	// (voice callbacks, settings file changes).
	events chan tea.Msg
	ctx    context.Context
	stop   context.CancelFunc

	quitting bool
}

type (
	replyMsg struct {
		reply assistant.Reply
		err   error
	}
	voiceResultMsg     struct{ text string }
	voiceStateMsg      struct{ state voice.State }
	settingsChangedMsg struct{}
	settingsDoneMsg    struct{ err error }
	clearStatusMsg     struct{ id int }
)

// New creates a chat model. The service's conversation manager is used as
// is; if it is empty a first conversation is opened.
func New(opts Options) *Model {
	width, height := 100, 30
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width, height = w, h
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	styles := ui.NewStyles(out)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	ta := textarea.New()
	ta.Placeholder = "Send a message... (/help for commands)"
	ta.Prompt = "❯ "
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(2)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(styles.Theme().Muted)
	ta.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(styles.Theme().Primary).Bold(true)
	ta.BlurredStyle = ta.FocusedStyle
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	ctx, stop := context.WithCancel(context.Background())
	m := &Model{
		textarea: ta,
		spinner:  s,
		viewport: viewport.New(width, height),
		styles:   styles,
		keyMap:   DefaultKeyMap(),
		cfg:      opts.Config,
		svc:      opts.Service,
		convs:    opts.Service.Conversations(),
		api:      opts.APIStore,
		voice:    opts.Voice,
		watch:    opts.Watch,
		settings: opts.Settings,
		log:      logging.For("tui"),
		events:   make(chan tea.Msg, 32),
		ctx:      ctx,
		stop:     stop,
	}
	if m.cfg == nil {
		m.cfg = &config.Config{Assistant: config.AssistantConfig{Name: "NOVA"}}
	}
	if m.convs.Len() == 0 {
		m.convs.New()
	}
	m.resize(width, height)
	return m
}

// Init starts the event feed and the settings watcher.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.waitForEvent(),
		m.watchSettings(),
	)
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport()
		return m, cmd

	case replyMsg:
		return m, m.handleReply(msg)

	case voiceResultMsg:
		return m, tea.Batch(m.handleTranscript(msg.text), m.waitForEvent())

	case voiceStateMsg:
		m.listening = msg.state.Listening
		var cmd tea.Cmd
		if msg.state.Err != "" {
			cmd = m.setStatus(msg.state.Err, true)
		}
		return m, tea.Batch(cmd, m.waitForEvent())

	case settingsChangedMsg:
		return m, tea.Batch(m.reloadSettings(), m.waitForEvent())

	case settingsDoneMsg:
		if msg.err != nil {
			return m, m.setStatus("Settings: "+msg.err.Error(), true)
		}
		return m, m.reloadSettings()

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
			m.statusErr = false
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, m.quit()

	case key.Matches(msg, m.keyMap.Send):
		input := m.textarea.Value()
		m.textarea.Reset()
		return m.submit(input)

	case key.Matches(msg, m.keyMap.ClearInput):
		m.textarea.Reset()
		m.showHelp = false
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.NewChat):
		return m, m.newChat()

	case key.Matches(msg, m.keyMap.DeleteChat):
		return m, m.deleteChat()

	case key.Matches(msg, m.keyMap.PrevChat):
		m.convs.Move(-1)
		m.afterSwitch()
		return m, nil

	case key.Matches(msg, m.keyMap.NextChat):
		m.convs.Move(1)
		m.afterSwitch()
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Voice):
		return m, m.toggleVoice()
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// submit handles one line of input: a slash command or a chat message.
func (m *Model) submit(input string) (tea.Model, tea.Cmd) {
	if len(input) > 0 && input[0] == '/' {
		return m.ExecuteCommand(input)
	}
	return m, m.send(input)
}

// send starts a turn in the active conversation, opening one if needed.
func (m *Model) send(text string) tea.Cmd {
	if m.loading {
		m.textarea.SetValue(text)
		return m.setStatus("Still waiting for the previous reply", false)
	}
	convID := m.convs.ActiveID()
	if convID == "" {
		convID = m.convs.New().ID
	}
	t, err := m.svc.Begin(convID, text)
	if errors.Is(err, assistant.ErrEmpty) {
		return nil
	}
	if err != nil {
		return m.setStatus(err.Error(), true)
	}

	m.loading = true
	m.pending = t
	m.showHelp = false

	svc, ctx := m.svc, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		reply, err := svc.Run(ctx, t, text)
		return replyMsg{reply: reply, err: err}
	})
}

func (m *Model) handleReply(msg replyMsg) tea.Cmd {
	if msg.reply.Ticket == m.pending {
		m.loading = false
		m.pending = assistant.Ticket{}
	}
	m.refreshViewport()

	switch {
	case msg.err == nil:
		if msg.reply.ConvID != m.convs.ActiveID() {
			return m.setStatus("New reply in \""+m.title(msg.reply.ConvID)+"\"", false)
		}
		return nil
	case errors.Is(msg.err, assistant.ErrStale):
		return m.setStatus("Reply discarded: its conversation was deleted", false)
	case errors.Is(msg.err, context.Canceled):
		return nil
	default:
		return m.setStatus(describeError(msg.err), true)
	}
}

// handleTranscript sends a finalized voice utterance as a message.
func (m *Model) handleTranscript(text string) tea.Cmd {
	if text == "" {
		return nil
	}
	if m.loading {
		m.textarea.SetValue(text)
		return m.setStatus("Heard: "+text, false)
	}
	return m.send(text)
}

func (m *Model) newChat() tea.Cmd {
	m.convs.New()
	m.afterSwitch()
	return nil
}

func (m *Model) deleteChat() tea.Cmd {
	id := m.convs.ActiveID()
	if id == "" {
		return m.setStatus("No conversation selected", false)
	}
	title := m.title(id)
	if err := m.convs.Delete(id); err != nil {
		return m.setStatus(err.Error(), true)
	}
	if id == m.pending.ConvID {
		m.loading = false
		m.pending = assistant.Ticket{}
	}
	m.afterSwitch()
	return m.setStatus("Deleted \""+title+"\"", false)
}

func (m *Model) afterSwitch() {
	m.showHelp = false
	m.refreshViewport()
	m.viewport.GotoBottom()
}

// toggleVoice starts listening, or stops a running session.
func (m *Model) toggleVoice() tea.Cmd {
	if m.voice == nil || !m.voice.IsSupported() {
		return m.setStatus("Speech recognition not supported", true)
	}
	if m.listening {
		m.voice.StopListening()
		return nil
	}
	err := m.voice.StartListening(
		func(text string) { m.post(voiceResultMsg{text: text}) },
		func(st voice.State) { m.post(voiceStateMsg{state: st}) },
	)
	if err != nil {
		return m.setStatus(err.Error(), true)
	}
	return m.setStatus("Listening...", false)
}

// post delivers msg from a background goroutine.
func (m *Model) post(msg tea.Msg) {
	select {
	case m.events <- msg:
	case <-m.ctx.Done():
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	events, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case msg := <-events:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) watchSettings() tea.Cmd {
	if m.watch == nil {
		return nil
	}
	watch, ctx, log := m.watch, m.ctx, m.log
	return func() tea.Msg {
		err := watch(ctx, func() { m.post(settingsChangedMsg{}) })
		if err != nil {
			log.Warn().Err(err).Msg("settings watcher stopped")
		}
		return nil
	}
}

func (m *Model) reloadSettings() tea.Cmd {
	if m.api == nil {
		return nil
	}
	was := m.api.IsConfigured()
	if err := m.api.Load(); err != nil {
		return m.setStatus("Failed to reload settings: "+err.Error(), true)
	}
	switch now := m.api.IsConfigured(); {
	case now && !was:
		return m.setStatus("API settings saved", false)
	case !now && was:
		return m.setStatus("API key removed; using offline replies", false)
	}
	return nil
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	if m.voice != nil {
		m.voice.StopListening()
	}
	m.stop()
	return tea.Quit
}

// setStatus shows a transient notice and schedules its removal.
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusID++
	m.status = text
	m.statusErr = isErr
	id := m.statusID
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return clearStatusMsg{id: id} })
}

func (m *Model) title(id string) string {
	for _, c := range m.convs.List() {
		if c.ID == id {
			return c.Title
		}
	}
	return conversation.DefaultTitle
}

// describeError strips the turn wrapper so the status line shows the cause.
func describeError(err error) string {
	if inner := errors.Unwrap(err); inner != nil {
		err = inner
	}
	return "Error: " + err.Error()
}
