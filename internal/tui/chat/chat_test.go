package chat

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/novachat/nova/internal/assistant"
	"github.com/novachat/nova/internal/config"
	"github.com/novachat/nova/internal/conversation"
	"github.com/novachat/nova/internal/llm"
	"github.com/novachat/nova/internal/router"
	"github.com/novachat/nova/internal/storage"
	"github.com/novachat/nova/internal/voice"
)

type stubRouter struct {
	reply   string
	entered chan struct{} // closed when Route is called, if set
	release chan struct{} // Route waits on it, if set
	texts   chan string
}

func (s *stubRouter) Route(ctx context.Context, text string, _ []llm.Message) (router.Result, error) {
	if s.texts != nil {
		s.texts <- text
	}
	if s.entered != nil {
		close(s.entered)
	}
	if s.release != nil {
		<-s.release
	}
	return router.Result{Kind: router.KindBuiltin, Text: s.reply}, nil
}

type testEnv struct {
	m     *Model
	convs *conversation.Manager
	api   *config.APIStore
	kv    *storage.MemoryKV
}

func newTestEnv(t *testing.T, r assistant.Router, v *voice.Adapter) *testEnv {
	t.Helper()
	kv := storage.NewMemoryKV()
	api := config.NewAPIStore(kv)
	convs := conversation.NewManager()
	m := New(Options{
		Service:  assistant.New(convs, r),
		APIStore: api,
		Voice:    v,
		Output:   &bytes.Buffer{},
	})
	t.Cleanup(m.stop)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return &testEnv{m: m, convs: convs, api: api, kv: kv}
}

// collect runs cmd and returns the messages it produced. Commands that do
// not finish within wait (timers, event feeds) contribute nothing.
func collect(cmd tea.Cmd, wait time.Duration) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c, wait)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(wait):
		return nil
	}
}

func findReply(t *testing.T, msgs []tea.Msg) replyMsg {
	t.Helper()
	for _, msg := range msgs {
		if r, ok := msg.(replyMsg); ok {
			return r
		}
	}
	t.Fatalf("no reply among %d messages", len(msgs))
	return replyMsg{}
}

func (e *testEnv) typeAndSend(text string) tea.Cmd {
	e.m.textarea.SetValue(text)
	_, cmd := e.m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestSendAppendsReplyAndTitle(t *testing.T) {
	env := newTestEnv(t, &stubRouter{reply: "Hello there!"}, nil)

	cmd := env.typeAndSend("hello")
	if !env.m.loading {
		t.Fatal("expected loading while the turn runs")
	}
	if env.m.textarea.Value() != "" {
		t.Fatalf("input not cleared: %q", env.m.textarea.Value())
	}
	env.m.Update(findReply(t, collect(cmd, time.Second)))

	if env.m.loading {
		t.Fatal("loading should clear after the reply")
	}
	conv, _ := env.convs.Active()
	if len(conv.Messages) != 3 {
		t.Fatalf("messages=%+v, want greeting, user, reply", conv.Messages)
	}
	if conv.Messages[2].Content != "Hello there!" || conv.Title != "hello" {
		t.Fatalf("reply=%q title=%q", conv.Messages[2].Content, conv.Title)
	}
	if !strings.Contains(ansi.Strip(env.m.View()), "Hello there!") {
		t.Fatal("reply not rendered")
	}
}

func TestBlankInputIsIgnored(t *testing.T) {
	env := newTestEnv(t, &stubRouter{reply: "x"}, nil)
	if cmd := env.typeAndSend("   "); cmd != nil {
		t.Fatal("blank input should not start a turn")
	}
	if env.m.loading {
		t.Fatal("blank input set loading")
	}
}

func TestSecondSendWaitsForFirst(t *testing.T) {
	r := &stubRouter{reply: "done", entered: make(chan struct{}), release: make(chan struct{})}
	env := newTestEnv(t, r, nil)

	first := env.typeAndSend("one")
	env.typeAndSend("two")
	if env.m.textarea.Value() != "two" {
		t.Fatalf("pending input lost: %q", env.m.textarea.Value())
	}
	if !strings.Contains(env.m.status, "Still waiting") {
		t.Fatalf("status=%q", env.m.status)
	}

	close(r.release)
	env.m.Update(findReply(t, collect(first, time.Second)))
	if env.m.loading {
		t.Fatal("still loading")
	}
}

func TestDeletingConversationDropsLateReply(t *testing.T) {
	r := &stubRouter{reply: "late", entered: make(chan struct{}), release: make(chan struct{})}
	env := newTestEnv(t, r, nil)
	other := env.convs.New()
	target := env.convs.New()

	cmd := env.typeAndSend("slow question")
	done := make(chan []tea.Msg, 1)
	go func() { done <- collect(cmd, 2*time.Second) }()
	<-r.entered

	env.m.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	if env.convs.Exists(target.ID) {
		t.Fatal("ctrl+d did not delete the active conversation")
	}
	close(r.release)
	reply := findReply(t, <-done)
	env.m.Update(reply)

	if reply.err == nil || !strings.Contains(env.m.status, "discarded") {
		t.Fatalf("err=%v status=%q", reply.err, env.m.status)
	}
	for _, c := range env.convs.List() {
		for _, msg := range c.Messages {
			if msg.Content == "late" {
				t.Fatalf("late reply leaked into %s", c.ID)
			}
		}
	}
	if env.convs.ActiveID() != other.ID {
		t.Fatalf("active=%s, want %s", env.convs.ActiveID(), other.ID)
	}
}

func TestReplyLandsInOriginatingConversation(t *testing.T) {
	r := &stubRouter{reply: "answer", entered: make(chan struct{}), release: make(chan struct{})}
	env := newTestEnv(t, r, nil)
	origin := env.convs.ActiveID()

	cmd := env.typeAndSend("question")
	done := make(chan []tea.Msg, 1)
	go func() { done <- collect(cmd, 2*time.Second) }()
	<-r.entered
	env.m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	close(r.release)
	env.m.Update(findReply(t, <-done))

	msgs, _ := env.convs.Messages(origin)
	if len(msgs) != 3 || msgs[2].Content != "answer" {
		t.Fatalf("origin=%+v", msgs)
	}
	if !strings.Contains(env.m.status, "New reply in") {
		t.Fatalf("status=%q", env.m.status)
	}
}

func TestNewAndMoveKeys(t *testing.T) {
	env := newTestEnv(t, &stubRouter{}, nil)
	first := env.convs.ActiveID()

	env.m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	second := env.convs.ActiveID()
	if second == first || env.convs.Len() != 2 {
		t.Fatalf("ctrl+n: active=%s len=%d", second, env.convs.Len())
	}
	env.m.Update(tea.KeyMsg{Type: tea.KeyCtrlDown})
	if env.convs.ActiveID() != first {
		t.Fatalf("ctrl+down: active=%s, want %s", env.convs.ActiveID(), first)
	}
	env.m.Update(tea.KeyMsg{Type: tea.KeyCtrlDown})
	if env.convs.ActiveID() != second {
		t.Fatal("ctrl+down should wrap to the top")
	}
	env.m.Update(tea.KeyMsg{Type: tea.KeyCtrlUp})
	if env.convs.ActiveID() != first {
		t.Fatal("ctrl+up should wrap to the bottom")
	}
}

func TestSwitchCommandFuzzy(t *testing.T) {
	env := newTestEnv(t, &stubRouter{}, nil)
	a := env.convs.ActiveID()
	_ = env.convs.SetTitle(a, "golang channels")
	b := env.convs.New()
	_ = env.convs.SetTitle(b.ID, "weekend plans")

	env.typeAndSend("/switch gchn")
	if env.convs.ActiveID() != a {
		t.Fatalf("active=%s, want %s", env.convs.ActiveID(), a)
	}
	env.typeAndSend("/switch zzzz")
	if !env.m.statusErr || !strings.Contains(env.m.status, "No chat matches") {
		t.Fatalf("status=%q", env.m.status)
	}
}

func TestProviderAndClearKeyCommands(t *testing.T) {
	env := newTestEnv(t, &stubRouter{}, nil)
	if err := env.api.Save(config.APIConfig{Provider: config.ProviderOpenAI, APIKey: "sk-test1234"}); err != nil {
		t.Fatal(err)
	}

	env.typeAndSend("/provider")
	if !strings.Contains(env.m.status, "openai") || !strings.Contains(env.m.status, "1234") {
		t.Fatalf("status=%q", env.m.status)
	}

	env.typeAndSend("/provider perplexity " + config.PerplexityModels[1])
	got := env.api.Get()
	if got.Provider != config.ProviderPerplexity || got.Model != config.PerplexityModels[1] || got.APIKey != "sk-test1234" {
		t.Fatalf("saved %+v", got)
	}

	env.typeAndSend("/provider anthropic")
	if !env.m.statusErr {
		t.Fatalf("unknown provider accepted: %q", env.m.status)
	}

	env.typeAndSend("/clear-key")
	if env.api.IsConfigured() {
		t.Fatal("/clear-key left the key")
	}
	if _, ok, _ := env.kv.Get(config.APIConfigKey); ok {
		t.Fatal("/clear-key left the stored slot")
	}
}

func TestUnknownAndAmbiguousCommands(t *testing.T) {
	env := newTestEnv(t, &stubRouter{}, nil)
	env.typeAndSend("/frobnicate")
	if !strings.Contains(env.m.status, "unknown command") {
		t.Fatalf("status=%q", env.m.status)
	}
	env.typeAndSend("/help")
	if !env.m.showHelp || !strings.Contains(ansi.Strip(env.m.View()), "/switch <title>") {
		t.Fatal("/help did not show the command list")
	}
	env.m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if env.m.showHelp {
		t.Fatal("esc should close help")
	}
}

func TestSettingsChangeReloadsStore(t *testing.T) {
	env := newTestEnv(t, &stubRouter{}, nil)
	raw := []byte(`{"provider":"mock","apiKey":"k"}`)
	if err := env.kv.Set(config.APIConfigKey, raw); err != nil {
		t.Fatal(err)
	}
	env.m.Update(settingsChangedMsg{})
	if !env.api.IsConfigured() || env.api.Get().Provider != config.ProviderMock {
		t.Fatalf("store not reloaded: %+v", env.api.Get())
	}
	if env.m.status != "API settings saved" {
		t.Fatalf("status=%q", env.m.status)
	}
}

func TestVoiceUnsupported(t *testing.T) {
	env := newTestEnv(t, &stubRouter{}, nil)
	env.m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if env.m.status != "Speech recognition not supported" || !env.m.statusErr {
		t.Fatalf("status=%q", env.m.status)
	}
}

type scriptedRecognizer struct{ events []voice.Event }

func (r *scriptedRecognizer) Start(ctx context.Context) (<-chan voice.Event, error) {
	ch := make(chan voice.Event, len(r.events))
	for _, e := range r.events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func TestVoiceTranscriptIsSent(t *testing.T) {
	rec := &scriptedRecognizer{events: []voice.Event{
		{Kind: voice.EventResult, Transcript: "What Time Is It"},
		{Kind: voice.EventEnd},
	}}
	texts := make(chan string, 1)
	env := newTestEnv(t, &stubRouter{reply: "noon", texts: texts}, voice.NewAdapter(rec, voice.Options{}))

	env.m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})

	var cmd tea.Cmd
	deadline := time.After(2 * time.Second)
	for cmd == nil {
		select {
		case msg := <-env.m.events:
			_, c := env.m.Update(msg)
			if _, ok := msg.(voiceResultMsg); ok {
				cmd = c
			}
		case <-deadline:
			t.Fatal("no transcript delivered")
		}
	}
	env.m.Update(findReply(t, collect(cmd, time.Second)))

	if got := <-texts; got != "what time is it" {
		t.Fatalf("routed %q", got)
	}
	conv, _ := env.convs.Active()
	if last := conv.Messages[len(conv.Messages)-1]; last.Content != "noon" {
		t.Fatalf("last=%+v", last)
	}
}

func TestFilterCommands(t *testing.T) {
	tests := []struct {
		query string
		first string
	}{
		{"/sw", "switch"},
		{"q", "quit"},
		{"/clear", "clear-key"},
		{"lsn", "listen"},
	}
	for _, tt := range tests {
		got := FilterCommands(tt.query)
		if len(got) == 0 || got[0].Name != tt.first {
			t.Errorf("FilterCommands(%q) first=%v, want %s", tt.query, got, tt.first)
		}
	}
	if len(FilterCommands("")) != len(AllCommands()) {
		t.Error("empty query should list every command")
	}
}

func TestViewLayout(t *testing.T) {
	env := newTestEnv(t, &stubRouter{}, nil)
	view := ansi.Strip(env.m.View())
	for _, want := range []string{"Chats", conversation.DefaultTitle, "offline", "What can I do for you?"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	env.m.Update(tea.WindowSizeMsg{Width: 50, Height: 20})
	if strings.Contains(env.m.View(), "Chats") {
		t.Error("narrow terminal should hide the sidebar")
	}
}

func TestDescribeError(t *testing.T) {
	err := &llm.APIError{Provider: "OpenAI", StatusCode: 401, Message: "bad key"}
	if got := describeError(fmt.Errorf("generate reply: %w", err)); got != "Error: "+err.Error() {
		t.Fatalf("got %q", got)
	}
}
