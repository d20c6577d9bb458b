package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/novachat/nova/internal/assistant"
	"github.com/novachat/nova/internal/config"
	"github.com/novachat/nova/internal/tui/chat"
	"github.com/novachat/nova/internal/ui"
)

// maxVoiceFailures ends --voice mode after this many failed listens in a row.
const maxVoiceFailures = 3

// plainChat is the line-based front end. It shares the assistant service
// with the TUI and prints replies as rendered markdown.
type plainChat struct {
	a      *app
	out    io.Writer
	styles *ui.Styles
	width  int
	name   string
	color  bool // false when out is not a terminal; escape codes are stripped

	// setup runs the settings form for /settings. Nil hides it.
	setup func() error
}

func newPlainChat(a *app, out io.Writer) *plainChat {
	width, color := 80, false
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		color = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	name := a.cfg.Assistant.Name
	if name == "" {
		name = "NOVA"
	}
	return &plainChat{a: a, out: out, styles: ui.NewStyles(out), width: width, name: name, color: color}
}

func runPlain(cmd *cobra.Command) error {
	ctx, stop := notifyContext()
	defer stop()

	a, err := newApp(appOptions{LogOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	p := newPlainChat(a, cmd.OutOrStdout())
	p.setup = func() error { return runSetupForm(a.api) }
	p.greet()
	if chatVoice {
		return p.voiceLoop(ctx)
	}
	return p.repl(ctx)
}

func (p *plainChat) greet() {
	if _, ok := p.a.convs.Active(); !ok {
		p.a.convs.New()
	}
	conv, _ := p.a.convs.Active()
	if len(conv.Messages) > 0 {
		p.printAssistant(conv.Messages[0].Content)
	}
	p.println(p.styles.Muted.Render(p.a.api.Get().Describe() + " · /help for commands"))
}

func (p *plainChat) repl(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	histFile := replHistoryFile()
	if histFile != "" {
		if f, err := os.Open(histFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if err := os.MkdirAll(filepath.Dir(histFile), 0755); err != nil {
				return
			}
			if f, err := os.Create(histFile); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()
	}

	for ctx.Err() == nil {
		input, err := line.Prompt("you> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			p.println("")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if quit := p.handle(ctx, input); quit {
			return nil
		}
	}
	return nil
}

// voiceLoop answers spoken questions until interrupted.
func (p *plainChat) voiceLoop(ctx context.Context) error {
	if !p.a.voice.IsSupported() {
		return errVoiceUnavailable
	}
	failures := 0
	for ctx.Err() == nil {
		p.println(p.styles.Muted.Render(ui.ListeningIcon + " listening..."))
		text, err := listenOnce(ctx, p.a.voice)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			p.println(p.styles.Error.Render("Error: " + err.Error()))
			if failures >= maxVoiceFailures {
				return err
			}
			continue
		}
		failures = 0
		p.println(p.styles.Highlighted.Render("you> ") + text)
		if quit := p.handle(ctx, text); quit {
			return nil
		}
	}
	return nil
}

// handle runs one line of input and reports whether the session should end.
func (p *plainChat) handle(ctx context.Context, input string) bool {
	if strings.HasPrefix(input, "/") {
		return p.command(ctx, input)
	}
	p.send(ctx, input)
	return false
}

func (p *plainChat) send(ctx context.Context, text string) {
	convID := p.a.convs.ActiveID()
	if convID == "" {
		convID = p.a.convs.New().ID
	}
	reply, err := p.a.svc.Send(ctx, convID, text)
	switch {
	case errors.Is(err, assistant.ErrEmpty):
	case errors.Is(err, context.Canceled):
	case err != nil:
		p.println(p.styles.Error.Render(describeError(err)))
	default:
		p.printAssistant(reply.Result.Text)
	}
}

func (p *plainChat) command(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	c, err := chat.LookupCommand(name)
	if err != nil {
		p.println(p.styles.Error.Render(err.Error()))
		return false
	}

	convs := p.a.convs
	switch c.Name {
	case "help":
		p.printHelp()
	case "new":
		conv := convs.New()
		p.printAssistant(conv.Messages[0].Content)
	case "delete":
		conv, ok := convs.Active()
		if !ok {
			p.println(p.styles.Muted.Render("No conversation to delete"))
			break
		}
		if err := convs.Delete(conv.ID); err != nil {
			p.println(p.styles.Error.Render(err.Error()))
			break
		}
		p.println(p.styles.Muted.Render(fmt.Sprintf("Deleted %q", conv.Title)))
		if next, ok := convs.Active(); ok {
			p.println(p.styles.Muted.Render(fmt.Sprintf("Now in %q", next.Title)))
		}
	case "switch":
		p.cmdSwitch(strings.Join(args, " "))
	case "listen":
		if !p.a.voice.IsSupported() {
			p.println(p.styles.Error.Render("Speech recognition not supported"))
			break
		}
		p.println(p.styles.Muted.Render(ui.ListeningIcon + " listening..."))
		text, err := listenOnce(ctx, p.a.voice)
		if err != nil {
			p.println(p.styles.Error.Render("Error: " + err.Error()))
			break
		}
		p.println(p.styles.Highlighted.Render("you> ") + text)
		p.send(ctx, text)
	case "provider":
		p.cmdProvider(args)
	case "settings":
		if p.setup == nil {
			p.println(p.styles.Muted.Render("Run `nova config setup` to change settings"))
			break
		}
		if err := p.setup(); err != nil {
			p.println(p.styles.Error.Render(err.Error()))
			break
		}
		p.println(p.styles.Muted.Render(p.a.api.Get().Describe()))
	case "clear-key":
		if err := p.a.api.Clear(); err != nil {
			p.println(p.styles.Error.Render(err.Error()))
			break
		}
		p.println(p.styles.Muted.Render("API key cleared; using offline replies"))
	case "quit":
		return true
	}
	return false
}

func (p *plainChat) cmdSwitch(query string) {
	convs := p.a.convs
	if query == "" {
		active := convs.ActiveID()
		for _, c := range convs.List() {
			marker := "  "
			if c.ID == active {
				marker = "* "
			}
			p.println(marker + c.Title)
		}
		return
	}
	found := convs.Find(query)
	if len(found) == 0 {
		p.println(p.styles.Error.Render(fmt.Sprintf("No chat matches %q", query)))
		return
	}
	if err := convs.Select(found[0].ID); err != nil {
		p.println(p.styles.Error.Render(err.Error()))
		return
	}
	p.println(p.styles.Muted.Render(fmt.Sprintf("Now in %q", found[0].Title)))
}

func (p *plainChat) cmdProvider(args []string) {
	if len(args) == 0 {
		p.println(p.a.api.Get().Describe())
		return
	}
	provider, err := config.ParseProviderType(args[0])
	if err != nil {
		p.println(p.styles.Error.Render(err.Error()))
		return
	}
	var model string
	if len(args) > 1 {
		model = args[1]
	}
	next, err := p.a.api.Switch(provider, model)
	if err != nil {
		p.println(p.styles.Error.Render(err.Error()))
		return
	}
	p.println(p.styles.Muted.Render(next.Describe()))
}

func (p *plainChat) printHelp() {
	for _, c := range chat.AllCommands() {
		if c.Name == "settings" && p.setup == nil {
			continue
		}
		p.println(fmt.Sprintf("  %-26s %s", c.Usage, p.styles.Muted.Render(c.Description)))
	}
	p.println(p.styles.Muted.Render("  /switch with no title lists chats."))
}

func (p *plainChat) printAssistant(text string) {
	p.println(p.styles.AssistantName.Render(p.name))
	p.println(strings.TrimRight(ui.RenderMarkdown(text, p.width), "\n"))
}

func (p *plainChat) println(s string) {
	if !p.color {
		s = ansi.Strip(s)
	}
	fmt.Fprintln(p.out, s)
}

// completeCommand offers slash commands for the line editor.
func completeCommand(line string) []string {
	if !strings.HasPrefix(line, "/") || strings.Contains(line, " ") {
		return nil
	}
	var out []string
	for _, c := range chat.AllCommands() {
		if strings.HasPrefix("/"+c.Name, line) {
			out = append(out, "/"+c.Name)
		}
	}
	return out
}

func replHistoryFile() string {
	dataDir, err := config.GetDataDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dataDir, "repl_history")
}

// describeError turns a turn failure into one line for the user.
func describeError(err error) string {
	if errors.Is(err, assistant.ErrStale) {
		return "Reply discarded: its conversation was deleted"
	}
	return "Error: " + err.Error()
}
