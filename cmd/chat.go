package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/novachat/nova/internal/tui/chat"
)

var (
	chatPlain bool
	chatVoice bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session. This is also what running nova
with no subcommand does.

Examples:
  nova chat
  nova chat --plain                     # line-based, no full screen UI
  nova chat --voice                     # answer spoken questions until Ctrl+C

Keyboard shortcuts:
  Enter        - Send message
  Alt+Enter    - Insert newline
  Ctrl+N       - New chat
  Ctrl+D       - Delete chat
  Ctrl+Up/Down - Switch chat
  Ctrl+L       - Start or stop voice input
  Ctrl+C       - Quit

Slash commands:
  /new /delete /switch <title> /listen /provider [name] [model]
  /settings /clear-key /help /quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	addChatFlags(chatCmd)
	rootCmd.AddCommand(chatCmd)
}

func addChatFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&chatPlain, "plain", false, "Use the line-based chat instead of the full screen UI")
	cmd.Flags().BoolVar(&chatVoice, "voice", false, "Listen for spoken questions (implies --plain)")
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatPlain || chatVoice || !term.IsTerminal(int(os.Stdout.Fd())) {
		return runPlain(cmd)
	}

	ctx, stop := notifyContext()
	defer stop()

	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	model := chat.New(chat.Options{
		Config:   a.cfg,
		Service:  a.svc,
		APIStore: a.api,
		Voice:    a.voice,
		Watch:    a.kv.Watch,
		Settings: settingsCommand,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run chat: %w", err)
	}
	return nil
}

// settingsCommand re-runs this binary's settings form.
func settingsCommand() *exec.Cmd {
	exe, err := os.Executable()
	if err != nil {
		exe = "nova"
	}
	return exec.Command(exe, "config", "setup")
}
