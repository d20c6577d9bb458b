package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/novachat/nova/internal/ui"
)

var askRaw bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and exit",
	Long: `Route one question exactly like a chat message and print the reply.

Examples:
  nova ask "what is the capital of France"
  nova ask calculate 12*(3+4)
  nova ask "wikipedia Ada Lovelace" --raw
  echo "tell me a joke" | nova ask`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "Print the reply without markdown rendering")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	if strings.TrimSpace(question) == "" {
		stdin, err := readStdin()
		if err != nil {
			return err
		}
		question = stdin
	}
	if strings.TrimSpace(question) == "" {
		return errors.New("nothing to ask: pass a question or pipe one on stdin")
	}

	ctx, stop := notifyContext()
	defer stop()

	a, err := newApp(appOptions{LogOut: cmd.ErrOrStderr(), NoVoice: true})
	if err != nil {
		return err
	}
	defer a.Close()

	conv := a.convs.New()
	reply, err := a.svc.Send(ctx, conv.ID, question)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if askRaw || !isTerminal(out) {
		fmt.Fprintln(out, reply.Result.Text)
		return nil
	}
	p := newPlainChat(a, out)
	fmt.Fprintln(out, strings.TrimRight(ui.RenderMarkdown(reply.Result.Text, p.width), "\n"))
	return nil
}

// readStdin returns piped input, or "" when stdin is a terminal.
func readStdin() (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
