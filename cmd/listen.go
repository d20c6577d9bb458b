package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/novachat/nova/internal/ui"
	"github.com/novachat/nova/internal/voice"
)

var errVoiceUnavailable = fmt.Errorf("%w: install arecord or sox and set voice.transcribe_api_key or voice.transcribe_url", voice.ErrUnsupported)

var errNothingHeard = errors.New("nothing heard")

var listenSend bool

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Record one spoken utterance and print the transcript",
	Long: `Record audio with the configured capture command, transcribe it, and
print the lower-cased transcript. With --send the transcript is answered
like a chat message.

Examples:
  nova listen
  nova listen --send`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().BoolVar(&listenSend, "send", false, "Answer the transcript")
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := notifyContext()
	defer stop()

	a, err := newApp(appOptions{LogOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.voice.IsSupported() {
		return errVoiceUnavailable
	}

	styles := ui.NewStyles(cmd.ErrOrStderr())
	fmt.Fprintln(cmd.ErrOrStderr(), styles.Muted.Render(ui.ListeningIcon+" listening..."))
	text, err := listenOnce(ctx, a.voice)
	if err != nil {
		return err
	}
	if !listenSend {
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}

	p := newPlainChat(a, cmd.OutOrStdout())
	p.println(p.styles.Highlighted.Render("you> ") + text)
	p.send(ctx, text)
	return nil
}

// listenOnce runs one recognition session and returns its first transcript.
// Callbacks never block the adapter.
func listenOnce(ctx context.Context, adapter *voice.Adapter) (string, error) {
	results := make(chan string, 1)
	states := make(chan voice.State, 8)
	err := adapter.StartListening(
		func(text string) {
			select {
			case results <- text:
			default:
			}
		},
		func(st voice.State) {
			select {
			case states <- st:
			default:
			}
		},
	)
	if err != nil {
		return "", err
	}
	defer adapter.StopListening()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case text := <-results:
			return text, nil
		case st := <-states:
			if st.Listening {
				continue
			}
			// A result may have been queued just before the session ended.
			select {
			case text := <-results:
				return text, nil
			default:
			}
			if st.Err != "" {
				return "", errors.New(strings.TrimPrefix(st.Err, "Error: "))
			}
			return "", errNothingHeard
		}
	}
}
