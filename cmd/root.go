package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nova",
	Short: "A voice-enabled chat assistant for the terminal",
	Long: `nova answers typed or spoken questions. Built-in commands cover
Wikipedia lookups, capitals, arithmetic, the time, jokes and opening
websites; everything else goes to the configured AI provider, or to an
offline pattern engine when no API key is set.

Examples:
  nova                                  # start the chat TUI
  nova chat --plain                     # line-based chat
  nova ask "what is the capital of France"
  nova listen --send                    # speak one question
  nova config setup                     # choose provider and API key`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	SilenceUsage:      true,
	Args:              cobra.NoArgs,
	RunE:              runChat,
}

var debugLog bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Log at debug level")
	addChatFlags(rootCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// notifyContext returns a context cancelled on SIGINT or SIGTERM.
func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
