package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/novachat/nova/internal/llm"
)

var (
	transcribeLanguage  string
	transcribePorcelain bool
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file>",
	Short: "Transcribe an audio file with the voice transcription endpoint",
	Long: `Send an audio file to the endpoint voice input uses and print the text.
Handy for checking voice.transcribe_url and the transcription key.

Examples:
  nova transcribe question.wav
  nova transcribe memo.m4a --language de --porcelain`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	transcribeCmd.Flags().StringVar(&transcribeLanguage, "language", "", `Language hint (e.g. "en"); defaults to voice.language`)
	transcribeCmd.Flags().BoolVar(&transcribePorcelain, "porcelain", false, "Output only the transcript text")
	rootCmd.AddCommand(transcribeCmd)
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	ctx, stop := notifyContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, api, err := openAPIStore()
	if err != nil {
		return err
	}

	filePath := args[0]
	mimeType, err := detectAudioMimeType(filePath)
	if err != nil {
		return err
	}

	opts := llm.TranscribeOptions{
		APIKey:   transcribeKey(cfg, api.Get()),
		Language: cfg.Voice.Language,
		Endpoint: cfg.Voice.TranscribeURL,
		Model:    cfg.Voice.TranscribeModel,
	}
	if lang := strings.TrimSpace(transcribeLanguage); lang != "" {
		opts.Language = lang
	}
	if opts.APIKey == "" && opts.Endpoint == "" {
		return fmt.Errorf("no transcription endpoint: set voice.transcribe_api_key, voice.transcribe_url, or store an OpenAI key")
	}

	if !transcribePorcelain {
		fmt.Fprintf(cmd.ErrOrStderr(), "Transcribing %s (%s)...\n", filepath.Base(filePath), mimeType)
	}
	text, err := llm.TranscribeFile(ctx, filePath, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func detectAudioMimeType(filePath string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".wav":
		return "audio/wav", nil
	case ".mp3":
		return "audio/mpeg", nil
	case ".m4a", ".mp4":
		return "audio/mp4", nil
	case ".ogg":
		return "audio/ogg", nil
	case ".flac":
		return "audio/flac", nil
	case ".webm":
		return "audio/webm", nil
	default:
		return "", fmt.Errorf("unsupported audio extension %q", ext)
	}
}
