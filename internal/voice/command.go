package voice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/novachat/nova/internal/config"
	"github.com/novachat/nova/internal/llm"
	"github.com/novachat/nova/internal/logging"
)

// captureTemplates are tried in order when no capture command is configured.
var captureTemplates = []string{
	"arecord -q -f S16_LE -r 16000 -c 1 -d {seconds} {file}",
	"rec -q -r 16000 -c 1 -b 16 {file} trim 0 {seconds}",
}

// TranscribeFunc turns a recorded file into text.
type TranscribeFunc func(ctx context.Context, path string) (string, error)

// CommandRecognizer records a fixed-length clip with an external capture
// program and sends it to a Whisper-compatible endpoint.
type CommandRecognizer struct {
	argv       []string
	duration   time.Duration
	transcribe TranscribeFunc
	tempDir    string
}

// CommandOptions configures NewCommandRecognizer.
type CommandOptions struct {
	Voice      config.VoiceConfig
	APIKey     string // transcription key; may be empty for a local endpoint
	LookPath   func(string) (string, error)
	Transcribe TranscribeFunc // overrides the Whisper client
	TempDir    string
}

// NewCommandRecognizer returns ErrUnsupported when no capture program is
// available or there is no way to transcribe.
func NewCommandRecognizer(opts CommandOptions) (*CommandRecognizer, error) {
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	argv, err := resolveCapture(opts.Voice.CaptureCommand, lookPath)
	if err != nil {
		return nil, err
	}

	transcribe := opts.Transcribe
	if transcribe == nil {
		if opts.APIKey == "" && opts.Voice.TranscribeURL == "" {
			return nil, fmt.Errorf("%w: no transcription key or endpoint configured", ErrUnsupported)
		}
		topts := llm.TranscribeOptions{
			APIKey:   opts.APIKey,
			Language: opts.Voice.Language,
			Endpoint: opts.Voice.TranscribeURL,
			Model:    opts.Voice.TranscribeModel,
		}
		transcribe = func(ctx context.Context, path string) (string, error) {
			return llm.TranscribeFile(ctx, path, topts)
		}
	}

	duration := opts.Voice.Duration
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return &CommandRecognizer{
		argv:       argv,
		duration:   duration,
		transcribe: transcribe,
		tempDir:    opts.TempDir,
	}, nil
}

func resolveCapture(configured string, lookPath func(string) (string, error)) ([]string, error) {
	candidates := captureTemplates
	if strings.TrimSpace(configured) != "" {
		candidates = []string{configured}
	}
	for _, tmpl := range candidates {
		argv := strings.Fields(tmpl)
		if _, err := lookPath(argv[0]); err == nil {
			return argv, nil
		}
	}
	if strings.TrimSpace(configured) != "" {
		return nil, fmt.Errorf("%w: capture program %q not found", ErrUnsupported, strings.Fields(configured)[0])
	}
	return nil, fmt.Errorf("%w: neither arecord nor rec found on PATH", ErrUnsupported)
}

// Command returns the capture argv for file, with placeholders expanded.
func (r *CommandRecognizer) Command(file string) []string {
	secs := strconv.Itoa(int((r.duration + time.Second - 1) / time.Second))
	out := make([]string, len(r.argv))
	for i, arg := range r.argv {
		arg = strings.ReplaceAll(arg, "{file}", file)
		out[i] = strings.ReplaceAll(arg, "{seconds}", secs)
	}
	return out
}

func (r *CommandRecognizer) Start(ctx context.Context) (<-chan Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan Event, 2)
	go func() {
		defer close(ch)
		emit := func(ev Event) {
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		}

		text, code := r.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if code != "" {
			emit(Event{Kind: EventError, Code: code})
			return
		}
		emit(Event{Kind: EventResult, Transcript: text})
		emit(Event{Kind: EventEnd})
	}()
	return ch, nil
}

// listenOnce records and transcribes one clip. It returns an error code
// instead of the text on failure.
func (r *CommandRecognizer) listenOnce(ctx context.Context) (string, string) {
	f, err := os.CreateTemp(r.tempDir, "nova-voice-*.wav")
	if err != nil {
		return "", CodeAudioCapture
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	argv := r.Command(path)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() == nil {
			logCaptureFailure(argv[0], err, out)
		}
		return "", CodeAudioCapture
	}
	if st, err := os.Stat(path); err != nil || st.Size() == 0 {
		return "", CodeNoSpeech
	}

	text, err := r.transcribe(ctx, path)
	if err != nil {
		if ctx.Err() == nil {
			log := logging.For("voice")
			log.Warn().Err(err).Msg("transcription failed")
		}
		return "", transcribeErrorCode(err)
	}
	text = stripAnnotations(text)
	if text == "" {
		return "", CodeNoSpeech
	}
	return text, ""
}

// transcribeErrorCode reports a rejected key as not-allowed so it is not
// mistaken for a connectivity problem.
func transcribeErrorCode(err error) string {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return CodeNotAllowed
	}
	return CodeNetwork
}

// annotation matches whisper's non-speech markers such as [BLANK_AUDIO].
var annotation = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

func stripAnnotations(s string) string {
	return strings.TrimSpace(annotation.ReplaceAllString(s, ""))
}

func logCaptureFailure(program string, err error, output []byte) {
	log := logging.For("voice")
	log.Warn().Err(err).Str("program", program).Str("output", strings.TrimSpace(string(output))).Msg("audio capture failed")
}
