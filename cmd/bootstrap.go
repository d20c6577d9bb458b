package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/novachat/nova/internal/assistant"
	"github.com/novachat/nova/internal/config"
	"github.com/novachat/nova/internal/conversation"
	"github.com/novachat/nova/internal/llm"
	"github.com/novachat/nova/internal/logging"
	"github.com/novachat/nova/internal/router"
	"github.com/novachat/nova/internal/session"
	"github.com/novachat/nova/internal/storage"
	"github.com/novachat/nova/internal/ui"
	"github.com/novachat/nova/internal/voice"
	"github.com/novachat/nova/internal/wiki"
)

// app holds everything a chat front end needs.
type app struct {
	cfg     *config.Config
	kv      *storage.FileKV
	api     *config.APIStore
	history session.Store
	convs   *conversation.Manager
	svc     *assistant.Service
	voice   *voice.Adapter
	log     zerolog.Logger

	closers []io.Closer
}

type appOptions struct {
	// LogOut mirrors log lines to a writer, usually stderr for one-shot
	// commands. The TUI leaves it nil since it owns the terminal.
	LogOut io.Writer
	// Opener overrides the URL launcher.
	Opener router.Opener
	// NoVoice skips microphone setup.
	NoVoice bool
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func initLogging(cfg *config.Config, out io.Writer) (io.Closer, error) {
	level := cfg.Log.Level
	if debugLog {
		level = "debug"
	}
	file := cfg.Log.File
	if file == "" {
		dataDir, err := config.GetDataDir()
		if err != nil {
			return nil, err
		}
		file = logging.DefaultFile(dataDir)
	}
	var mirror io.Writer
	if debugLog {
		mirror = out
	}
	return logging.Init(logging.Config{Level: level, File: file, Out: mirror})
}

// openAPIStore loads the persisted provider settings.
func openAPIStore() (*storage.FileKV, *config.APIStore, error) {
	path, err := config.GetStoragePath()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get storage path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	kv, err := storage.NewFileKV(path)
	if err != nil {
		return nil, nil, err
	}
	api := config.NewAPIStore(kv)
	if err := api.Load(); err != nil {
		return nil, nil, err
	}
	return kv, api, nil
}

func newApp(opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	logCloser, err := initLogging(cfg, opts.LogOut)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, logCloser)
	a.log = logging.For("app")

	ui.InitTheme(cfg.Theme)

	a.kv, a.api, err = openAPIStore()
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := session.NewStore(session.ConfigFrom(cfg.History))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.history = session.NewLoggingStore(store, logging.For("history"))
	a.closers = append(a.closers, a.history)

	var convOpts []conversation.Option
	if cfg.History.Enabled {
		convOpts = append(convOpts, conversation.WithArchive(conversation.NewStoreArchive(a.history)))
	}
	a.convs = conversation.NewManager(convOpts...)

	opener := opts.Opener
	if opener == nil {
		opener = router.ExecOpener{}
	}
	r := router.New(router.Options{
		Wiki:   wiki.NewClient(cfg.Wikipedia.BaseURL, nil),
		Opener: opener,
		Providers: func() (llm.Provider, error) {
			return llm.NewProvider(a.api.Get(), cfg)
		},
		Temperature: cfg.Assistant.Temperature,
		MaxTokens:   cfg.Assistant.MaxTokens,
	})
	a.svc = assistant.New(a.convs, r)

	var rec voice.Recognizer
	if !opts.NoVoice {
		rec = a.recognizer()
	}
	a.voice = voice.NewAdapter(rec, voice.Options{
		Retry:      voice.RetryPolicy{MaxAttempts: cfg.Voice.MaxNoSpeechRetries, Delay: cfg.Voice.RetryDelay},
		Continuous: cfg.Voice.Continuous,
	})

	a.log.Debug().
		Str("provider", string(a.api.Get().Provider)).
		Bool("configured", a.api.IsConfigured()).
		Bool("history", cfg.History.Enabled).
		Bool("voice", a.voice.IsSupported()).
		Msg("started")
	return a, nil
}

// recognizer returns nil when this machine cannot capture or transcribe.
func (a *app) recognizer() voice.Recognizer {
	rec, err := voice.NewCommandRecognizer(voice.CommandOptions{
		Voice:  a.cfg.Voice,
		APIKey: transcribeKey(a.cfg, a.api.Get()),
	})
	if err != nil {
		if !errors.Is(err, voice.ErrUnsupported) {
			a.log.Warn().Err(err).Msg("voice input disabled")
		} else {
			a.log.Debug().Err(err).Msg("voice input unavailable")
		}
		return nil
	}
	return rec
}

// transcribeKey prefers the dedicated voice key and falls back to the chat
// key when it is an OpenAI one.
func transcribeKey(cfg *config.Config, api config.APIConfig) string {
	if cfg.Voice.TranscribeAPIKey != "" {
		return cfg.Voice.TranscribeAPIKey
	}
	if api.Provider == config.ProviderOpenAI {
		return api.APIKey
	}
	return ""
}

func (a *app) Close() {
	if a.voice != nil {
		a.voice.StopListening()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.closers = nil
}
