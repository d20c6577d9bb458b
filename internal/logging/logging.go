// Package logging sets up the process-wide zerolog logger.
//
// The chat TUI owns stdout, so logs go to a file in the data directory
// unless a writer is supplied explicitly.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	Level string    // debug, info, warn, error (default info)
	File  string    // log file path; empty means no file output
	Out   io.Writer // extra writer, e.g. stderr in one-shot commands
}

var (
	mu   sync.RWMutex
	base = zerolog.Nop()
	file *os.File
)

// Init replaces the process logger. The returned closer releases the log file.
func Init(cfg Config) (io.Closer, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var writers []io.Writer
	var f *os.File
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
	}
	if cfg.Out != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: cfg.Out, TimeFormat: "15:04:05"})
	}

	var logger zerolog.Logger
	if len(writers) == 0 {
		logger = zerolog.Nop()
	} else {
		logger = zerolog.New(io.MultiWriter(writers...)).
			Level(level).
			With().
			Timestamp().
			Str("app", "nova").
			Logger()
	}

	mu.Lock()
	old := file
	base = logger
	file = f
	mu.Unlock()
	if old != nil {
		old.Close()
	}

	return closerFunc(func() error {
		mu.Lock()
		defer mu.Unlock()
		if file == nil {
			return nil
		}
		err := file.Close()
		file = nil
		base = zerolog.Nop()
		return err
	}), nil
}

// Set installs logger directly. Used by tests that capture output.
func Set(logger zerolog.Logger) {
	mu.Lock()
	base = logger
	mu.Unlock()
}

// L returns the process logger.
func L() *zerolog.Logger {
	mu.RLock()
	l := base
	mu.RUnlock()
	return &l
}

// For returns a logger tagged with a component name.
func For(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}

// DefaultFile returns the log path inside dataDir for today.
func DefaultFile(dataDir string) string {
	return filepath.Join(dataDir, "logs", fmt.Sprintf("nova_%s.log", time.Now().Format("2006-01-02")))
}

func parseLevel(s string) (zerolog.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	if s == "warning" {
		s = "warn"
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
