// Package session archives conversations in SQLite so they outlive a run.
// The archive is opt-in; when disabled every call is a no-op.
package session

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/novachat/nova/internal/config"
)

// Store is the interface for conversation persistence.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Rename(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error

	List(ctx context.Context, opts ListOptions) ([]SessionSummary, error)
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// AddMessage appends msg; a negative Sequence is allocated automatically.
	AddMessage(ctx context.Context, sessionID string, msg *Message) error
	GetMessages(ctx context.Context, sessionID string, limit, offset int) ([]Message, error)

	Close() error
}

// Config holds archive configuration.
type Config struct {
	Enabled bool
	Path    string // database file; empty means history.db in the data dir
}

// ConfigFrom maps the application history settings.
func ConfigFrom(h config.HistoryConfig) Config {
	return Config{Enabled: h.Enabled, Path: h.Path}
}

// GetDBPath returns the default path of the archive database.
func GetDBPath() (string, error) {
	dataDir, err := config.GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "history.db"), nil
}

// NewStore creates a Store based on the configuration.
// If the archive is disabled, returns a no-op store.
func NewStore(cfg Config) (Store, error) {
	if !cfg.Enabled {
		return &NoopStore{}, nil
	}
	store, err := NewSQLiteStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}
