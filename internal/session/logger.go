package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LoggingStore reports the first failure of each write operation and
// stays quiet afterwards, so a full disk does not flood the log on every
// message. Errors are still returned.
type LoggingStore struct {
	Store
	log zerolog.Logger

	mu     sync.Mutex
	failed map[string]bool
}

func NewLoggingStore(store Store, log zerolog.Logger) *LoggingStore {
	return &LoggingStore{Store: store, log: log, failed: make(map[string]bool)}
}

func (s *LoggingStore) report(op string, err error) error {
	if err == nil {
		return nil
	}
	s.mu.Lock()
	first := !s.failed[op]
	s.failed[op] = true
	s.mu.Unlock()
	if first {
		s.log.Warn().Err(err).Str("op", op).Msg("history write failed; further failures of this kind are not logged")
	}
	return err
}

func (s *LoggingStore) Create(ctx context.Context, sess *Session) error {
	return s.report("create", s.Store.Create(ctx, sess))
}

func (s *LoggingStore) Rename(ctx context.Context, id, title string) error {
	return s.report("rename", s.Store.Rename(ctx, id, title))
}

func (s *LoggingStore) Delete(ctx context.Context, id string) error {
	return s.report("delete", s.Store.Delete(ctx, id))
}

func (s *LoggingStore) AddMessage(ctx context.Context, sessionID string, msg *Message) error {
	return s.report("add_message", s.Store.AddMessage(ctx, sessionID, msg))
}
