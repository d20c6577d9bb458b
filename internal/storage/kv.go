// Package storage provides the small key-value slot store nova keeps its
// persisted settings in.
package storage

import "context"

// KV is a key-value store of raw JSON values.
type KV interface {
	// Get returns the value for key. The bool is false when the key is absent.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Watcher is implemented by stores that can report external changes.
type Watcher interface {
	// Watch calls fn whenever the underlying data changes outside this process.
	// It blocks until ctx is cancelled.
	Watch(ctx context.Context, fn func()) error
}
