package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sahilm/fuzzy"

	"github.com/novachat/nova/internal/logging"
)

// ErrNotFound is returned for an unknown conversation ID.
var ErrNotFound = errors.New("conversation not found")

// Manager owns all conversations and the active selection. It is safe for
// concurrent use; reads return copies. Archive writes happen under the lock
// so the archive sees changes in order.
type Manager struct {
	mu       sync.RWMutex
	convs    []*Conversation // newest first
	activeID string

	now     func() time.Time
	newID   func() string
	archive Archive
	log     zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source for timestamps and greetings.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDs sets the ID generator.
func WithIDs(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// WithArchive mirrors every change into a.
func WithArchive(a Archive) Option {
	return func(m *Manager) { m.archive = a }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		now:     time.Now,
		newID:   uuid.NewString,
		archive: nopArchive{},
		log:     logging.For("conversation"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// New creates a conversation opening with a greeting, puts it first in the
// list, and makes it active.
func (m *Manager) New() Conversation {
	now := m.now()
	c := &Conversation{
		ID:        m.newID(),
		Title:     DefaultTitle,
		CreatedAt: now,
		Messages:  []Message{{Role: RoleAssistant, Content: Greeting(now), Timestamp: now}},
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs = append([]*Conversation{c}, m.convs...)
	m.activeID = c.ID
	out := c.clone()
	m.mirror("create", m.archive.Create(out))
	return out
}

// Select makes id the active conversation.
func (m *Manager) Select(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.find(id) == nil {
		return ErrNotFound
	}
	m.activeID = id
	return nil
}

// Delete removes id. When it was active, the first remaining conversation
// becomes active, or none if the list is empty.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, c := range m.convs {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	m.convs = append(m.convs[:idx], m.convs[idx+1:]...)
	if m.activeID == id {
		m.activeID = ""
		if len(m.convs) > 0 {
			m.activeID = m.convs[0].ID
		}
	}
	m.mirror("delete", m.archive.Delete(id))
	return nil
}

// Active returns the active conversation, if any.
func (m *Manager) Active() (Conversation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.find(m.activeID)
	if c == nil {
		return Conversation{}, false
	}
	return c.clone(), true
}

// ActiveID returns the active conversation ID, or "".
func (m *Manager) ActiveID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID
}

// List returns all conversations, newest first.
func (m *Manager) List() []Conversation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Conversation, len(m.convs))
	for i, c := range m.convs {
		out[i] = c.clone()
	}
	return out
}

// Len returns the number of conversations.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.convs)
}

// Exists reports whether id is still present.
func (m *Manager) Exists(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.find(id) != nil
}

// Append adds msg to conversation id. A zero timestamp is set to now.
func (m *Manager) Append(id string, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(id)
	if c == nil {
		return ErrNotFound
	}
	c.Messages = append(c.Messages, msg)
	m.mirror("append", m.archive.Append(id, msg))
	return nil
}

// Messages returns a copy of the messages of id.
func (m *Manager) Messages(id string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.find(id)
	if c == nil {
		return nil, ErrNotFound
	}
	return append([]Message(nil), c.Messages...), nil
}

func (m *Manager) SetTitle(id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(id)
	if c == nil {
		return ErrNotFound
	}
	c.Title = title
	m.mirror("rename", m.archive.Rename(id, title))
	return nil
}

// Find returns conversations whose title fuzzily matches query, best match
// first. An empty query returns the full list.
func (m *Manager) Find(query string) []Conversation {
	all := m.List()
	if query == "" {
		return all
	}
	titles := make([]string, len(all))
	for i, c := range all {
		titles[i] = c.Title
	}
	matches := fuzzy.Find(query, titles)
	out := make([]Conversation, 0, len(matches))
	for _, match := range matches {
		out = append(out, all[match.Index])
	}
	return out
}

// Move shifts the active selection by delta positions in the list, wrapping
// at both ends. It returns the new active ID.
func (m *Manager) Move(delta int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.convs)
	if n == 0 {
		return ""
	}
	cur := 0
	for i, c := range m.convs {
		if c.ID == m.activeID {
			cur = i
			break
		}
	}
	next := ((cur+delta)%n + n) % n
	m.activeID = m.convs[next].ID
	return m.activeID
}

func (m *Manager) find(id string) *Conversation {
	if id == "" {
		return nil
	}
	for _, c := range m.convs {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (m *Manager) mirror(op string, err error) {
	if err != nil {
		m.log.Warn().Err(err).Str("op", op).Msg("history archive write failed")
	}
}
