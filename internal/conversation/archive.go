package conversation

import (
	"context"
	"time"

	"github.com/novachat/nova/internal/session"
)

// Archive receives every conversation change. Failures are logged by the
// Manager and never block the chat.
type Archive interface {
	Create(c Conversation) error
	Append(id string, msg Message) error
	Rename(id, title string) error
	Delete(id string) error
}

type nopArchive struct{}

func (nopArchive) Create(Conversation) error    { return nil }
func (nopArchive) Append(string, Message) error { return nil }
func (nopArchive) Rename(string, string) error  { return nil }
func (nopArchive) Delete(string) error          { return nil }

// StoreArchive mirrors conversations into a session.Store.
type StoreArchive struct {
	store   session.Store
	timeout time.Duration
}

func NewStoreArchive(store session.Store) *StoreArchive {
	return &StoreArchive{store: store, timeout: 5 * time.Second}
}

func (a *StoreArchive) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}

func (a *StoreArchive) Create(c Conversation) error {
	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.store.Create(ctx, &session.Session{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt}); err != nil {
		return err
	}
	for _, msg := range c.Messages {
		if err := a.store.AddMessage(ctx, c.ID, toSession(msg)); err != nil {
			return err
		}
	}
	return nil
}

func (a *StoreArchive) Append(id string, msg Message) error {
	ctx, cancel := a.ctx()
	defer cancel()
	return a.store.AddMessage(ctx, id, toSession(msg))
}

func (a *StoreArchive) Rename(id, title string) error {
	ctx, cancel := a.ctx()
	defer cancel()
	return a.store.Rename(ctx, id, title)
}

func (a *StoreArchive) Delete(id string) error {
	ctx, cancel := a.ctx()
	defer cancel()
	return a.store.Delete(ctx, id)
}

func toSession(msg Message) *session.Message {
	return &session.Message{
		Role:      string(msg.Role),
		Content:   msg.Content,
		CreatedAt: msg.Timestamp,
		Sequence:  -1,
	}
}
