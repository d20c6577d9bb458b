// Package assistant runs one user turn: record the input, route it, and
// record the reply in the conversation the turn belongs to.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/novachat/nova/internal/conversation"
	"github.com/novachat/nova/internal/llm"
	"github.com/novachat/nova/internal/logging"
	"github.com/novachat/nova/internal/router"
)

var (
	// ErrStale is returned when the conversation a reply belongs to was
	// deleted while the reply was being produced. The reply is dropped.
	ErrStale = errors.New("conversation no longer exists")
	// ErrEmpty is returned for blank input.
	ErrEmpty = errors.New("empty message")
)

// Router is the part of router.Router the service needs.
type Router interface {
	Route(ctx context.Context, text string, history []llm.Message) (router.Result, error)
}

// Ticket tags a request with the conversation it was issued for.
type Ticket struct {
	ConvID string
	Seq    uint64
}

// Reply is the outcome of one turn.
type Reply struct {
	Ticket
	Result router.Result
}

// Service ties routing to conversation state.
type Service struct {
	convs  *conversation.Manager
	router Router
	seq    atomic.Uint64
	log    zerolog.Logger
}

func New(convs *conversation.Manager, r Router) *Service {
	return &Service{convs: convs, router: r, log: logging.For("assistant")}
}

// Conversations returns the underlying manager.
func (s *Service) Conversations() *conversation.Manager {
	return s.convs
}

// Begin validates input and issues a ticket for convID.
func (s *Service) Begin(convID, text string) (Ticket, error) {
	if strings.TrimSpace(text) == "" {
		return Ticket{}, ErrEmpty
	}
	if !s.convs.Exists(convID) {
		return Ticket{}, conversation.ErrNotFound
	}
	return Ticket{ConvID: convID, Seq: s.seq.Add(1)}, nil
}

// Send records text as a user message in convID, routes it with the prior
// history, and appends the reply to the same conversation.
//
// On a provider failure the error is returned and the conversation keeps
// only the user message. If the conversation is deleted before the reply
// arrives, the reply is discarded and ErrStale is returned.
func (s *Service) Send(ctx context.Context, convID, text string) (Reply, error) {
	t, err := s.Begin(convID, text)
	if err != nil {
		return Reply{}, err
	}
	return s.Run(ctx, t, text)
}

// Run executes a turn for an already issued ticket. If the ticket's
// conversation is gone by then, ErrStale is returned.
func (s *Service) Run(ctx context.Context, t Ticket, text string) (Reply, error) {
	history, err := s.convs.Messages(t.ConvID)
	if err != nil {
		return Reply{Ticket: t}, stale(err)
	}
	if err := s.convs.Append(t.ConvID, conversation.Message{Role: conversation.RoleUser, Content: text}); err != nil {
		return Reply{Ticket: t}, stale(err)
	}
	s.setTitle(t.ConvID, history, text)

	res, err := s.router.Route(ctx, text, conversation.ToLLM(history))
	if err != nil {
		s.log.Warn().Err(err).Str("conversation", t.ConvID).Uint64("seq", t.Seq).Msg("turn failed")
		return Reply{Ticket: t}, fmt.Errorf("generate reply: %w", err)
	}

	if err := s.convs.Append(t.ConvID, conversation.Message{Role: conversation.RoleAssistant, Content: res.Text}); err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			s.log.Debug().Str("conversation", t.ConvID).Uint64("seq", t.Seq).Msg("dropping reply for deleted conversation")
			return Reply{Ticket: t}, ErrStale
		}
		return Reply{Ticket: t}, err
	}
	s.log.Debug().Str("conversation", t.ConvID).Str("kind", string(res.Kind)).Str("source", res.Source).Msg("reply")
	return Reply{Ticket: t, Result: res}, nil
}

// setTitle names the conversation after its first user message.
func (s *Service) setTitle(convID string, history []conversation.Message, text string) {
	for _, m := range history {
		if m.Role == conversation.RoleUser {
			return
		}
	}
	if err := s.convs.SetTitle(convID, conversation.TitleFrom(text)); err != nil {
		s.log.Debug().Err(err).Msg("set title")
	}
}

// stale maps a vanished conversation to ErrStale.
func stale(err error) error {
	if errors.Is(err, conversation.ErrNotFound) {
		return ErrStale
	}
	return err
}
