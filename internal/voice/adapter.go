package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/novachat/nova/internal/logging"
)

// State is reported to the caller on every listening transition.
type State struct {
	Listening bool
	Err       string // empty when the transition was not caused by a failure
}

const (
	msgUnsupported = "Speech recognition not supported"
	msgStartFailed = "Failed to start recognition"
)

// Options configures an Adapter.
type Options struct {
	Retry      RetryPolicy
	Continuous bool // restart after a session ends normally
}

// Adapter owns at most one recognition session at a time.
type Adapter struct {
	rec        Recognizer
	retry      RetryPolicy
	continuous bool
	log        zerolog.Logger

	startMu sync.Mutex     // serializes StartListening
	last    *listenSession // most recently started session; guarded by startMu

	mu   sync.Mutex
	sess *listenSession
}

type listenSession struct {
	cancel  context.CancelFunc
	done    chan struct{}
	onState func(State)
}

// NewAdapter wraps rec. A nil rec makes the adapter unsupported.
func NewAdapter(rec Recognizer, opts Options) *Adapter {
	return &Adapter{
		rec:        rec,
		retry:      opts.Retry,
		continuous: opts.Continuous,
		log:        logging.For("voice"),
	}
}

func (a *Adapter) IsSupported() bool {
	return a.rec != nil
}

// IsListening reports whether a session is active.
func (a *Adapter) IsListening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess != nil
}

// StartListening begins a session, stopping any running one first.
// onResult receives each lower-cased transcript; onState receives every
// listening transition. Both run on the adapter's goroutine and must not
// call StartListening.
func (a *Adapter) StartListening(onResult func(string), onState func(State)) error {
	if onResult == nil {
		onResult = func(string) {}
	}
	if onState == nil {
		onState = func(State) {}
	}
	if !a.IsSupported() {
		onState(State{Err: msgUnsupported})
		return ErrUnsupported
	}

	a.startMu.Lock()
	defer a.startMu.Unlock()

	if old := a.detach(); old != nil {
		old.cancel()
		old.onState(State{})
	}
	// A session stopped earlier may still be shutting down its native side.
	if a.last != nil {
		<-a.last.done
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &listenSession{cancel: cancel, done: make(chan struct{}), onState: onState}
	a.last = s
	onState(State{Listening: true})

	// Published before Start so a concurrent StopListening can cancel it.
	a.mu.Lock()
	a.sess = s
	a.mu.Unlock()

	events, err := a.rec.Start(ctx)
	if err != nil {
		close(s.done)
		a.finish(s, State{Err: msgStartFailed})
		return fmt.Errorf("start recognition: %w", err)
	}

	go a.run(ctx, s, events, onResult)
	return nil
}

// StopListening ends the active session, if any. It is idempotent.
func (a *Adapter) StopListening() {
	s := a.detach()
	if s == nil {
		return
	}
	s.cancel()
	s.onState(State{})
}

func (a *Adapter) detach() *listenSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.sess
	a.sess = nil
	return s
}

// finish reports the final state if s is still the active session.
func (a *Adapter) finish(s *listenSession, st State) {
	a.mu.Lock()
	current := a.sess == s
	if current {
		a.sess = nil
	}
	a.mu.Unlock()
	s.cancel()
	if current {
		s.onState(st)
	}
}

func (a *Adapter) run(ctx context.Context, s *listenSession, events <-chan Event, onResult func(string)) {
	defer close(s.done)
	retry := a.retry.start()

	for {
		terminal := Event{Kind: EventEnd}
		for ev := range events {
			if ctx.Err() != nil {
				continue
			}
			switch ev.Kind {
			case EventResult:
				retry.Reset()
				if text := normalize(ev.Transcript); text != "" {
					onResult(text)
				}
			case EventError, EventEnd:
				terminal = ev
			}
		}
		if ctx.Err() != nil {
			return
		}

		switch {
		case terminal.Kind == EventError && terminal.Code == CodeNoSpeech:
			delay, ok := retry.Next()
			if !ok {
				a.finish(s, State{Err: "Error: " + terminal.Code})
				return
			}
			a.log.Debug().Int("attempt", retry.Attempts()).Msg("no speech detected, retrying")
			if !sleep(ctx, delay) {
				return
			}
		case terminal.Kind == EventError:
			a.finish(s, State{Err: "Error: " + terminal.Code})
			return
		case !a.continuous:
			a.finish(s, State{})
			return
		}

		var err error
		events, err = a.rec.Start(ctx)
		if err != nil {
			if ctx.Err() == nil {
				a.log.Warn().Err(err).Msg("restart recognition")
				a.finish(s, State{Err: msgStartFailed})
			}
			return
		}
	}
}

func normalize(transcript string) string {
	return strings.ToLower(strings.TrimSpace(transcript))
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
