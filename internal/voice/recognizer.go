// Package voice turns microphone input into transcripts.
//
// A Recognizer is the native capability: one call to Start runs one
// recognition session. The Adapter layered on top keeps at most one session
// alive, retries "no speech" failures, and optionally restarts sessions to
// emulate continuous listening.
package voice

import (
	"context"
	"errors"
)

// ErrUnsupported is returned when no recognizer is available.
var ErrUnsupported = errors.New("speech recognition not supported")

// Error codes carried by EventError.
const (
	CodeNoSpeech     = "no-speech"
	CodeAudioCapture = "audio-capture"
	CodeNetwork      = "network"
	CodeNotAllowed   = "not-allowed"
)

type EventKind int

const (
	EventResult EventKind = iota // a finalized utterance
	EventError                   // terminal; Code says why
	EventEnd                     // terminal; the session ended normally
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind       EventKind
	Transcript string
	Code       string
}

// Recognizer starts recognition sessions.
//
// Start begins one session and returns its event channel. A session emits
// any number of EventResult values followed by at most one terminal event
// (EventError or EventEnd), then closes the channel. Cancelling ctx stops
// the session; the channel is closed once the session has fully ended.
type Recognizer interface {
	Start(ctx context.Context) (<-chan Event, error)
}
