package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeRecognizer hands out sessions whose events the test drives.
type fakeRecognizer struct {
	mu       sync.Mutex
	active   int
	maxSeen  int
	starts   int
	sessions chan *fakeSession
	startErr error
	// script, when set, is played by each new session in order.
	script [][]Event
	// closeDelay keeps a cancelled session open for a while, like a capture
	// process that takes time to exit.
	closeDelay time.Duration
	// entered and gate, when set, hold Start until the test closes gate.
	entered chan struct{}
	gate    chan struct{}
}

type fakeSession struct {
	events chan Event
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{sessions: make(chan *fakeSession, 16)}
}

func (f *fakeRecognizer) Start(ctx context.Context) (<-chan Event, error) {
	if f.gate != nil {
		f.entered <- struct{}{}
		<-f.gate
	}
	f.mu.Lock()
	if f.startErr != nil {
		f.mu.Unlock()
		return nil, f.startErr
	}
	f.starts++
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	var script []Event
	if len(f.script) > 0 {
		script, f.script = f.script[0], f.script[1:]
	}
	closeDelay := f.closeDelay
	f.mu.Unlock()

	in := make(chan Event, 8)
	out := make(chan Event, 8)
	go func() {
		defer func() {
			f.mu.Lock()
			f.active--
			f.mu.Unlock()
			close(out)
		}()
		for _, ev := range script {
			out <- ev
			if ev.Kind != EventResult {
				return
			}
		}
		for {
			select {
			case <-ctx.Done():
				time.Sleep(closeDelay)
				return
			case ev := <-in:
				out <- ev
				if ev.Kind != EventResult {
					return
				}
			}
		}
	}()
	if script == nil {
		f.sessions <- &fakeSession{events: in}
	}
	return out, nil
}

func (f *fakeRecognizer) counts() (active, maxSeen, starts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, f.maxSeen, f.starts
}

type recorder struct {
	mu      sync.Mutex
	results []string
	states  []State
	ch      chan State
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan State, 32)}
}

func (r *recorder) onResult(s string) {
	r.mu.Lock()
	r.results = append(r.results, s)
	r.mu.Unlock()
}

func (r *recorder) onState(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
	r.ch <- s
}

// waitState blocks until a state matching want arrives.
func (r *recorder) waitState(t *testing.T, want State) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-r.ch:
			if s == want {
				return
			}
		case <-timeout:
			r.mu.Lock()
			defer r.mu.Unlock()
			t.Fatalf("timed out waiting for %+v; saw %+v", want, r.states)
		}
	}
}

func TestStartTwiceLeavesOneSession(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec, Options{Retry: DefaultRetryPolicy})
	r := newRecorder()

	if err := a.StartListening(r.onResult, r.onState); err != nil {
		t.Fatal(err)
	}
	if err := a.StartListening(r.onResult, r.onState); err != nil {
		t.Fatal(err)
	}
	active, maxSeen, starts := rec.counts()
	if active != 1 || maxSeen != 1 || starts != 2 {
		t.Fatalf("active=%d maxSeen=%d starts=%d, want 1 1 2", active, maxSeen, starts)
	}
	if !a.IsListening() {
		t.Fatal("adapter should be listening")
	}
	a.StopListening()
}

func TestStopThenStartWaitsForShutdown(t *testing.T) {
	rec := newFakeRecognizer()
	rec.closeDelay = 100 * time.Millisecond
	a := NewAdapter(rec, Options{})
	r := newRecorder()

	if err := a.StartListening(r.onResult, r.onState); err != nil {
		t.Fatal(err)
	}
	<-rec.sessions
	a.StopListening()
	if err := a.StartListening(r.onResult, r.onState); err != nil {
		t.Fatal(err)
	}
	<-rec.sessions
	time.Sleep(20 * time.Millisecond)

	active, maxSeen, starts := rec.counts()
	if active != 1 || maxSeen != 1 || starts != 2 {
		t.Fatalf("active=%d maxSeen=%d starts=%d, want 1 1 2", active, maxSeen, starts)
	}
	if !a.IsListening() {
		t.Fatal("adapter should be listening")
	}
	a.StopListening()
}

func TestStopDuringStartCancelsSession(t *testing.T) {
	rec := newFakeRecognizer()
	rec.entered = make(chan struct{})
	rec.gate = make(chan struct{})
	a := NewAdapter(rec, Options{})
	r := newRecorder()

	errc := make(chan error, 1)
	go func() { errc <- a.StartListening(r.onResult, r.onState) }()
	<-rec.entered
	a.StopListening()
	close(rec.gate)
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	<-rec.sessions

	deadline := time.Now().Add(2 * time.Second)
	for {
		if active, _, _ := rec.counts(); active == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session kept running after stop")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if a.IsListening() {
		t.Fatal("adapter should be idle after stop")
	}
}

func TestResultIsLowerCasedAndEndGoesIdle(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec, Options{})
	r := newRecorder()
	if err := a.StartListening(r.onResult, r.onState); err != nil {
		t.Fatal(err)
	}
	r.waitState(t, State{Listening: true})

	sess := <-rec.sessions
	sess.events <- Event{Kind: EventResult, Transcript: "  Open YouTube "}
	sess.events <- Event{Kind: EventEnd}
	r.waitState(t, State{})

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) != 1 || r.results[0] != "open youtube" {
		t.Fatalf("results=%q", r.results)
	}
	if a.IsListening() {
		t.Fatal("adapter should be idle after end")
	}
}

func TestErrorReportsCode(t *testing.T) {
	rec := newFakeRecognizer()
	rec.script = [][]Event{{{Kind: EventError, Code: CodeAudioCapture}}}
	a := NewAdapter(rec, Options{Retry: DefaultRetryPolicy})
	r := newRecorder()
	if err := a.StartListening(r.onResult, r.onState); err != nil {
		t.Fatal(err)
	}
	r.waitState(t, State{Err: "Error: audio-capture"})
	if _, _, starts := rec.counts(); starts != 1 {
		t.Fatalf("starts=%d, non no-speech errors must not retry", starts)
	}
}

func TestNoSpeechRetriesThenFails(t *testing.T) {
	rec := newFakeRecognizer()
	noSpeech := []Event{{Kind: EventError, Code: CodeNoSpeech}}
	rec.script = [][]Event{noSpeech, noSpeech, noSpeech, noSpeech}
	a := NewAdapter(rec, Options{Retry: RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}})
	r := newRecorder()
	if err := a.StartListening(r.onResult, r.onState); err != nil {
		t.Fatal(err)
	}
	r.waitState(t, State{Err: "Error: no-speech"})
	if _, _, starts := rec.counts(); starts != 4 {
		t.Fatalf("starts=%d, want 1 + 3 retries", starts)
	}
}

func TestNoSpeechRetryRecovers(t *testing.T) {
	rec := newFakeRecognizer()
	rec.script = [][]Event{
		{{Kind: EventError, Code: CodeNoSpeech}},
		{{Kind: EventResult, Transcript: "What Time Is It"}, {Kind: EventEnd}},
	}
	a := NewAdapter(rec, Options{Retry: RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}})
	r := newRecorder()
	if err := a.StartListening(r.onResult, r.onState); err != nil {
		t.Fatal(err)
	}
	r.waitState(t, State{})
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) != 1 || r.results[0] != "what time is it" {
		t.Fatalf("results=%q", r.results)
	}
}

func TestContinuousRestartsOnEnd(t *testing.T) {
	rec := newFakeRecognizer()
	rec.script = [][]Event{
		{{Kind: EventResult, Transcript: "one"}, {Kind: EventEnd}},
		{{Kind: EventResult, Transcript: "two"}, {Kind: EventEnd}},
	}
	a := NewAdapter(rec, Options{Continuous: true})
	r := newRecorder()
	if err := a.StartListening(r.onResult, r.onState); err != nil {
		t.Fatal(err)
	}
	// The third session has no script and waits for the test.
	sess := <-rec.sessions
	if !a.IsListening() {
		t.Fatal("continuous adapter stopped after end")
	}
	a.StopListening()
	_ = sess

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) != 2 || r.results[0] != "one" || r.results[1] != "two" {
		t.Fatalf("results=%q", r.results)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rec := newFakeRecognizer()
	a := NewAdapter(rec, Options{})
	r := newRecorder()
	a.StopListening() // never started
	if err := a.StartListening(r.onResult, r.onState); err != nil {
		t.Fatal(err)
	}
	<-rec.sessions
	a.StopListening()
	a.StopListening()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if active, _, _ := rec.counts(); active == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session not stopped")
		}
		time.Sleep(5 * time.Millisecond)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idle := 0
	for _, s := range r.states {
		if s == (State{}) {
			idle++
		}
	}
	if idle != 1 {
		t.Fatalf("states=%+v, want exactly one idle transition", r.states)
	}
}

func TestUnsupported(t *testing.T) {
	a := NewAdapter(nil, Options{})
	if a.IsSupported() {
		t.Fatal("nil recognizer must be unsupported")
	}
	r := newRecorder()
	err := a.StartListening(r.onResult, r.onState)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err=%v, want ErrUnsupported", err)
	}
	if len(r.states) != 1 || r.states[0].Err != "Speech recognition not supported" {
		t.Fatalf("states=%+v", r.states)
	}
}

func TestStartFailure(t *testing.T) {
	rec := newFakeRecognizer()
	rec.startErr = errors.New("device busy")
	a := NewAdapter(rec, Options{})
	r := newRecorder()
	if err := a.StartListening(r.onResult, r.onState); err == nil {
		t.Fatal("expected start error")
	}
	last := r.states[len(r.states)-1]
	if last.Listening || last.Err != "Failed to start recognition" {
		t.Fatalf("last state=%+v", last)
	}
	if a.IsListening() {
		t.Fatal("adapter must be idle after failed start")
	}
}

func TestRetryState(t *testing.T) {
	rs := RetryPolicy{MaxAttempts: 2, Delay: 300 * time.Millisecond}.start()
	for i := 0; i < 2; i++ {
		d, ok := rs.Next()
		if !ok || d != 300*time.Millisecond {
			t.Fatalf("attempt %d: %v %v", i, d, ok)
		}
	}
	if _, ok := rs.Next(); ok {
		t.Fatal("third attempt allowed")
	}
	rs.Reset()
	if _, ok := rs.Next(); !ok {
		t.Fatal("reset did not clear attempts")
	}
}
