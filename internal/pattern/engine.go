// Package pattern implements the offline rule-based responder.
package pattern

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Rule maps a pattern to a pool of candidate replies.
type Rule struct {
	Pattern   *regexp.Regexp
	Responses []string
}

// Reply is the engine's answer to one input.
type Reply struct {
	Text    string
	Matched bool // false when the fallback pool supplied the text
	Rule    int  // index of the matching rule, -1 for fallback
}

// Engine picks a reply from the first rule whose pattern matches.
// It holds no conversational state; the only mutable part is the rng.
type Engine struct {
	rules    []Rule
	fallback []string
	now      func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithSource sets the random source. A fixed seed makes replies reproducible.
func WithSource(src rand.Source) Option {
	return func(e *Engine) { e.rng = rand.New(src) }
}

// WithClock sets the clock used to expand {time} placeholders.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine. Rules are tried in order. Every rule and the
// fallback pool must be non-empty.
func New(rules []Rule, fallback []string, opts ...Option) (*Engine, error) {
	if len(fallback) == 0 {
		return nil, fmt.Errorf("pattern: fallback pool is empty")
	}
	for i, r := range rules {
		if r.Pattern == nil {
			return nil, fmt.Errorf("pattern: rule %d has no pattern", i)
		}
		if len(r.Responses) == 0 {
			return nil, fmt.Errorf("pattern: rule %d (%s) has no responses", i, r.Pattern)
		}
	}
	e := &Engine{
		rules:    rules,
		fallback: fallback,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Default returns the NOVA persona engine.
func Default(opts ...Option) *Engine {
	e, err := New(DefaultRules(), DefaultFallback(), opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Respond returns a uniformly random reply from the first matching rule's
// pool, or from the fallback pool when nothing matches.
func (e *Engine) Respond(text string) Reply {
	for i, r := range e.rules {
		if r.Pattern.MatchString(text) {
			return Reply{Text: e.expand(e.pick(r.Responses)), Matched: true, Rule: i}
		}
	}
	return Reply{Text: e.expand(e.pick(e.fallback)), Rule: -1}
}

// Match returns the index of the first matching rule, or -1.
func (e *Engine) Match(text string) int {
	for i, r := range e.rules {
		if r.Pattern.MatchString(text) {
			return i
		}
	}
	return -1
}

// Pool returns a copy of the response pool of rule i, or of the fallback
// pool when i is -1.
func (e *Engine) Pool(i int) []string {
	src := e.fallback
	if i >= 0 && i < len(e.rules) {
		src = e.rules[i].Responses
	}
	return append([]string(nil), src...)
}

func (e *Engine) pick(pool []string) string {
	e.mu.Lock()
	n := e.rng.Intn(len(pool))
	e.mu.Unlock()
	return pool[n]
}

func (e *Engine) expand(s string) string {
	if !strings.Contains(s, "{time}") {
		return s
	}
	return strings.ReplaceAll(s, "{time}", e.now().Format("3:04:05 PM"))
}
