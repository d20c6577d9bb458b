// Package router decides which source answers a line of user input.
package router

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/novachat/nova/internal/calc"
	"github.com/novachat/nova/internal/llm"
	"github.com/novachat/nova/internal/logging"
	"github.com/novachat/nova/internal/pattern"
)

// Kind names the source that produced a Result.
type Kind string

const (
	KindBuiltin  Kind = "builtin"
	KindPattern  Kind = "pattern"
	KindProvider Kind = "provider"
)

// Result is the routed reply.
type Result struct {
	Kind   Kind
	Text   string
	Source string // e.g. "clock", "wikipedia", "calc", or the provider name
}

// Summarizer looks up an encyclopedia summary.
type Summarizer interface {
	Summary(ctx context.Context, topic string) (string, error)
}

// Responder is the offline reply source.
type Responder interface {
	Respond(text string) pattern.Reply
}

// ProviderSource returns the provider for the current API config. It returns
// llm.ErrNotConfigured when no key is set.
type ProviderSource func() (llm.Provider, error)

// Options configures a Router. Zero fields get working defaults.
type Options struct {
	Wiki        Summarizer
	Opener      Opener
	Patterns    Responder
	Providers   ProviderSource
	Now         func() time.Time
	Rand        *rand.Rand
	Temperature float64
	MaxTokens   int
}

// Router maps input text to a reply. Built-in commands are checked in a
// fixed order; anything else goes to the provider when one is configured,
// otherwise to the pattern engine.
type Router struct {
	wiki        Summarizer
	opener      Opener
	patterns    Responder
	providers   ProviderSource
	now         func() time.Time
	temperature float64
	maxTokens   int
	log         zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func New(opts Options) *Router {
	r := &Router{
		wiki:        opts.Wiki,
		opener:      opts.Opener,
		patterns:    opts.Patterns,
		providers:   opts.Providers,
		now:         opts.Now,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		rng:         opts.Rand,
		log:         logging.For("router"),
	}
	if r.opener == nil {
		r.opener = ExecOpener{}
	}
	if r.patterns == nil {
		r.patterns = pattern.Default()
	}
	if r.providers == nil {
		r.providers = func() (llm.Provider, error) { return nil, llm.ErrNotConfigured }
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r
}

// Route answers text. history holds the conversation so far, excluding text.
// An error is returned only when the provider path fails.
func (r *Router) Route(ctx context.Context, text string, history []llm.Message) (Result, error) {
	q := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.Contains(q, "wikipedia"):
		return r.wikipedia(ctx, searchTerm(q, "wikipedia")), nil
	case strings.Contains(q, "open youtube"):
		r.open("https://youtube.com")
		return builtin("opener", "Opening YouTube"), nil
	case strings.Contains(q, "open google"):
		r.open("https://google.com")
		return builtin("opener", "Opening Google"), nil
	case strings.Contains(q, "youtube") && !strings.Contains(q, "open"):
		term := searchTerm(q, "youtube")
		r.open("https://www.youtube.com/results?search_query=" + encodeComponent(term))
		return builtin("opener", `Searching YouTube for "`+term+`"`), nil
	case strings.Contains(q, "google") && !strings.Contains(q, "open"):
		term := searchTerm(q, "google")
		r.open("https://www.google.com/search?q=" + encodeComponent(term))
		return builtin("opener", `Searching Google for "`+term+`"`), nil
	case strings.Contains(q, "play music"):
		return builtin("canned", replyPlayMusic), nil
	case strings.Contains(q, "time"):
		return builtin("clock", "The time is "+r.now().Format("15:04:05")), nil
	case strings.Contains(q, "date"):
		return builtin("clock", "The date is "+r.now().Format("Jan 2, 2006")), nil
	case strings.Contains(q, "joke"):
		return builtin("jokes", r.joke()), nil
	case strings.Contains(q, "how are you"):
		return builtin("canned", replyHowAreYou), nil
	case strings.Contains(q, "bye"):
		return builtin("canned", replyBye), nil
	}

	if strings.Contains(q, "capital of") {
		if reply, ok := lookupCapital(q); ok {
			return builtin("capitals", reply), nil
		}
	}

	switch {
	case strings.Contains(q, "population of"):
		return builtin("canned", replyPopulation), nil
	case strings.Contains(q, "weather"), strings.Contains(q, "temperature"):
		return builtin("canned", replyWeather), nil
	}

	if expr := calcExpression(q); strings.Contains(q, "calculate") || calc.IsExpression(expr) {
		return builtin("calc", r.calculate(expr)), nil
	}

	return r.fallback(ctx, text, history)
}

func (r *Router) fallback(ctx context.Context, text string, history []llm.Message) (Result, error) {
	provider, err := r.providers()
	if errors.Is(err, llm.ErrNotConfigured) {
		reply := r.patterns.Respond(text)
		return Result{Kind: KindPattern, Text: reply.Text, Source: "pattern"}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("select provider: %w", err)
	}

	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, llm.UserText(text))

	reply, err := provider.Complete(ctx, llm.Request{
		Messages:    msgs,
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
	})
	if err != nil {
		r.log.Warn().Err(err).Str("provider", provider.Name()).Msg("provider request failed")
		return Result{}, err
	}
	return Result{Kind: KindProvider, Text: reply, Source: provider.Name()}, nil
}

func (r *Router) wikipedia(ctx context.Context, topic string) Result {
	if r.wiki == nil {
		return builtin("wikipedia", replyWikiFailure)
	}
	extract, err := r.wiki.Summary(ctx, topic)
	if err != nil {
		r.log.Info().Err(err).Str("topic", topic).Msg("wikipedia lookup failed")
		return builtin("wikipedia", replyWikiFailure)
	}
	return builtin("wikipedia", "According to Wikipedia: "+extract)
}

func (r *Router) calculate(expr string) string {
	v, err := calc.Eval(expr)
	if err != nil {
		r.log.Debug().Err(err).Str("expr", expr).Msg("calculation rejected")
		return replyCalcFailure
	}
	return "The result is " + calc.Format(v)
}

func (r *Router) open(u string) {
	if err := r.opener.Open(u); err != nil {
		r.log.Warn().Err(err).Str("url", u).Msg("failed to open URL")
	}
}

func (r *Router) joke() string {
	jokes := pattern.Jokes()
	r.mu.Lock()
	n := r.rng.Intn(len(jokes))
	r.mu.Unlock()
	return jokes[n]
}

func builtin(source, text string) Result {
	return Result{Kind: KindBuiltin, Text: text, Source: source}
}

// encodeComponent escapes s for use as a query value, with spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
