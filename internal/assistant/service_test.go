package assistant

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/novachat/nova/internal/config"
	"github.com/novachat/nova/internal/conversation"
	"github.com/novachat/nova/internal/llm"
	"github.com/novachat/nova/internal/pattern"
	"github.com/novachat/nova/internal/router"
	"github.com/novachat/nova/internal/storage"
)

// newStack wires the service the way the chat command does, against a fake
// provider endpoint.
func newStack(t *testing.T, apiKey string, handler http.HandlerFunc) (*Service, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	store := config.NewAPIStore(storage.NewMemoryKV())
	if apiKey != "" {
		if err := store.Save(config.APIConfig{Provider: config.ProviderOpenAI, APIKey: apiKey}); err != nil {
			t.Fatal(err)
		}
	}
	cfg := &config.Config{}
	cfg.OpenAI.BaseURL = srv.URL

	r := router.New(router.Options{
		Opener:    &router.RecordingOpener{},
		Patterns:  pattern.Default(pattern.WithSource(rand.NewSource(1))),
		Providers: func() (llm.Provider, error) { return llm.NewProvider(store.Get(), cfg) },
	})
	return New(conversation.NewManager(), r), &hits
}

func TestSendWithoutKeyNeverCallsNetwork(t *testing.T) {
	svc, hits := newStack(t, "", func(w http.ResponseWriter, r *http.Request) {
		t.Error("network must not be reached without an API key")
	})
	conv := svc.Conversations().New()

	reply, err := svc.Send(context.Background(), conv.ID, "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Result.Kind != router.KindPattern {
		t.Fatalf("kind=%q, want pattern", reply.Result.Kind)
	}
	if hits.Load() != 0 {
		t.Fatalf("provider hit %d times", hits.Load())
	}

	msgs, _ := svc.Conversations().Messages(conv.ID)
	if len(msgs) != 3 || msgs[1].Role != conversation.RoleUser || msgs[2].Role != conversation.RoleAssistant {
		t.Fatalf("messages=%+v", msgs)
	}
	active, _ := svc.Conversations().Active()
	if active.Title != "hello" {
		t.Fatalf("title=%q, want %q", active.Title, "hello")
	}
}

func TestSendProviderErrorKeepsUserMessageOnly(t *testing.T) {
	svc, _ := newStack(t, "sk-bad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})
	conv := svc.Conversations().New()

	_, err := svc.Send(context.Background(), conv.ID, "explain closures")
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "bad key" {
		t.Fatalf("err=%v, want APIError bad key", err)
	}
	msgs, _ := svc.Conversations().Messages(conv.ID)
	if len(msgs) != 2 || msgs[1].Content != "explain closures" {
		t.Fatalf("messages=%+v, want greeting + user message", msgs)
	}
}

func TestSendProviderReply(t *testing.T) {
	svc, hits := newStack(t, "sk-ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Closures capture variables."}}]}`))
	})
	conv := svc.Conversations().New()

	reply, err := svc.Send(context.Background(), conv.ID, "explain closures")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Result.Kind != router.KindProvider || reply.Result.Text != "Closures capture variables." {
		t.Fatalf("reply=%+v", reply.Result)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits=%d", hits.Load())
	}
}

// blockingRouter holds the turn until released so the test can delete the
// conversation mid-flight.
type blockingRouter struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRouter) Route(ctx context.Context, text string, _ []llm.Message) (router.Result, error) {
	close(b.entered)
	<-b.release
	return router.Result{Kind: router.KindBuiltin, Text: "late"}, nil
}

func TestReplyForDeletedConversationIsDropped(t *testing.T) {
	br := &blockingRouter{entered: make(chan struct{}), release: make(chan struct{})}
	mgr := conversation.NewManager()
	svc := New(mgr, br)
	a := mgr.New()
	b := mgr.New()

	errc := make(chan error, 1)
	go func() {
		_, err := svc.Send(context.Background(), a.ID, "slow question")
		errc <- err
	}()
	<-br.entered
	if err := mgr.Delete(a.ID); err != nil {
		t.Fatal(err)
	}
	close(br.release)

	if err := <-errc; !errors.Is(err, ErrStale) {
		t.Fatalf("err=%v, want ErrStale", err)
	}
	msgs, _ := mgr.Messages(b.ID)
	if len(msgs) != 1 {
		t.Fatalf("stale reply leaked into %q: %+v", b.ID, msgs)
	}
}

func TestReplyGoesToTaggedConversation(t *testing.T) {
	br := &blockingRouter{entered: make(chan struct{}), release: make(chan struct{})}
	mgr := conversation.NewManager()
	svc := New(mgr, br)
	a := mgr.New()

	done := make(chan struct{})
	go func() {
		_, _ = svc.Send(context.Background(), a.ID, "question")
		close(done)
	}()
	<-br.entered
	b := mgr.New() // switches the active conversation
	close(br.release)
	<-done

	aMsgs, _ := mgr.Messages(a.ID)
	bMsgs, _ := mgr.Messages(b.ID)
	if len(aMsgs) != 3 || aMsgs[2].Content != "late" {
		t.Fatalf("a=%+v", aMsgs)
	}
	if len(bMsgs) != 1 {
		t.Fatalf("b=%+v", bMsgs)
	}
}

func TestSendRejectsEmptyAndUnknown(t *testing.T) {
	svc := New(conversation.NewManager(), &blockingRouter{})
	if _, err := svc.Send(context.Background(), "x", "   "); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err=%v, want ErrEmpty", err)
	}
	if _, err := svc.Send(context.Background(), "x", "hi"); !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestTitleOnlySetOnFirstExchange(t *testing.T) {
	svc, _ := newStack(t, "", func(http.ResponseWriter, *http.Request) {})
	conv := svc.Conversations().New()
	ctx := context.Background()
	if _, err := svc.Send(ctx, conv.ID, "first message here"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Send(ctx, conv.ID, "second"); err != nil {
		t.Fatal(err)
	}
	active, _ := svc.Conversations().Active()
	if active.Title != "first message here" {
		t.Fatalf("title=%q", active.Title)
	}
}
