package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompatCompleteSendsChatRequest(t *testing.T) {
	var got oaiChatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path=%q", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Hi there"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatProvider(srv.URL+"/", "sk-test", "gpt-3.5-turbo", "OpenAI").WithHTTPClient(srv.Client())
	text, err := p.Complete(context.Background(), Request{
		Messages:    []Message{UserText("hello")},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "Hi there" {
		t.Fatalf("text=%q, want %q", text, "Hi there")
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("auth=%q", auth)
	}
	if got.Model != "gpt-3.5-turbo" || got.Temperature != 0.7 || got.MaxTokens != 500 {
		t.Fatalf("request=%+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != RoleUser || got.Messages[0].Content != "hello" {
		t.Fatalf("messages=%+v", got.Messages)
	}
}

func TestCompatCompleteAPIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error message", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, "bad key"},
		{"no message", http.StatusInternalServerError, `{"error":{}}`, "API request failed"},
		{"not json", http.StatusBadGateway, `<html>`, "API request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewOpenAICompatProvider(srv.URL, "sk-test", "m", "OpenAI").WithHTTPClient(srv.Client())
			_, err := p.Complete(context.Background(), Request{Messages: []Message{UserText("hi")}})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err=%v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.wantMsg {
				t.Fatalf("got status=%d message=%q, want %d %q", apiErr.StatusCode, apiErr.Message, tt.status, tt.wantMsg)
			}
		})
	}
}

func TestCompatCompleteNoKey(t *testing.T) {
	p := NewOpenAICompatProvider("http://127.0.0.1:0", " ", "m", "OpenAI")
	if _, err := p.Complete(context.Background(), Request{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err=%v, want ErrNotConfigured", err)
	}
}

func TestCompatCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatProvider(srv.URL, "k", "m", "OpenAI").WithHTTPClient(srv.Client())
	if _, err := p.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestPerplexityPrependsSystemPrompt(t *testing.T) {
	var got oaiChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	p := NewPerplexityProvider(srv.URL, "pplx", "not-a-model", "Be brief.")
	p.WithHTTPClient(srv.Client())
	_, err := p.Complete(context.Background(), Request{Messages: []Message{
		AssistantText("Good Morning! What can I do for you?"),
		UserText("what is go"),
	}})
	if err != nil {
		t.Fatal(err)
	}
	if got.Model != "llama-3.1-sonar-small-128k-online" {
		t.Fatalf("model=%q, want default", got.Model)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("messages=%+v", got.Messages)
	}
	if got.Messages[0].Role != RoleSystem || got.Messages[0].Content != "Be brief." {
		t.Fatalf("first message=%+v", got.Messages[0])
	}
	if got.Messages[1].Role != RoleUser {
		t.Fatalf("second message=%+v", got.Messages[1])
	}
}
