package wiki

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSummaryExtract(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Alan Turing","extract":"Alan Turing was a mathematician."}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	got, err := c.Summary(context.Background(), "alan turing")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if got != "Alan Turing was a mathematician." {
		t.Fatalf("extract=%q", got)
	}
	if gotPath != "/page/summary/alan%20turing" {
		t.Fatalf("path=%q, want %q", gotPath, "/page/summary/alan%20turing")
	}
}

func TestSummaryHTMLFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"extract":"","extract_html":"<p><b>Go</b> is a   programming language.</p>"}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, srv.Client()).Summary(context.Background(), "go")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Go is a programming language." {
		t.Fatalf("text=%q", got)
	}
}

func TestSummaryErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		topic    string
		notFound bool
	}{
		{name: "404", status: http.StatusNotFound, body: `{}`, topic: "zzz", notFound: true},
		{name: "empty extract", status: http.StatusOK, body: `{"extract":""}`, topic: "zzz", notFound: true},
		{name: "blank topic", status: http.StatusOK, body: `{}`, topic: "  ", notFound: true},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, topic: "x"},
		{name: "bad json", status: http.StatusOK, body: `{`, topic: "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, srv.Client()).Summary(context.Background(), tt.topic)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrNotFound); got != tt.notFound {
				t.Fatalf("errors.Is(ErrNotFound)=%v, want %v (err=%v)", got, tt.notFound, err)
			}
		})
	}
}
