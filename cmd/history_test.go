package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/novachat/nova/internal/config"
	"github.com/novachat/nova/internal/session"
)

func newHistoryStore(t *testing.T, ids ...string) *session.SQLiteStore {
	t.Helper()
	store, err := session.NewSQLiteStore(session.Config{Enabled: true, Path: filepath.Join(t.TempDir(), "history.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()
	for _, id := range ids {
		if err := store.Create(ctx, &session.Session{ID: id, Title: "chat " + id, CreatedAt: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestResolveSessionID(t *testing.T) {
	store := newHistoryStore(t, "abc12345-aaaa", "abc99999-bbbb", "def00000-cccc")
	ctx := context.Background()

	tests := []struct {
		prefix  string
		want    string
		wantErr string
	}{
		{prefix: "def", want: "def00000-cccc"},
		{prefix: "abc1", want: "abc12345-aaaa"},
		{prefix: "abc99999-bbbb", want: "abc99999-bbbb"},
		{prefix: "abc", wantErr: "ambiguous"},
		{prefix: "zzz", wantErr: "not found"},
	}
	for _, tt := range tests {
		got, err := resolveSessionID(ctx, store, tt.prefix)
		if tt.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("resolveSessionID(%q) err=%v, want %q", tt.prefix, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("resolveSessionID(%q)=%q, %v; want %q", tt.prefix, got, err, tt.want)
		}
	}
}

func TestResolveSessionIDBeyondListDefault(t *testing.T) {
	store := newHistoryStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i := range 60 {
		id := session.NewID()
		if i == 0 {
			id = "oldest00-" + id
		}
		sess := &session.Session{ID: id, Title: "chat", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := store.Create(ctx, sess); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := resolveSessionID(ctx, store, "oldest00"); err != nil {
		t.Fatalf("oldest conversation not resolvable: %v", err)
	}
}

func TestLoadArchivedAndExport(t *testing.T) {
	store := newHistoryStore(t, "feed0001-x")
	ctx := context.Background()
	for _, m := range []session.Message{
		{Role: "assistant", Content: "Good Evening! What can I do for you?", Sequence: -1},
		{Role: "user", Content: "calculate 6*7", Sequence: -1},
		{Role: "assistant", Content: "The result is 42", Sequence: -1},
	} {
		if err := store.AddMessage(ctx, "feed0001-x", &m); err != nil {
			t.Fatal(err)
		}
	}

	sess, msgs, err := loadArchived(ctx, store, "feed")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages", len(msgs))
	}

	md := exportMarkdown(sess, msgs)
	for _, want := range []string{"# chat feed0001-x", "**Conversation:** feed0001-x", "## You\n\ncalculate 6*7", "## Assistant\n\nThe result is 42"} {
		if !strings.Contains(md, want) {
			t.Errorf("export lacks %q:\n%s", want, md)
		}
	}
}

func TestHistoryDisabled(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if _, err := openHistory(); err == nil || !strings.Contains(err.Error(), "history.enabled") {
		t.Fatalf("err=%v, want a hint to enable history", err)
	}
}

func TestHistoryListCommand(t *testing.T) {
	cfgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	cfgFile := filepath.Join(cfgHome, "nova", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(cfgFile), 0755); err != nil {
		t.Fatal(err)
	}
	if err := setConfigValues(cfgFile, [2]string{"history.enabled", "true"}, [2]string{"history.path", dbPath}); err != nil {
		t.Fatal(err)
	}

	store, err := session.NewSQLiteStore(session.Config{Enabled: true, Path: dbPath})
	if err != nil {
		t.Fatal(err)
	}
	err = store.Create(context.Background(), &session.Session{ID: "cafe1234-0000", Title: "what is the capital of france", CreatedAt: time.Now()})
	store.Close()
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	historyListCmd.SetOut(&out)
	historyLimit = 20
	if err := runHistoryList(historyListCmd, nil); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, "cafe1234") || !strings.Contains(got, "what is the capital of france") {
		t.Fatalf("list output:\n%s", got)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.History.Path != dbPath {
		t.Fatalf("history.path=%q, want %q", cfg.History.Path, dbPath)
	}
}

func TestShortIDAndRelativeTime(t *testing.T) {
	if got := shortID("0123456789"); got != "01234567" {
		t.Errorf("shortID=%q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID=%q", got)
	}

	now := time.Now()
	tests := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-49 * time.Hour), "2d ago"},
	}
	for _, tt := range tests {
		if got := formatRelativeTime(tt.at); got != tt.want {
			t.Errorf("formatRelativeTime(%v)=%q, want %q", now.Sub(tt.at), got, tt.want)
		}
	}
}
