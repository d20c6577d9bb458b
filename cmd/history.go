package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/novachat/nova/internal/session"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse archived conversations",
	Long: `List, search, show, export and delete conversations archived in
history.db. Archiving is off by default; enable it with:

  nova config set history.enabled true

Examples:
  nova history                          # recent conversations
  nova history search paris
  nova history show 3f2a                # any unique ID prefix
  nova history export 3f2a chat.md
  nova history delete 3f2a`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived conversations",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search archived messages",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistorySearch,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an archived conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <id> [path]",
	Short: "Write an archived conversation as markdown",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runHistoryExport,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of conversations to list")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of conversations to list")
	historyShowCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (session.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, errors.New("conversation history is disabled; run `nova config set history.enabled true`")
	}
	return session.NewStore(session.ConfigFrom(cfg.History))
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	summaries, err := store.List(context.Background(), session.ListOptions{Limit: historyLimit})
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No archived conversations.")
		return nil
	}

	fmt.Fprintf(out, "%-10s %-32s %5s  %s\n", "ID", "TITLE", "MSGS", "UPDATED")
	fmt.Fprintln(out, strings.Repeat("-", 64))
	for _, s := range summaries {
		title := runewidth.FillRight(runewidth.Truncate(s.Title, 32, "..."), 32)
		fmt.Fprintf(out, "%-10s %s %5d  %s\n", shortID(s.ID), title, s.MessageCount, formatRelativeTime(s.UpdatedAt))
	}
	return nil
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	query := strings.Join(args, " ")
	results, err := store.Search(context.Background(), query, 20)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintf(out, "No results found for %q\n", query)
		return nil
	}

	fmt.Fprintf(out, "Found %d matches for %q:\n\n", len(results), query)
	for _, r := range results {
		fmt.Fprintf(out, "%s  %s (%s)\n", shortID(r.SessionID), r.Title, formatRelativeTime(r.CreatedAt))
		fmt.Fprintf(out, "  %s\n\n", session.TruncateSummary(r.Snippet))
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	sess, messages, err := loadArchived(ctx, store, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Session  *session.Session  `json:"session"`
			Messages []session.Message `json:"messages"`
		}{sess, messages})
	}

	printKV(out, [][2]string{
		{"Conversation:", sess.ID},
		{"Title:", sess.Title},
		{"Created:", sess.CreatedAt.Format(time.RFC3339)},
		{"Updated:", sess.UpdatedAt.Format(time.RFC3339)},
		{"Messages:", fmt.Sprint(len(messages))},
	})
	fmt.Fprintln(out)
	for _, msg := range messages {
		fmt.Fprintf(out, "%s %s  %s\n\n", roleMarker(msg.Role), msg.CreatedAt.Format("15:04"), msg.Content)
	}
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, messages, err := loadArchived(context.Background(), store, args[0])
	if err != nil {
		return err
	}

	path := shortID(sess.ID) + ".md"
	if len(args) > 1 {
		path = args[1]
	}
	if err := os.WriteFile(path, []byte(exportMarkdown(sess, messages)), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d messages to %s\n", len(messages), path)
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	id, err := resolveSessionID(ctx, store, args[0])
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation %s\n", shortID(id))
	return nil
}

func loadArchived(ctx context.Context, store session.Store, prefix string) (*session.Session, []session.Message, error) {
	id, err := resolveSessionID(ctx, store, prefix)
	if err != nil {
		return nil, nil, err
	}
	sess, err := store.Get(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if sess == nil {
		return nil, nil, fmt.Errorf("conversation %q not found", prefix)
	}
	messages, err := store.GetMessages(ctx, id, 0, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return sess, messages, nil
}

// resolveSessionID expands a unique ID prefix.
func resolveSessionID(ctx context.Context, store session.Store, prefix string) (string, error) {
	all, err := store.List(ctx, session.ListOptions{Limit: -1}) // -1: no limit in SQLite
	if err != nil {
		return "", fmt.Errorf("failed to list history: %w", err)
	}
	var matches []string
	for _, s := range all {
		if s.ID == prefix {
			return s.ID, nil
		}
		if strings.HasPrefix(s.ID, prefix) {
			matches = append(matches, s.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("conversation %q not found", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("conversation ID %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

func exportMarkdown(sess *session.Session, messages []session.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", sess.Title)
	fmt.Fprintf(&b, "**Conversation:** %s\n", sess.ID)
	fmt.Fprintf(&b, "**Created:** %s\n\n---\n\n", sess.CreatedAt.Format(time.RFC3339))
	for _, msg := range messages {
		if msg.Role == "user" {
			b.WriteString("## You\n\n")
		} else {
			b.WriteString("## Assistant\n\n")
		}
		b.WriteString(msg.Content)
		b.WriteString("\n\n---\n\n")
	}
	return b.String()
}

func roleMarker(role string) string {
	if role == "user" {
		return "❯"
	}
	return "●"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatRelativeTime returns a human-readable relative time string
func formatRelativeTime(t time.Time) string {
	dur := time.Since(t)
	switch {
	case dur < time.Minute:
		return "just now"
	case dur < time.Hour:
		return fmt.Sprintf("%dm ago", int(dur.Minutes()))
	case dur < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(dur.Hours()))
	case dur < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(dur.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
