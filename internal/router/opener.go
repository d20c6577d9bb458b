package router

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
)

// Opener hands a URL to the desktop environment.
type Opener interface {
	Open(url string) error
}

// ExecOpener opens URLs with the platform launcher (xdg-open, open, or
// rundll32 on Windows).
type ExecOpener struct {
	Ctx context.Context
}

func (o ExecOpener) Open(url string) error {
	ctx := o.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	name, args := launcher(runtime.GOOS, url)
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("no URL launcher found (%s): %w", name, err)
	}
	cmd := exec.CommandContext(ctx, path, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}
	// Reap the child without blocking the caller.
	go func() { _ = cmd.Wait() }()
	return nil
}

func launcher(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

// RecordingOpener remembers URLs instead of opening them.
type RecordingOpener struct {
	mu   sync.Mutex
	urls []string
	Err  error
}

func (o *RecordingOpener) Open(url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, url)
	return o.Err
}

// URLs returns the URLs opened so far.
func (o *RecordingOpener) URLs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.urls...)
}
