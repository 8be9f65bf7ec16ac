package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcherTracksNotes(t *testing.T) {
	repo := t.TempDir()
	idx := openTestIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := idx.Init(ctx, repo); err != nil {
		t.Fatalf("init: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	var mu sync.Mutex
	var events []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, idx, repo, logger, func(kind, path string) {
			mu.Lock()
			events = append(events, kind+":"+path)
			mu.Unlock()
		})
	}()
	time.Sleep(100 * time.Millisecond)

	writeNote(t, repo, "new.md", "# Fresh Note\n")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		ok, _ := idx.NoteExists(ctx, "new.md")
		return ok
	}, "new file not indexed by watcher")

	if err := os.MkdirAll(filepath.Join(repo, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	writeNote(t, repo, "sub/deep.md", "# Deep\n")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		ok, _ := idx.NoteExists(ctx, "sub/deep.md")
		return ok
	}, "file in new dir not indexed by watcher")

	if err := os.Remove(filepath.Join(repo, "new.md")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		ok, _ := idx.NoteExists(ctx, "new.md")
		return !ok
	}, "deleted file still indexed")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "deleted:new.md" {
				return true
			}
		}
		return false
	}, "expected deleted callback")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop")
	}
}
