package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDispatchesNewIntegrationFile(t *testing.T) {
	dir := t.TempDir()

	seen := make(chan string, 1)
	w, err := New(dir, ".py", func(path string) { seen <- path })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	target := filepath.Join(dir, "cr_x_worker.py")
	if err := os.WriteFile(target, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-seen:
		if path != target {
			t.Fatalf("got %q, want %q", path, target)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}

func TestWatcherIgnoresNonMatchingSuffix(t *testing.T) {
	dir := t.TempDir()

	seen := make(chan string, 1)
	w, err := New(dir, ".py", func(path string) { seen <- path })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-seen:
		t.Fatalf("did not expect a dispatch for a non-.py file, got %q", path)
	case <-time.After(500 * time.Millisecond):
	}
}
