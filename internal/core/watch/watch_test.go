package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherRebuildsOnSave(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bench.cpp")
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(src, []byte("int a;"), 0644); err != nil {
		t.Fatal(err)
	}

	calls := make(chan []string, 4)
	w, err := New([]string{src}, func(_ context.Context, changed []string) error {
		calls <- changed
		return nil
	}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to start reading events
	time.Sleep(50 * time.Millisecond)

	_ = os.WriteFile(other, []byte("ignored"), 0644)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(src, []byte("int b;"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case changed := <-calls:
		abs, _ := filepath.Abs(src)
		if len(changed) != 1 || changed[0] != abs {
			t.Errorf("changed = %v, want [%s]", changed, abs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after saving the watched file")
	}

	// The burst of writes must collapse into one rebuild.
	select {
	case changed := <-calls:
		t.Errorf("unexpected second rebuild: %v", changed)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if w.Stats().Rebuilds != 1 {
		t.Errorf("Rebuilds = %d, want 1", w.Stats().Rebuilds)
	}
}

func TestNewRejectsMissingFiles(t *testing.T) {
	noop := func(context.Context, []string) error { return nil }
	if _, err := New(nil, noop, 0); err == nil {
		t.Error("New(nil) expected error")
	}
	if _, err := New([]string{filepath.Join(t.TempDir(), "missing.cpp")}, noop, 0); err == nil {
		t.Error("New() with a missing file expected error")
	}
}
