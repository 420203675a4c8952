package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcher_TriggersOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "documents.jsonl")
	if err := os.WriteFile(path, []byte(`{"id":"a","text":"x"}`), 0600); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var calls int
	w := NewWatcher(path, func(string) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte(`{"id":"a","text":"y"}`), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(600 * time.Millisecond)

	mu.Lock()
	got := calls
	mu.Unlock()
	if got < 1 {
		t.Errorf("expected at least one change callback, got %d", got)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "documents.jsonl")

	var mu sync.Mutex
	var calls int
	w := NewWatcher(path, func(string) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.jsonl"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(600 * time.Millisecond)

	mu.Lock()
	got := calls
	mu.Unlock()
	if got != 0 {
		t.Errorf("expected no callbacks for an unrelated file, got %d", got)
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "documents.jsonl")

	var mu sync.Mutex
	var calls int
	w := NewWatcher(path, func(string) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(700 * time.Millisecond)

	mu.Lock()
	got := calls
	mu.Unlock()
	if got != 1 {
		t.Errorf("expected exactly one debounced callback, got %d", got)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.jsonl")
	w := NewWatcher(path, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
