package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	batches := make(chan []Event, 4)
	w, err := New(func(events []Event) { batches <- events }, WithDebounceDuration(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		t.Fatalf("Add: %v", err)
	}

	path := filepath.Join(dir, "AGENTS.md")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(strings.Repeat("x", i+1)), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case events := <-batches:
		found := false
		for _, e := range events {
			if e.Path == path {
				found = true
			}
		}
		if !found {
			t.Errorf("events = %+v, want %s", events, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no events delivered")
	}
}

func TestWatcherIgnore(t *testing.T) {
	dir := t.TempDir()
	ignored := filepath.Join(dir, ".harness")
	if err := os.MkdirAll(ignored, 0755); err != nil {
		t.Fatal(err)
	}
	batches := make(chan []Event, 4)
	w, err := New(func(events []Event) { batches <- events },
		WithDebounceDuration(20*time.Millisecond),
		WithIgnore(func(p string) bool { return strings.Contains(p, ".harness") }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	if err := w.AddRecursive(dir); err != nil {
		t.Fatalf("AddRecursive: %v", err)
	}

	if err := os.WriteFile(filepath.Join(ignored, "progress.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case events := <-batches:
		t.Fatalf("unexpected events %+v", events)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCloseWaitsForCallback(t *testing.T) {
	dir := t.TempDir()
	started := make(chan struct{})
	var once sync.Once
	var finished atomic.Bool
	w, err := New(func([]Event) {
		once.Do(func() { close(started) })
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
	}, WithDebounceDuration(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Add(dir); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("no events delivered")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !finished.Load() {
		t.Error("Close returned while the callback was still running")
	}
}

func TestCloseIdempotent(t *testing.T) {
	w, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
