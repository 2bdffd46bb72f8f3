// Package watcher provides file watching with debouncing using fsnotify.
package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDuration coalesces the burst of events an editor save
// produces.
const DefaultDebounceDuration = 300 * time.Millisecond

// Event is a coalesced change to one path.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets how long the watcher waits for quiet before
// delivering events.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnore drops events for paths where ignore returns true. Directories
// it matches are also skipped by AddRecursive.
func WithIgnore(ignore func(path string) bool) Option {
	return func(w *Watcher) { w.ignore = ignore }
}

// Watcher delivers debounced batches of file events to a callback.
type Watcher struct {
	fs       *fsnotify.Watcher
	callback func([]Event)
	debounce time.Duration
	ignore   func(string) bool

	mu      sync.Mutex
	pending map[string]fsnotify.Op
	timer   *time.Timer
	closed  bool

	ready chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
}

// New creates a watcher. callback runs on the watcher goroutine, one batch
// at a time, and Close waits for a running callback to return.
func New(callback func([]Event), opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	w := &Watcher{
		fs:       fw,
		callback: callback,
		debounce: DefaultDebounceDuration,
		pending:  map[string]fsnotify.Op{},
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Add watches a single file or directory.
func (w *Watcher) Add(path string) error {
	return w.fs.Add(path)
}

// AddRecursive watches root and every directory below it that is not
// ignored.
func (w *Watcher) AddRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignore != nil && w.ignore(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Close stops the watcher. Pending events are discarded.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.record(ev)
		case <-w.ready:
			w.flush()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				slog.Warn("file watcher error", "component", "watcher", "error", err)
			}
		}
	}
}

func (w *Watcher) record(ev fsnotify.Event) {
	if w.ignore != nil && w.ignore(ev.Name) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending[ev.Name] |= ev.Op
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.signal)
}

// signal hands a due batch to the loop goroutine.
func (w *Watcher) signal() {
	select {
	case w.ready <- struct{}{}:
	default:
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	events := make([]Event, 0, len(w.pending))
	for path, op := range w.pending {
		events = append(events, Event{Path: path, Op: op})
	}
	w.pending = map[string]fsnotify.Op{}
	w.mu.Unlock()

	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	if w.callback != nil {
		w.callback(events)
	}
}
