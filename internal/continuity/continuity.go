// Package continuity appends session milestones to the repository progress
// log so that a later agent session can pick up where the last one stopped.
package continuity

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Dicklesworthstone/harness/internal/config"
)

// Settings are the resolved continuity options.
type Settings struct {
	ProgressFile  string
	Sampling      string
	BatchInterval time.Duration
	MaxBytes      int64
	RetainedLogs  int
}

// SettingsFrom resolves settings for root. A nil cfg uses defaults.
func SettingsFrom(root string, cfg *config.Config) Settings {
	c := cfg.OrDefault().Continuity
	path := c.ProgressFile
	if path == "" {
		path = config.Default().Continuity.ProgressFile
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return Settings{
		ProgressFile:  path,
		Sampling:      c.LogSampling,
		BatchInterval: time.Duration(max(c.BatchIntervalSecs, 1)) * time.Second,
		MaxBytes:      int64(max(c.MaxLogSizeKB, 1)) * 1024,
		RetainedLogs:  max(c.RetainedLogs, 0),
	}
}

// Entry is one progress log line.
type Entry struct {
	Timestamp time.Time
	Feature   string
	Action    string
	Evidence  []string
	NextState string
}

// String formats the entry as a progress log line without a newline.
func (e Entry) String() string {
	evidence := "-"
	if len(e.Evidence) > 0 {
		evidence = strings.Join(e.Evidence, ", ")
	}
	return fmt.Sprintf("- timestamp: %s | feature: %s | action: %s | evidence: %s | next_state: %s",
		e.Timestamp.UTC().Format(time.RFC3339), e.Feature, e.Action, evidence, e.NextState)
}

// Logger buffers progress entries and flushes them to the progress file.
// It is not safe for concurrent use.
type Logger struct {
	settings  Settings
	pending   []Entry
	lastFlush time.Time
	now       func() time.Time
}

// New creates a Logger for the repository at root.
func New(root string, cfg *config.Config) *Logger {
	return NewWithSettings(SettingsFrom(root, cfg), time.Now)
}

// NewWithSettings creates a Logger with explicit settings and clock.
func NewWithSettings(s Settings, now func() time.Time) *Logger {
	if now == nil {
		now = time.Now
	}
	return &Logger{settings: s, lastFlush: now(), now: now}
}

// Milestone records an entry and flushes immediately. Milestones are written
// in every sampling mode.
func (l *Logger) Milestone(feature, action string, evidence []string, next string) error {
	l.push(feature, action, evidence, next)
	return l.Flush()
}

// Progress records an entry when sampling is "all". Entries are flushed once
// the batch interval has elapsed since the last flush.
func (l *Logger) Progress(feature, action string, evidence []string, next string) error {
	if l.settings.Sampling != config.SamplingAll {
		return nil
	}
	l.push(feature, action, evidence, next)
	if l.now().Sub(l.lastFlush) >= l.settings.BatchInterval {
		return l.Flush()
	}
	return nil
}

// Pending returns the number of buffered entries.
func (l *Logger) Pending() int { return len(l.pending) }

func (l *Logger) push(feature, action string, evidence []string, next string) {
	l.pending = append(l.pending, Entry{
		Timestamp: l.now(),
		Feature:   feature,
		Action:    action,
		Evidence:  append([]string(nil), evidence...),
		NextState: next,
	})
}

// Flush appends pending entries to the progress file and rotates it when it
// exceeds the size limit.
func (l *Logger) Flush() error {
	if len(l.pending) == 0 {
		return nil
	}
	path := l.settings.ProgressFile
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating progress dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening progress file: %w", err)
	}
	var b strings.Builder
	for _, e := range l.pending {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("writing progress file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing progress file: %w", err)
	}
	l.pending = nil
	l.lastFlush = l.now()
	return l.rotate()
}

// rotate renames an oversized progress file to <stem>-<unixnano><ext>,
// starts a fresh one and prunes old rotations.
func (l *Logger) rotate() error {
	path := l.settings.ProgressFile
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() <= l.settings.MaxBytes {
		return nil
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	rotated := filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, l.now().UnixNano(), ext))
	if err := os.Rename(path, rotated); err != nil {
		return fmt.Errorf("rotating progress file: %w", err)
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		return fmt.Errorf("recreating progress file: %w", err)
	}
	return prune(dir, stem, ext, l.settings.RetainedLogs)
}

// prune removes the oldest rotated logs beyond keep.
func prune(dir, stem, ext string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	prefix := stem + "-"
	var rotated []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ext) {
			rotated = append(rotated, name)
		}
	}
	// Unix nano stamps have equal width for the foreseeable future, so the
	// lexical order is chronological.
	sort.Strings(rotated)
	for len(rotated) > keep {
		if err := os.Remove(filepath.Join(dir, rotated[0])); err != nil {
			return fmt.Errorf("pruning rotated log: %w", err)
		}
		rotated = rotated[1:]
	}
	return nil
}
