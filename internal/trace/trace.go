// Package trace ingests historical run telemetry and compares revisions.
// Records are persisted as JSONL files; malformed lines are counted and
// skipped rather than failing the scan.
package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultStalenessDays is the age after which a record is stale.
	DefaultStalenessDays = 30

	// maxLineBytes bounds a single JSONL record.
	maxLineBytes = 4 * 1024 * 1024
)

// Outcome values recognized in records.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTimeout = "timeout"
)

// rawRecord mirrors the on-disk shape. Optional fields are pointers so
// missing keys can be told apart from zero values.
type rawRecord struct {
	Timestamp string  `json:"timestamp"`
	TaskID    *string `json:"task_id"`
	Revision  *string `json:"revision"`
	Outcome   *string `json:"outcome"`
	Steps     *uint32 `json:"steps"`
	ToolCalls *uint32 `json:"tool_calls"`
	TokenEst  *uint64 `json:"token_est"`
	WallMS    *uint64 `json:"wall_ms"`
}

// Record is a recent trace with every field needed for aggregation.
type Record struct {
	Timestamp time.Time
	TaskID    string
	Revision  string
	Outcome   string
	Steps     *uint32
	ToolCalls *uint32
	TokenEst  *uint64
	WallMS    *uint64
}

// Stats counts scanned records by disposition.
type Stats struct {
	Recent    int `json:"recent"`
	Stale     int `json:"stale"`
	Malformed int `json:"malformed"`
}

// Data is the result of a scan.
type Data struct {
	Stats   Stats
	Records []Record
}

// Options control a scan.
type Options struct {
	StalenessDays int
	// Now defaults to time.Now.
	Now time.Time
}

// Scan reads every *.jsonl and *.json file in dir, in name order. A missing
// directory yields empty data. Recent records missing task_id, revision or
// outcome are counted but not returned.
func Scan(dir string, opts Options) (Data, error) {
	var data Data
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("reading trace directory: %w", err)
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	staleness := opts.StalenessDays
	if staleness <= 0 {
		staleness = DefaultStalenessDays
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jsonl", ".json":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := scanFile(filepath.Join(dir, name), now, staleness, &data); err != nil {
			return data, err
		}
	}

	if data.Stats.Malformed > 0 {
		slog.Warn("ignored malformed trace records", "component", "trace", "path", dir, "count", data.Stats.Malformed)
	}
	return data, nil
}

func scanFile(path string, now time.Time, staleness int, data *Data) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening trace file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var raw rawRecord
		if err := json.Unmarshal(line, &raw); err != nil {
			data.Stats.Malformed++
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw.Timestamp)
		if err != nil {
			data.Stats.Malformed++
			continue
		}

		if ageDays(now, ts) > staleness {
			data.Stats.Stale++
			continue
		}
		data.Stats.Recent++

		if raw.TaskID == nil || raw.Revision == nil || raw.Outcome == nil {
			continue
		}
		data.Records = append(data.Records, Record{
			Timestamp: ts.UTC(),
			TaskID:    *raw.TaskID,
			Revision:  *raw.Revision,
			Outcome:   *raw.Outcome,
			Steps:     raw.Steps,
			ToolCalls: raw.ToolCalls,
			TokenEst:  raw.TokenEst,
			WallMS:    raw.WallMS,
		})
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning %s: %w", path, err)
	}
	return nil
}

// ageDays returns whole days elapsed since ts. Future timestamps are negative.
func ageDays(now, ts time.Time) int {
	return int(now.Sub(ts) / (24 * time.Hour))
}
