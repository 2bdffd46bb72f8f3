// Package scoring computes the deterministic repository quality score.
//
// # Categories
//
// Five categories are scored independently on a 0-1 scale:
//
// Context: agent-facing documentation (AGENTS.md, context index,
// architecture notes, README links, freshness of docs).
//
// Tools: starts at 1.0 and loses points for an oversized tool surface,
// overlapping tools, destructive tools and duplicate entries.
//
// Continuity: prompts, progress log and feature state that let work resume
// across sessions.
//
// Verification: completion gates declared in harness.toml.
//
// Repository quality: CI workflows, tests and lint configuration.
//
// # Penalty Buckets
//
// Penalties are grouped into named buckets per rule family. Each bucket is
// capped at metrics.max_penalty_per_bucket before it is subtracted, so a
// single noisy rule family cannot zero out a category. Category scores are
// clamped to [0, 1] and the overall score is the weighted sum.
package scoring

import (
	"fmt"
	"strings"
)

// Category names a scored category.
type Category string

const (
	CategoryContext           Category = "context"
	CategoryTools             Category = "tools"
	CategoryContinuity        Category = "continuity"
	CategoryVerification      Category = "verification"
	CategoryRepositoryQuality Category = "repository_quality"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategoryContext,
	CategoryTools,
	CategoryContinuity,
	CategoryVerification,
	CategoryRepositoryQuality,
}

// ScoreCard holds the per-category scores and the weighted overall score.
type ScoreCard struct {
	Context           float64 `json:"context" yaml:"context"`
	Tools             float64 `json:"tools" yaml:"tools"`
	Continuity        float64 `json:"continuity" yaml:"continuity"`
	Verification      float64 `json:"verification" yaml:"verification"`
	RepositoryQuality float64 `json:"repository_quality" yaml:"repository_quality"`
	Overall           float64 `json:"overall" yaml:"overall"`
}

// Get returns the score of a category.
func (s ScoreCard) Get(c Category) float64 {
	switch c {
	case CategoryContext:
		return s.Context
	case CategoryTools:
		return s.Tools
	case CategoryContinuity:
		return s.Continuity
	case CategoryVerification:
		return s.Verification
	case CategoryRepositoryQuality:
		return s.RepositoryQuality
	}
	return 0
}

// Severity ranks findings.
type Severity int

const (
	Info Severity = iota
	Warning
	Blocking
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Blocking:
		return "blocking"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// MarshalText encodes the severity as its lowercase name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a lowercase severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "info":
		*s = Info
	case "warning":
		*s = Warning
	case "blocking":
		*s = Blocking
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Finding is a single diagnostic produced by the scoring rules.
type Finding struct {
	ID       string   `json:"id" yaml:"id"`
	Category Category `json:"category" yaml:"category"`
	Title    string   `json:"title" yaml:"title"`
	Body     string   `json:"body" yaml:"body"`
	Severity Severity `json:"severity" yaml:"severity"`
	File     string   `json:"file,omitempty" yaml:"file,omitempty"`
	Line     int      `json:"line,omitempty" yaml:"line,omitempty"`
}

// Blocking reports whether the finding blocks lint.
func (f Finding) Blocking() bool { return f.Severity == Blocking }

// Report is the output of Score.
type Report struct {
	Scores        ScoreCard
	Findings      []Finding
	FileCount     int
	ConfigPresent bool
}

// MaxSeverity returns the highest severity among findings, and false when
// there are none.
func (r Report) MaxSeverity() (Severity, bool) {
	if len(r.Findings) == 0 {
		return Info, false
	}
	max := Info
	for _, f := range r.Findings {
		if f.Severity > max {
			max = f.Severity
		}
	}
	return max, true
}

// HasFinding reports whether a finding with id is present.
func (r Report) HasFinding(id string) bool {
	for _, f := range r.Findings {
		if f.ID == id {
			return true
		}
	}
	return false
}

// ExitCode maps findings to the process exit code: 2 when any finding is
// blocking, 1 when any is a warning, 0 otherwise.
func (r Report) ExitCode() int {
	max, ok := r.MaxSeverity()
	if !ok {
		return 0
	}
	switch max {
	case Blocking:
		return 2
	case Warning:
		return 1
	}
	return 0
}
