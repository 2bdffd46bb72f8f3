package trace

import (
	"sort"
	"time"
)

// Revision aggregates the recent records of one revision.
type Revision struct {
	Name           string    `json:"revision"`
	Total          int       `json:"total"`
	CompletionRate float64   `json:"completion_rate"`
	AvgSteps       float64   `json:"avg_steps"`
	AvgTokens      float64   `json:"avg_tokens"`
	Tasks          []string  `json:"tasks"`
	LatestTS       time.Time `json:"latest_ts"`
}

// Summary is the read-only view of trace data handed to the recommendation
// engine.
type Summary struct {
	Stats Stats
	// Revisions are ordered by latest timestamp, then by name.
	Revisions []Revision
}

type accumulator struct {
	total      int
	success    int
	stepsSum   float64
	stepsCount int
	tokenSum   float64
	tokenCount int
	tasks      map[string]bool
	latest     time.Time
}

func (a *accumulator) add(r Record) {
	a.total++
	if r.Outcome == OutcomeSuccess {
		a.success++
	}
	if r.Steps != nil {
		a.stepsSum += float64(*r.Steps)
		a.stepsCount++
	}
	if r.TokenEst != nil {
		a.tokenSum += float64(*r.TokenEst)
		a.tokenCount++
	}
	a.tasks[r.TaskID] = true
	if r.Timestamp.After(a.latest) {
		a.latest = r.Timestamp
	}
}

func (a *accumulator) revision(name string) Revision {
	rev := Revision{Name: name, Total: a.total, LatestTS: a.latest}
	if a.total > 0 {
		rev.CompletionRate = float64(a.success) / float64(a.total)
	}
	if a.stepsCount > 0 {
		rev.AvgSteps = a.stepsSum / float64(a.stepsCount)
	}
	if a.tokenCount > 0 {
		rev.AvgTokens = a.tokenSum / float64(a.tokenCount)
	}
	for task := range a.tasks {
		rev.Tasks = append(rev.Tasks, task)
	}
	sort.Strings(rev.Tasks)
	return rev
}

// Summarize aggregates records per revision.
func Summarize(data Data) *Summary {
	per := map[string]*accumulator{}
	for _, r := range data.Records {
		acc, ok := per[r.Revision]
		if !ok {
			acc = &accumulator{tasks: map[string]bool{}}
			per[r.Revision] = acc
		}
		acc.add(r)
	}

	s := &Summary{Stats: data.Stats}
	for name, acc := range per {
		s.Revisions = append(s.Revisions, acc.revision(name))
	}
	sort.Slice(s.Revisions, func(i, j int) bool {
		a, b := s.Revisions[i], s.Revisions[j]
		if !a.LatestTS.Equal(b.LatestTS) {
			return a.LatestTS.Before(b.LatestTS)
		}
		return a.Name < b.Name
	})
	return s
}
