package trace

import (
	"fmt"
	"math"

	"github.com/Dicklesworthstone/harness/internal/config"
)

// Status is the outcome of comparing two revisions.
type Status string

const (
	StatusImprovement      Status = "improvement"
	StatusRegression       Status = "regression"
	StatusNeutral          Status = "neutral"
	StatusInsufficientData Status = "insufficient_data"
)

// Metric names a compared trace metric.
type Metric string

const (
	MetricCompletion Metric = "completion"
	MetricTokens     Metric = "tokens"
	MetricSteps      Metric = "steps"
)

// Thresholds are the significance gates for comparisons.
type Thresholds struct {
	MinTraces            int
	MinUpliftAbs         float64
	MinUpliftRel         float64
	TaskOverlapThreshold float64
	StalenessDays        int
}

// ThresholdsFrom reads the optimization section of cfg. A nil cfg uses defaults.
func ThresholdsFrom(cfg *config.Config) Thresholds {
	o := cfg.OrDefault().Optimization
	return Thresholds{
		MinTraces:            o.MinTraces,
		MinUpliftAbs:         o.MinUpliftAbs,
		MinUpliftRel:         o.MinUpliftRel,
		TaskOverlapThreshold: o.TaskOverlapThreshold,
		StalenessDays:        o.TraceStalenessDays,
	}
}

// Delta compares the two most recent revisions.
type Delta struct {
	Status          Status  `json:"status"`
	Baseline        string  `json:"baseline_revision,omitempty"`
	Current         string  `json:"current_revision,omitempty"`
	CompletionDelta float64 `json:"completion_delta"`
	TokenDeltaRel   float64 `json:"token_delta_rel"`
	StepDeltaRel    float64 `json:"step_delta_rel"`
	TaskOverlap     float64 `json:"task_overlap"`
	Reason          string  `json:"reason,omitempty"`

	// Signals per metric: +1 improved past its gate, -1 regressed past it,
	// 0 below the gate.
	Signals map[Metric]int `json:"signals,omitempty"`
}

// Gated reports whether the comparison passed the sample size and overlap
// gates, so per-metric signals are meaningful.
func (d Delta) Gated() bool {
	return d.Status != StatusInsufficientData
}

// Compare computes the delta between the baseline (second most recent) and
// current (most recent) revisions of s. A nil summary is insufficient data.
func Compare(s *Summary, th Thresholds) Delta {
	if s == nil || len(s.Revisions) < 2 {
		return Delta{Status: StatusInsufficientData, Reason: "need traces from at least two revisions"}
	}

	baseline := s.Revisions[len(s.Revisions)-2]
	current := s.Revisions[len(s.Revisions)-1]
	d := Delta{Baseline: baseline.Name, Current: current.Name}

	if baseline.Total < th.MinTraces || current.Total < th.MinTraces {
		d.Status = StatusInsufficientData
		d.Reason = fmt.Sprintf("need at least %d traces per revision (baseline=%d, current=%d)",
			th.MinTraces, baseline.Total, current.Total)
		return d
	}

	d.TaskOverlap = Overlap(baseline.Tasks, current.Tasks)
	if d.TaskOverlap < th.TaskOverlapThreshold {
		d.Status = StatusInsufficientData
		d.Reason = fmt.Sprintf("task overlap %.2f is below threshold %.2f", d.TaskOverlap, th.TaskOverlapThreshold)
		return d
	}

	d.CompletionDelta = current.CompletionRate - baseline.CompletionRate
	d.TokenDeltaRel = RelativeDelta(baseline.AvgTokens, current.AvgTokens)
	d.StepDeltaRel = RelativeDelta(baseline.AvgSteps, current.AvgSteps)

	d.Signals = map[Metric]int{
		MetricCompletion: signal(d.CompletionDelta, th.MinUpliftAbs),
		// Fewer tokens and steps is better
		MetricTokens: -signal(d.TokenDeltaRel, th.MinUpliftRel),
		MetricSteps:  -signal(d.StepDeltaRel, th.MinUpliftRel),
	}
	total := d.Signals[MetricCompletion] + d.Signals[MetricTokens] + d.Signals[MetricSteps]

	switch {
	case total > 0:
		d.Status = StatusImprovement
	case total < 0:
		d.Status = StatusRegression
	default:
		d.Status = StatusNeutral
		d.Reason = "changes are below configured uplift thresholds"
	}
	return d
}

// signal returns +1 when delta >= gate, -1 when delta <= -gate, else 0.
// An unchanged metric is always 0.
func signal(delta, gate float64) int {
	switch {
	case delta == 0:
		return 0
	case delta >= gate:
		return 1
	case delta <= -gate:
		return -1
	}
	return 0
}

// Overlap is the Jaccard index of two task sets. Two empty sets overlap 0.
func Overlap(a, b []string) float64 {
	set := map[string]int{}
	for _, t := range a {
		set[t] |= 1
	}
	for _, t := range b {
		set[t] |= 2
	}
	if len(set) == 0 {
		return 0
	}
	inter := 0
	for _, v := range set {
		if v == 3 {
			inter++
		}
	}
	return float64(inter) / float64(len(set))
}

// RelativeDelta is (current-baseline)/baseline, or 0 for a zero baseline.
func RelativeDelta(baseline, current float64) float64 {
	if math.Abs(baseline) < 1e-9 {
		return 0
	}
	return (current - baseline) / baseline
}
