package report

import (
	"fmt"
	"strings"

	"github.com/Dicklesworthstone/harness/internal/recommend"
	"github.com/Dicklesworthstone/harness/internal/trace"
)

// maxOptimizeRecommendations bounds the Top Recommendations section.
const maxOptimizeRecommendations = 10

// Optimize is the input of an optimize report.
type Optimize struct {
	OverallScore    float64
	TraceDir        string
	Stats           trace.Stats
	Thresholds      trace.Thresholds
	Delta           trace.Delta
	Recommendations []recommend.Recommendation
}

// RenderOptimize renders the optimize report markdown.
func RenderOptimize(o Optimize) string {
	lines := []string{
		"# Harness Optimize Report",
		"",
		fmt.Sprintf("Overall score: %.3f", o.OverallScore),
		fmt.Sprintf("Trace directory: %s", o.TraceDir),
		fmt.Sprintf("Trace records: recent=%d, stale=%d, malformed=%d", o.Stats.Recent, o.Stats.Stale, o.Stats.Malformed),
		fmt.Sprintf("Recent traces required for optimization: %d", o.Thresholds.MinTraces),
		"",
	}
	if o.Stats.Malformed > 0 {
		lines = append(lines, fmt.Sprintf("Warning: ignored malformed trace records: %d", o.Stats.Malformed))
	}
	if o.Stats.Recent < o.Thresholds.MinTraces {
		lines = append(lines,
			"Status: insufficient data for optimization recommendations.",
			fmt.Sprintf("Need at least %d recent traces before computing optimize deltas.", o.Thresholds.MinTraces),
			"",
		)
		return strings.Join(lines, "\n")
	}

	d := o.Delta
	lines = append(lines, "## Optimization Delta")
	if d.Baseline != "" && d.Current != "" {
		lines = append(lines, fmt.Sprintf("- revisions compared: baseline=`%s`, current=`%s`", d.Baseline, d.Current))
	}
	lines = append(lines,
		fmt.Sprintf("- task overlap: %.2f", d.TaskOverlap),
		fmt.Sprintf("- completion delta: %+.3f, token delta (rel): %+.3f, step delta (rel): %+.3f",
			d.CompletionDelta, d.TokenDeltaRel, d.StepDeltaRel),
	)
	switch d.Status {
	case trace.StatusImprovement:
		lines = append(lines, "Status: improvement detected.")
	case trace.StatusRegression:
		lines = append(lines, "Status: regression warning.")
	case trace.StatusNeutral:
		lines = append(lines, "Status: stable; changes are below uplift thresholds.")
	default:
		lines = append(lines, "Status: insufficient comparative data for optimize deltas.")
	}
	if d.Reason != "" {
		lines = append(lines, "Reason: "+d.Reason)
	}
	lines = append(lines, "")
	if !d.Gated() {
		return strings.Join(lines, "\n")
	}

	recs, regressions := recommend.Split(o.Recommendations)
	recommend.Sort(recs)
	if len(regressions) > 0 {
		lines = append(lines, strings.TrimRight(RegressionWarnings(regressions), "\n"), "")
	}
	lines = append(lines, "## Top Recommendations")
	if len(recs) == 0 {
		lines = append(lines, "- No recommendations available.")
	}
	if len(recs) > maxOptimizeRecommendations {
		recs = recs[:maxOptimizeRecommendations]
	}
	for _, r := range recs {
		lines = append(lines, fmt.Sprintf("- `%s`: %s (impact: %s, effort: %s, risk: %s, confidence: %.2f, evidence: %s)",
			r.ID, r.Summary, r.Impact, r.Effort, r.Risk, r.Confidence, r.Evidence))
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}
