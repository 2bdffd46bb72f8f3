package recommend

import (
	"fmt"
	"sort"

	"github.com/Dicklesworthstone/harness/internal/config"
	"github.com/Dicklesworthstone/harness/internal/scoring"
	"github.com/Dicklesworthstone/harness/internal/trace"
)

// Plan derives the ordered recommendations for report. When summary is
// non-nil each recommendation tied to a trace metric is graded against the
// optimization thresholds of cfg. Evidence never changes ordering and never
// removes a recommendation.
func Plan(report scoring.Report, cfg *config.Config, summary *trace.Summary) []Recommendation {
	seen := map[string]bool{}
	var out []Recommendation
	for _, r := range rules {
		if !r.trigger(report) || seen[r.template.ID] {
			continue
		}
		seen[r.template.ID] = true
		rec := r.template
		rec.Evidence = EvidenceRuleOnly
		out = append(out, rec)
	}

	if summary != nil {
		delta := trace.Compare(summary, trace.ThresholdsFrom(cfg))
		for i := range out {
			grade(&out[i], delta)
		}
	}

	Sort(out)
	return out
}

// grade sets the evidence status of rec from delta.
func grade(rec *Recommendation, delta trace.Delta) {
	if rec.Metric == "" {
		rec.Evidence = EvidenceRuleOnly
		return
	}
	if !delta.Gated() {
		rec.Evidence = EvidenceInsufficient
		rec.Note = delta.Reason
		return
	}
	switch delta.Signals[trace.Metric(rec.Metric)] {
	case 1:
		rec.Evidence = EvidenceBacked
		rec.Note = fmt.Sprintf("%s improved between %s and %s", rec.Metric, delta.Baseline, delta.Current)
	case -1:
		rec.Evidence = EvidenceRegression
		rec.Note = fmt.Sprintf("%s regressed between %s and %s", rec.Metric, delta.Baseline, delta.Current)
	default:
		rec.Evidence = EvidenceNeutral
		rec.Note = fmt.Sprintf("%s change is below the uplift threshold", rec.Metric)
	}
}

// Sort orders recommendations by impact (high first), then effort (small
// first), then id. It is the only ordering recommendations are shown in.
func Sort(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return Less(recs[i], recs[j])
	})
}

// Less reports whether a sorts before b.
func Less(a, b Recommendation) bool {
	if a.Impact != b.Impact {
		return a.Impact > b.Impact
	}
	if a.Effort != b.Effort {
		return a.Effort < b.Effort
	}
	return a.ID < b.ID
}

// Filter keeps recommendations whose risk is at most maxRisk.
func Filter(recs []Recommendation, maxRisk Risk) []Recommendation {
	var out []Recommendation
	for _, r := range recs {
		if r.Risk <= maxRisk {
			out = append(out, r)
		}
	}
	return out
}

// IDs returns the ids of recs in order.
func IDs(recs []Recommendation) []string {
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	return ids
}

// Regressions returns recommendations whose evidence shows a regression.
func Regressions(recs []Recommendation) []Recommendation {
	var out []Recommendation
	for _, r := range recs {
		if r.Evidence == EvidenceRegression {
			out = append(out, r)
		}
	}
	return out
}

// Split separates regression-graded recommendations, which are reported as
// warnings, from the ones that can be acted on. Order is preserved.
func Split(recs []Recommendation) (actionable, regressions []Recommendation) {
	for _, r := range recs {
		if r.Evidence == EvidenceRegression {
			regressions = append(regressions, r)
		} else {
			actionable = append(actionable, r)
		}
	}
	return actionable, regressions
}
