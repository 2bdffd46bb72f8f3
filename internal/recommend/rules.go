package recommend

import (
	"github.com/Dicklesworthstone/harness/internal/scoring"
	"github.com/Dicklesworthstone/harness/internal/trace"
)

// Recommendation identifiers.
const (
	IDContextIndex     = "rec.context.index"
	IDVerificationGate = "rec.verification.gate"
	IDToolsDestructive = "rec.tools.destructive"
	IDToolsPrune       = "rec.tools.prune"
	IDRepoScale        = "rec.repo.scale"
)

// smallRepoFiles is the file count below which architecture notes are suggested.
const smallRepoFiles = 20

// rule yields at most one candidate for a report.
type rule struct {
	template Recommendation
	trigger  func(scoring.Report) bool
}

var rules = []rule{
	{
		template: Recommendation{
			ID:         IDContextIndex,
			Title:      "Add Context Index",
			Summary:    "Create docs/context/INDEX.md and link it from AGENTS.md.",
			Impact:     ImpactHigh,
			Effort:     EffortS,
			Risk:       RiskSafe,
			Confidence: 0.92,
			Metric:     string(trace.MetricTokens),
		},
		trigger: func(r scoring.Report) bool {
			return r.HasFinding(scoring.FindingMissingIndex) || r.HasFinding(scoring.FindingMissingAgents)
		},
	},
	{
		template: Recommendation{
			ID:         IDVerificationGate,
			Title:      "Enable Verification Gate",
			Summary:    "Set pre_completion_required and provide required verification commands.",
			Impact:     ImpactHigh,
			Effort:     EffortS,
			Risk:       RiskMedium,
			Confidence: 0.88,
			Metric:     string(trace.MetricCompletion),
		},
		trigger: func(r scoring.Report) bool { return r.Scores.Verification < 1.0 },
	},
	{
		template: Recommendation{
			ID:         IDToolsDestructive,
			Title:      "Forbid Destructive Tools",
			Summary:    "Move destructive commands from the tool inventory into tools.baseline.forbidden.",
			Impact:     ImpactHigh,
			Effort:     EffortS,
			Risk:       RiskHigh,
			Confidence: 0.80,
		},
		trigger: func(r scoring.Report) bool { return r.HasFinding(scoring.FindingDestructiveExposed) },
	},
	{
		template: Recommendation{
			ID:         IDToolsPrune,
			Title:      "Prune Redundant Tools",
			Summary:    "Reduce overlap in grep/find-style tool clusters and remove risky commands.",
			Impact:     ImpactMedium,
			Effort:     EffortM,
			Risk:       RiskMedium,
			Confidence: 0.84,
			Metric:     string(trace.MetricSteps),
		},
		trigger: func(r scoring.Report) bool { return r.Scores.Tools < 1.0 },
	},
	{
		template: Recommendation{
			ID:         IDRepoScale,
			Title:      "Document Repository Scale",
			Summary:    "Add lightweight architecture notes to support agent understanding in small repos.",
			Impact:     ImpactLow,
			Effort:     EffortXS,
			Risk:       RiskSafe,
			Confidence: 0.60,
		},
		trigger: func(r scoring.Report) bool { return r.FileCount < smallRepoFiles },
	},
}

// Catalog returns every recommendation the engine can produce, sorted.
func Catalog() []Recommendation {
	out := make([]Recommendation, 0, len(rules))
	for _, r := range rules {
		rec := r.template
		rec.Evidence = EvidenceRuleOnly
		out = append(out, rec)
	}
	Sort(out)
	return out
}

// Lookup returns the catalog entry for id.
func Lookup(id string) (Recommendation, bool) {
	for _, r := range rules {
		if r.template.ID == id {
			rec := r.template
			rec.Evidence = EvidenceRuleOnly
			return rec, true
		}
	}
	return Recommendation{}, false
}
