package scoring

import (
	"log/slog"

	"github.com/Dicklesworthstone/harness/internal/config"
	"github.com/Dicklesworthstone/harness/internal/scan"
)

// Penalty bucket names.
const (
	BucketToolSurface = "tools.surface"
	BucketOverlap     = "tools.overlap"
	BucketDestructive = "tools.destructive"
)

// Rule weights.
const (
	maxToolsBeforePenalty = 12
	freshDocsDays         = 90
)

// Score evaluates model against cfg. A nil cfg means no harness.toml was
// found; documented defaults apply and config-dependent signals score zero.
// The only error is the BucketPenaltyExceeded consistency guard.
func Score(model scan.RepoModel, cfg *config.Config) (Report, error) {
	eff := cfg.OrDefault()
	bucketCap := eff.Metrics.MaxPenaltyPerBucket

	var (
		card ScoreCard
		err  error
	)
	if card.Context, err = contextScore(model, bucketCap); err != nil {
		return Report{}, err
	}
	if card.Tools, err = toolsScore(model, bucketCap); err != nil {
		return Report{}, err
	}
	if card.Continuity, err = continuityScore(model, bucketCap); err != nil {
		return Report{}, err
	}
	if card.Verification, err = verificationScore(cfg, bucketCap); err != nil {
		return Report{}, err
	}
	if card.RepositoryQuality, err = qualityScore(model, bucketCap); err != nil {
		return Report{}, err
	}

	w := eff.Metrics.Weights
	card.Overall = clamp(round(
		w.Context*card.Context +
			w.Tools*card.Tools +
			w.Continuity*card.Continuity +
			w.Verification*card.Verification +
			w.RepositoryQuality*card.RepositoryQuality))

	report := Report{
		Scores:        card,
		Findings:      findings(model, cfg, card),
		FileCount:     model.FileCount,
		ConfigPresent: cfg != nil,
	}
	slog.Debug("repository scored", "component", "scoring", "overall", card.Overall, "count", len(report.Findings))
	return report, nil
}

func contextScore(m scan.RepoModel, bucketCap float64) (float64, error) {
	a := NewAccumulator(CategoryContext, 0, bucketCap)
	d := m.Docs
	a.AddIf(d.HasAgentsMD && d.AgentsHasSectionHeader, 0.35)
	a.AddIf(d.HasContextIndex, 0.20)
	a.AddIf(d.HasArchitectureDoc, 0.15)
	a.AddIf(d.ReadmeLinksArchitecture, 0.10)
	a.AddIf(d.DocsAgeDays != nil && *d.DocsAgeDays < freshDocsDays, 0.20)
	return a.Total()
}

func toolsScore(m scan.RepoModel, bucketCap float64) (float64, error) {
	a := NewAccumulator(CategoryTools, 1.0, bucketCap)
	t := m.Tools
	if len(t.Names) > maxToolsBeforePenalty {
		a.Penalize(BucketToolSurface, 0.10)
	}
	if t.HasDuplicates {
		a.Penalize(BucketToolSurface, 0.15)
	}
	for i := 0; i < t.OverlapClusters; i++ {
		a.Penalize(BucketOverlap, 0.05)
	}
	for range t.Destructive {
		a.Penalize(BucketDestructive, 0.20)
	}
	return a.Total()
}

func continuityScore(m scan.RepoModel, bucketCap float64) (float64, error) {
	a := NewAccumulator(CategoryContinuity, 0, bucketCap)
	c := m.Continuity
	a.AddIf(c.HasInitializerPrompt && c.HasCodingPrompt, 0.40)
	a.AddIf(c.HasProgressFile, 0.25)
	a.AddIf(c.HasFeatureStateFile, 0.20)
	a.AddIf(c.HasProgressSummary, 0.15)
	return a.Total()
}

func verificationScore(cfg *config.Config, bucketCap float64) (float64, error) {
	a := NewAccumulator(CategoryVerification, 0, bucketCap)
	if cfg != nil {
		v := cfg.Verification
		a.AddIf(len(v.Required) > 0, 0.50)
		a.AddIf(v.PreCompletionRequired, 0.30)
		a.AddIf(v.LoopGuardEnabled, 0.20)
	}
	return a.Total()
}

func qualityScore(m scan.RepoModel, bucketCap float64) (float64, error) {
	a := NewAccumulator(CategoryRepositoryQuality, 0, bucketCap)
	q := m.Quality
	a.AddIf(q.HasCIWorkflow, 0.40)
	a.AddIf(q.HasTests, 0.30)
	a.AddIf(q.HasLintConfig, 0.30)
	return a.Total()
}
