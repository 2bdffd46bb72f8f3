package scoring

import (
	"fmt"
	"strings"

	"github.com/Dicklesworthstone/harness/internal/config"
	"github.com/Dicklesworthstone/harness/internal/policy"
	"github.com/Dicklesworthstone/harness/internal/scan"
)

// Finding identifiers.
const (
	FindingMissingAgents       = "context.missing_agents"
	FindingMissingIndex        = "context.missing_index"
	FindingDestructiveExposed  = "tools.destructive_exposed"
	FindingToolOverlap         = "tools.overlap"
	FindingToolObserve         = "tools.observe"
	FindingToolDeprecated      = "tools.deprecated"
	FindingToolDisabled        = "tools.disabled"
	FindingVerificationPartial = "verification.incomplete"
	FindingVerificationMissing = "verification.missing_config"
)

// findings applies the fixed rule table. Order is part of the contract.
func findings(m scan.RepoModel, cfg *config.Config, card ScoreCard) []Finding {
	var out []Finding

	if !m.Docs.HasAgentsMD {
		out = append(out, Finding{
			ID:       FindingMissingAgents,
			Category: CategoryContext,
			Title:    "Missing AGENTS.md",
			Body:     "Repository has no AGENTS.md, so agents start without a map of the codebase.",
			Severity: Info,
			File:     scan.AgentsFile,
		})
	}
	if !m.Docs.HasContextIndex {
		out = append(out, Finding{
			ID:       FindingMissingIndex,
			Category: CategoryContext,
			Title:    "Missing docs context index",
			Body:     "docs/context/INDEX.md is missing, reducing navigability for agents.",
			Severity: Info,
			File:     scan.ContextIndexFile,
		})
	}
	if len(m.Tools.Destructive) > 0 {
		out = append(out, Finding{
			ID:       FindingDestructiveExposed,
			Category: CategoryTools,
			Title:    "Destructive tools exposed",
			Body:     fmt.Sprintf("Tool inventory exposes destructive commands without restriction: %s.", strings.Join(unique(m.Tools.Destructive), ", ")),
			Severity: Blocking,
			File:     config.FileName,
		})
	}
	if m.Tools.OverlapClusters > 0 || m.Tools.HasDuplicates {
		out = append(out, Finding{
			ID:       FindingToolOverlap,
			Category: CategoryTools,
			Title:    "Overlapping tools configured",
			Body:     fmt.Sprintf("Tool inventory has %d overlapping cluster(s)%s; agents waste steps choosing between equivalent tools.", m.Tools.OverlapClusters, duplicateSuffix(m.Tools.HasDuplicates)),
			Severity: Warning,
			File:     config.FileName,
		})
	}

	if cfg != nil {
		lc := policy.Lifecycle(cfg)
		if len(lc.Observe) > 0 {
			out = append(out, Finding{
				ID:       FindingToolObserve,
				Category: CategoryTools,
				Title:    "Observed tools scheduled for deprecation",
				Body:     fmt.Sprintf("Observed tools are still allowed but tracked: %s.", strings.Join(lc.Observe, ", ")),
				Severity: Warning,
				File:     config.FileName,
			})
		}
		if len(lc.Deprecated) > 0 {
			out = append(out, Finding{
				ID:       FindingToolDeprecated,
				Category: CategoryTools,
				Title:    "Deprecated tools still enabled",
				Body:     fmt.Sprintf("Deprecated tools should be migrated off active workflows: %s.", strings.Join(lc.Deprecated, ", ")),
				Severity: Blocking,
				File:     config.FileName,
			})
		}
		if len(lc.Disabled) > 0 {
			out = append(out, Finding{
				ID:       FindingToolDisabled,
				Category: CategoryTools,
				Title:    "Disabled tools are configured",
				Body:     fmt.Sprintf("Disabled tools are blocked by guardrails and promoted to forbidden on apply: %s.", strings.Join(lc.Disabled, ", ")),
				Severity: Blocking,
				File:     config.FileName,
			})
		}
	}

	switch {
	case cfg != nil && card.Verification < 0.5:
		out = append(out, Finding{
			ID:       FindingVerificationPartial,
			Category: CategoryVerification,
			Title:    "Verification policy incomplete",
			Body:     "Verification requirements are incomplete or missing pre-completion checks.",
			Severity: Blocking,
			File:     config.FileName,
		})
	case cfg == nil:
		out = append(out, Finding{
			ID:       FindingVerificationMissing,
			Category: CategoryVerification,
			Title:    "Verification policy unavailable",
			Body:     "Verification checks cannot be evaluated because harness.toml is missing.",
			Severity: Info,
			File:     config.FileName,
		})
	}

	return out
}

func duplicateSuffix(dup bool) string {
	if dup {
		return " and duplicate entries"
	}
	return ""
}

func unique(names []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
