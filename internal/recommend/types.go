// Package recommend derives ranked remediation actions from a score report
// and refines them with trace evidence.
package recommend

import (
	"fmt"
	"strings"
)

// Impact is the expected benefit of a recommendation.
type Impact int

const (
	ImpactLow Impact = iota
	ImpactMedium
	ImpactHigh
)

func (i Impact) String() string {
	switch i {
	case ImpactLow:
		return "low"
	case ImpactMedium:
		return "medium"
	case ImpactHigh:
		return "high"
	}
	return fmt.Sprintf("Impact(%d)", int(i))
}

// Effort is the expected cost of a recommendation.
type Effort int

const (
	EffortXS Effort = iota
	EffortS
	EffortM
	EffortL
)

func (e Effort) String() string {
	switch e {
	case EffortXS:
		return "xs"
	case EffortS:
		return "s"
	case EffortM:
		return "m"
	case EffortL:
		return "l"
	}
	return fmt.Sprintf("Effort(%d)", int(e))
}

// Risk classifies how safely a recommendation can be applied.
type Risk int

const (
	RiskSafe Risk = iota
	RiskMedium
	RiskHigh
)

func (r Risk) String() string {
	switch r {
	case RiskSafe:
		return "safe"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	}
	return fmt.Sprintf("Risk(%d)", int(r))
}

// ParseRisk parses a risk name.
func ParseRisk(s string) (Risk, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return RiskSafe, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	}
	return RiskSafe, fmt.Errorf("unknown risk %q", s)
}

func (i Impact) MarshalText() ([]byte, error) { return []byte(i.String()), nil }
func (e Effort) MarshalText() ([]byte, error) { return []byte(e.String()), nil }
func (r Risk) MarshalText() ([]byte, error)   { return []byte(r.String()), nil }

// Evidence is the trace-gated status of a recommendation.
type Evidence string

const (
	EvidenceRuleOnly     Evidence = "rule_only"
	EvidenceBacked       Evidence = "evidence_backed"
	EvidenceInsufficient Evidence = "insufficient_evidence"
	EvidenceNeutral      Evidence = "neutral"
	EvidenceRegression   Evidence = "regression"
)

// Recommendation is a ranked remediation action.
type Recommendation struct {
	ID         string   `json:"id" yaml:"id"`
	Title      string   `json:"title" yaml:"title"`
	Summary    string   `json:"summary" yaml:"summary"`
	Impact     Impact   `json:"impact" yaml:"impact"`
	Effort     Effort   `json:"effort" yaml:"effort"`
	Risk       Risk     `json:"risk" yaml:"risk"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Metric     string   `json:"metric,omitempty" yaml:"metric,omitempty"`
	Evidence   Evidence `json:"evidence" yaml:"evidence"`
	Note       string   `json:"note,omitempty" yaml:"note,omitempty"`
}
