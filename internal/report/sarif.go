package report

import (
	"github.com/Dicklesworthstone/harness/internal/scoring"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
)

// SarifLog is the subset of SARIF 2.1.0 emitted for findings.
type SarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SarifRun `json:"runs"`
}

type SarifRun struct {
	Tool    SarifTool     `json:"tool"`
	Results []SarifResult `json:"results"`
}

type SarifTool struct {
	Driver SarifDriver `json:"driver"`
}

type SarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []SarifRule `json:"rules"`
}

type SarifRule struct {
	ID               string       `json:"id"`
	ShortDescription SarifMessage `json:"shortDescription"`
}

type SarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   SarifMessage    `json:"message"`
	Locations []SarifLocation `json:"locations,omitempty"`
}

type SarifMessage struct {
	Text string `json:"text"`
}

type SarifLocation struct {
	PhysicalLocation SarifPhysicalLocation `json:"physicalLocation"`
}

type SarifPhysicalLocation struct {
	ArtifactLocation SarifArtifact `json:"artifactLocation"`
	Region           *SarifRegion  `json:"region,omitempty"`
}

type SarifArtifact struct {
	URI string `json:"uri"`
}

type SarifRegion struct {
	StartLine int `json:"startLine"`
}

// Level maps a finding severity to a SARIF result level.
func Level(s scoring.Severity) string {
	switch s {
	case scoring.Blocking:
		return "error"
	case scoring.Warning:
		return "warning"
	}
	return "note"
}

// SARIF converts the findings of doc into a SARIF log with one result per
// finding.
func SARIF(doc Document, version string) SarifLog {
	run := SarifRun{
		Tool:    SarifTool{Driver: SarifDriver{Name: "harness", Version: version, Rules: []SarifRule{}}},
		Results: []SarifResult{},
	}
	seen := map[string]bool{}
	for _, f := range doc.Findings {
		if !seen[f.ID] {
			seen[f.ID] = true
			run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, SarifRule{
				ID:               f.ID,
				ShortDescription: SarifMessage{Text: f.Title},
			})
		}
		res := SarifResult{
			RuleID:  f.ID,
			Level:   Level(f.Severity),
			Message: SarifMessage{Text: f.Body},
		}
		if f.File != "" {
			loc := SarifLocation{PhysicalLocation: SarifPhysicalLocation{ArtifactLocation: SarifArtifact{URI: f.File}}}
			if f.Line > 0 {
				loc.PhysicalLocation.Region = &SarifRegion{StartLine: f.Line}
			}
			res.Locations = []SarifLocation{loc}
		}
		run.Results = append(run.Results, res)
	}
	return SarifLog{Schema: sarifSchema, Version: sarifVersion, Runs: []SarifRun{run}}
}
