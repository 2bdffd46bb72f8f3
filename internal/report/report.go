// Package report renders a scored repository and its recommendations in the
// supported output formats.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/harness/internal/recommend"
	"github.com/Dicklesworthstone/harness/internal/scoring"
)

// Format is an output format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatSARIF    Format = "sarif"
	FormatYAML     Format = "yaml"
)

// Formats lists every supported format.
var Formats = []Format{FormatMarkdown, FormatJSON, FormatSARIF, FormatYAML}

// ParseFormat parses a --format value.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "markdown":
		return FormatMarkdown, nil
	case FormatMarkdown, FormatJSON, FormatSARIF, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want md, json, sarif or yaml)", s)
}

// Document is the serializable report.
type Document struct {
	OverallScore    float64                    `json:"overall_score" yaml:"overall_score"`
	CategoryScores  scoring.ScoreCard          `json:"category_scores" yaml:"category_scores"`
	Findings        []scoring.Finding          `json:"findings" yaml:"findings"`
	Recommendations []recommend.Recommendation `json:"recommendations" yaml:"recommendations"`
	// RegressionWarnings hold recommendations whose traces regressed. They
	// are never listed as recommendations.
	RegressionWarnings []recommend.Recommendation `json:"regression_warnings" yaml:"regression_warnings"`
}

// New builds a Document, moving regression-graded recommendations into the
// warnings. Nil slices are rendered as empty lists.
func New(r scoring.Report, recs []recommend.Recommendation) Document {
	actionable, regressions := recommend.Split(recs)
	doc := Document{
		OverallScore:       r.Scores.Overall,
		CategoryScores:     r.Scores,
		Findings:           r.Findings,
		Recommendations:    actionable,
		RegressionWarnings: regressions,
	}
	if doc.Findings == nil {
		doc.Findings = []scoring.Finding{}
	}
	if doc.Recommendations == nil {
		doc.Recommendations = []recommend.Recommendation{}
	}
	if doc.RegressionWarnings == nil {
		doc.RegressionWarnings = []recommend.Recommendation{}
	}
	return doc
}

// Render writes doc to w in format.
func Render(w io.Writer, doc Document, format Format, version string) error {
	switch format {
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(doc))
		return err
	case FormatJSON:
		return writeJSON(w, doc)
	case FormatSARIF:
		return writeJSON(w, SARIF(doc, version))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml report: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json report: %w", err)
	}
	return nil
}

// Markdown renders doc as a markdown report.
func Markdown(doc Document) string {
	var b strings.Builder
	b.WriteString("# Harness Report\n\n")
	fmt.Fprintf(&b, "Overall score: %.3f\n\n", doc.OverallScore)

	b.WriteString("## Category Scores\n\n")
	for _, c := range scoring.Categories {
		fmt.Fprintf(&b, "- %s: %.3f\n", c, doc.CategoryScores.Get(c))
	}
	b.WriteString("\n## Findings\n\n")
	if len(doc.Findings) == 0 {
		b.WriteString("- none\n")
	}
	for _, f := range doc.Findings {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", f.Severity, f.Title, f.Body)
	}

	b.WriteString("\n## Recommendations\n\n")
	if len(doc.Recommendations) == 0 {
		b.WriteString("- none\n")
	}
	for _, r := range doc.Recommendations {
		fmt.Fprintf(&b, "- %s (%s/%s, confidence %.2f): %s", r.Title, r.Impact, r.Effort, r.Confidence, r.Summary)
		if r.Evidence != "" && r.Evidence != recommend.EvidenceRuleOnly {
			fmt.Fprintf(&b, " [evidence: %s]", r.Evidence)
		}
		b.WriteString("\n")
	}
	if len(doc.RegressionWarnings) > 0 {
		b.WriteString("\n" + RegressionWarnings(doc.RegressionWarnings))
	}
	return b.String()
}

// RegressionWarnings renders the markdown section listing recommendations
// whose traces regressed.
func RegressionWarnings(regs []recommend.Recommendation) string {
	var b strings.Builder
	b.WriteString("## Regression Warnings\n\n")
	for _, r := range regs {
		fmt.Fprintf(&b, "- `%s` %s", r.ID, r.Title)
		if r.Note != "" {
			b.WriteString(": " + r.Note)
		}
		b.WriteString("\n")
	}
	return b.String()
}
