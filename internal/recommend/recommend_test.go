package recommend

import (
	"reflect"
	"testing"
	"time"

	"github.com/Dicklesworthstone/harness/internal/config"
	"github.com/Dicklesworthstone/harness/internal/scoring"
	"github.com/Dicklesworthstone/harness/internal/trace"
)

func report(fileCount int, verification, tools float64, findings ...string) scoring.Report {
	r := scoring.Report{FileCount: fileCount}
	r.Scores.Verification = verification
	r.Scores.Tools = tools
	for _, id := range findings {
		r.Findings = append(r.Findings, scoring.Finding{ID: id})
	}
	return r
}

func TestPlan_RuleTable(t *testing.T) {
	cases := []struct {
		name   string
		report scoring.Report
		want   []string
	}{
		{
			name:   "healthy large repo",
			report: report(100, 1, 1),
			want:   nil,
		},
		{
			name:   "empty repo",
			report: report(0, 0, 1, scoring.FindingMissingAgents, scoring.FindingMissingIndex),
			want:   []string{IDContextIndex, IDVerificationGate, IDRepoScale},
		},
		{
			name:   "destructive tools",
			report: report(100, 1, 0.8, scoring.FindingDestructiveExposed),
			want:   []string{IDToolsDestructive, IDToolsPrune},
		},
		{
			name:   "everything",
			report: report(5, 0.2, 0.5, scoring.FindingMissingIndex, scoring.FindingDestructiveExposed),
			want:   []string{IDContextIndex, IDToolsDestructive, IDVerificationGate, IDToolsPrune, IDRepoScale},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := IDs(Plan(tc.report, nil, nil))
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Plan ids = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPlan_RuleOnlyWithoutSummary(t *testing.T) {
	for _, rec := range Plan(report(0, 0, 0.5, scoring.FindingMissingIndex), nil, nil) {
		if rec.Evidence != EvidenceRuleOnly {
			t.Errorf("%s evidence = %s, want rule_only", rec.ID, rec.Evidence)
		}
	}
}

func summaryFor(baseSuccess, curSuccess, baseTokens, curTokens int, baseTasks, curTasks []string, n int) *trace.Summary {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []trace.Record
	add := func(rev string, ts time.Time, success, tokens int, tasks []string) {
		for i := 0; i < n; i++ {
			outcome := trace.OutcomeFailure
			if i < success {
				outcome = trace.OutcomeSuccess
			}
			tk := uint64(tokens)
			steps := uint32(10)
			records = append(records, trace.Record{
				Timestamp: ts.Add(time.Duration(i) * time.Second),
				TaskID:    tasks[i%len(tasks)],
				Revision:  rev,
				Outcome:   outcome,
				TokenEst:  &tk,
				Steps:     &steps,
			})
		}
	}
	add("base", at, baseSuccess, baseTokens, baseTasks)
	add("cur", at.Add(time.Hour), curSuccess, curTokens, curTasks)
	return trace.Summarize(trace.Data{Records: records})
}

func evidenceByID(recs []Recommendation) map[string]Evidence {
	out := map[string]Evidence{}
	for _, r := range recs {
		out[r.ID] = r.Evidence
	}
	return out
}

func TestPlan_Evidence(t *testing.T) {
	cfg := config.Default()
	cfg.Optimization.MinTraces = 4
	r := report(5, 0, 0.5, scoring.FindingMissingIndex)
	ab := []string{"a", "b"}

	cases := []struct {
		name    string
		summary *trace.Summary
		want    map[string]Evidence
	}{
		{
			name:    "completion up, tokens down",
			summary: summaryFor(2, 4, 2000, 1000, ab, ab, 4),
			want: map[string]Evidence{
				IDContextIndex:     EvidenceBacked,
				IDVerificationGate: EvidenceBacked,
				IDToolsPrune:       EvidenceNeutral,
				IDRepoScale:        EvidenceRuleOnly,
			},
		},
		{
			name:    "tokens regress",
			summary: summaryFor(4, 4, 1000, 2000, ab, ab, 4),
			want: map[string]Evidence{
				IDContextIndex:     EvidenceRegression,
				IDVerificationGate: EvidenceNeutral,
				IDToolsPrune:       EvidenceNeutral,
				IDRepoScale:        EvidenceRuleOnly,
			},
		},
		{
			name:    "too few traces",
			summary: summaryFor(2, 4, 2000, 1000, ab, ab, 2),
			want: map[string]Evidence{
				IDContextIndex:     EvidenceInsufficient,
				IDVerificationGate: EvidenceInsufficient,
				IDToolsPrune:       EvidenceInsufficient,
				IDRepoScale:        EvidenceRuleOnly,
			},
		},
		{
			name:    "low overlap",
			summary: summaryFor(2, 4, 2000, 1000, ab, []string{"c", "d"}, 4),
			want: map[string]Evidence{
				IDContextIndex:     EvidenceInsufficient,
				IDVerificationGate: EvidenceInsufficient,
				IDToolsPrune:       EvidenceInsufficient,
				IDRepoScale:        EvidenceRuleOnly,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recs := Plan(r, cfg, tc.summary)
			if got := evidenceByID(recs); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("evidence = %v, want %v", got, tc.want)
			}
			// Evidence never reorders or removes
			if !reflect.DeepEqual(IDs(recs), IDs(Plan(r, cfg, nil))) {
				t.Errorf("evidence changed ordering: %v", IDs(recs))
			}
		})
	}
}

func TestSplit(t *testing.T) {
	cfg := config.Default()
	cfg.Optimization.MinTraces = 4
	ab := []string{"a", "b"}
	recs := Plan(report(5, 0, 0.5, scoring.FindingMissingIndex), cfg, summaryFor(4, 4, 1000, 2000, ab, ab, 4))

	actionable, regressions := Split(recs)
	if got := IDs(regressions); !reflect.DeepEqual(got, []string{IDContextIndex}) {
		t.Errorf("regressions = %v", got)
	}
	if !reflect.DeepEqual(regressions, Regressions(recs)) {
		t.Error("Split and Regressions disagree")
	}
	for _, r := range actionable {
		if r.Evidence == EvidenceRegression {
			t.Errorf("%s kept as actionable", r.ID)
		}
	}
	if len(actionable)+len(regressions) != len(recs) {
		t.Errorf("split lost recommendations: %d + %d != %d", len(actionable), len(regressions), len(recs))
	}
}

func TestSort_TieBreak(t *testing.T) {
	recs := []Recommendation{
		{ID: "c", Impact: ImpactMedium, Effort: EffortXS},
		{ID: "b", Impact: ImpactHigh, Effort: EffortM},
		{ID: "a", Impact: ImpactHigh, Effort: EffortM},
		{ID: "d", Impact: ImpactHigh, Effort: EffortXS},
		{ID: "e", Impact: ImpactLow, Effort: EffortXS},
	}
	Sort(recs)
	want := []string{"d", "a", "b", "c", "e"}
	if got := IDs(recs); !reflect.DeepEqual(got, want) {
		t.Errorf("Sort = %v, want %v", got, want)
	}
}

func TestFilter(t *testing.T) {
	safe := Filter(Catalog(), RiskSafe)
	want := []string{IDContextIndex, IDRepoScale}
	if got := IDs(safe); !reflect.DeepEqual(got, want) {
		t.Errorf("safe = %v, want %v", got, want)
	}
	if len(Filter(Catalog(), RiskHigh)) != len(Catalog()) {
		t.Error("RiskHigh should keep everything")
	}
}

func TestLookupAndParseRisk(t *testing.T) {
	rec, ok := Lookup(IDToolsDestructive)
	if !ok || rec.Risk != RiskHigh {
		t.Errorf("Lookup = %+v, %v", rec, ok)
	}
	if _, ok := Lookup("rec.unknown"); ok {
		t.Error("unknown id should not be found")
	}
	if r, err := ParseRisk(" High "); err != nil || r != RiskHigh {
		t.Errorf("ParseRisk = %v, %v", r, err)
	}
	if _, err := ParseRisk("extreme"); err == nil {
		t.Error("expected error")
	}
}
