package config

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Dicklesworthstone/harness/internal/errkind"
)

// weightTolerance is the allowed drift of the weight sum from 1.0.
const weightTolerance = 0.001

// ValidationErrors collects every problem found in a configuration.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return strings.Join(v, "; ")
}

// Validate checks the configuration and returns a ConfigInvalid error
// listing every violation.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch c.Project.Profile {
	case "general", "agent":
	default:
		add("project.profile must be \"general\" or \"agent\" (found %q)", c.Project.Profile)
	}

	w := c.Metrics.Weights
	for _, entry := range []struct {
		name  string
		value float64
	}{
		{"context", w.Context},
		{"tools", w.Tools},
		{"continuity", w.Continuity},
		{"verification", w.Verification},
		{"repository_quality", w.RepositoryQuality},
	} {
		if !inUnit(entry.value) {
			add("metrics.weights.%s must be within [0, 1] (found %.3f)", entry.name, entry.value)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > weightTolerance {
		add("metrics.weights must sum to 1.0 (found %.3f)", sum)
	}
	if !inUnit(c.Metrics.MaxRiskTolerance) {
		add("metrics.max_risk_tolerance must be within [0, 1]")
	}
	if !inUnit(c.Metrics.MaxPenaltyPerBucket) {
		add("metrics.max_penalty_per_bucket must be within [0, 1]")
	}

	if c.Verification.PreCompletionRequired && len(c.Verification.Required) == 0 {
		add("verification.required cannot be empty when pre_completion_required = true")
	}

	switch c.Continuity.LogSampling {
	case SamplingMilestones, SamplingAll, SamplingNone:
	default:
		add("continuity.log_sampling must be one of milestones, all, none (found %q)", c.Continuity.LogSampling)
	}
	if c.Continuity.BatchIntervalSecs < 1 {
		add("continuity.batch_interval_secs must be at least 1")
	}
	if c.Continuity.MaxLogSizeKB < 1 {
		add("continuity.max_log_size_kb must be at least 1")
	}
	if c.Continuity.RetainedLogs < 0 {
		add("continuity.retained_logs cannot be negative")
	}

	o := c.Optimization
	if o.MinTraces < 1 {
		add("optimization.min_traces must be at least 1")
	}
	if !inUnit(o.MinUpliftAbs) {
		add("optimization.min_uplift_abs must be within [0, 1]")
	}
	if o.MinUpliftRel < 0 {
		add("optimization.min_uplift_rel cannot be negative")
	}
	if o.TraceStalenessDays < 1 {
		add("optimization.trace_staleness_days must be at least 1")
	}
	if !inUnit(o.TaskOverlapThreshold) {
		add("optimization.task_overlap_threshold must be within [0, 1]")
	}

	lists := map[string][]string{
		"tools.baseline.read":         c.Tools.Baseline.Read,
		"tools.baseline.write":        c.Tools.Baseline.Write,
		"tools.baseline.forbidden":    c.Tools.Baseline.Forbidden,
		"tools.specialized.extra":     c.Tools.Specialized.Extra,
		"tools.deprecated.observe":    c.Tools.Deprecated.Observe,
		"tools.deprecated.deprecated": c.Tools.Deprecated.Deprecated,
		"tools.deprecated.disabled":   c.Tools.Deprecated.Disabled,
	}
	listNames := make([]string, 0, len(lists))
	for name := range lists {
		listNames = append(listNames, name)
	}
	sort.Strings(listNames)
	for _, name := range listNames {
		for _, tool := range lists[name] {
			if strings.TrimSpace(tool) == "" {
				add("%s contains an empty tool name", name)
				break
			}
		}
	}
	for alias, target := range c.Tools.Aliases {
		if strings.TrimSpace(alias) == "" || strings.TrimSpace(target) == "" {
			add("tools.aliases entries must have a non-empty name and target")
			break
		}
	}

	for _, entry := range []struct {
		name string
		path string
	}{
		{"context.agents_map", c.Context.AgentsMap},
		{"context.context_index", c.Context.ContextIndex},
		{"continuity.initializer", c.Continuity.Initializer},
		{"continuity.coding_prompt", c.Continuity.CodingPrompt},
		{"continuity.progress_file", c.Continuity.ProgressFile},
		{"continuity.feature_state_file", c.Continuity.FeatureStateFile},
	} {
		if err := CheckRepoPath(entry.path); err != nil {
			add("%s %v (found %q)", entry.name, err, entry.path)
		}
	}

	for _, dup := range lifecycleOverlaps(c.Tools.Deprecated) {
		add("tool %q appears in more than one lifecycle stage", dup)
	}

	if len(errs) > 0 {
		return errkind.Wrap(errkind.ConfigInvalid, errs, "invalid configuration")
	}
	return nil
}

// CheckRepoPath rejects paths that could resolve outside the repository
// root: absolute paths and paths with a ".." segment. Empty is allowed.
func CheckRepoPath(p string) error {
	if p == "" {
		return nil
	}
	slashed := filepath.ToSlash(p)
	if filepath.IsAbs(p) || strings.HasPrefix(slashed, "/") || filepath.VolumeName(p) != "" {
		return errors.New("must be relative to the repository root")
	}
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return errors.New("must not contain \"..\" segments")
		}
	}
	return nil
}

// lifecycleOverlaps returns tool names present in more than one stage, sorted.
func lifecycleOverlaps(l LifecycleTools) []string {
	seen := map[string]int{}
	for _, stage := range [][]string{l.Observe, l.Deprecated, l.Disabled} {
		unique := map[string]bool{}
		for _, tool := range stage {
			name := strings.ToLower(strings.TrimSpace(tool))
			if name == "" || unique[name] {
				continue
			}
			unique[name] = true
			seen[name]++
		}
	}
	var dups []string
	for name, n := range seen {
		if n > 1 {
			dups = append(dups, name)
		}
	}
	sort.Strings(dups)
	return dups
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1 && !math.IsNaN(v)
}
