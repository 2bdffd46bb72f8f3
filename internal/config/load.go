package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/Dicklesworthstone/harness/internal/errkind"
	"github.com/Dicklesworthstone/harness/internal/util"
)

// Layer is one configuration source that contributed to a load.
type Layer struct {
	Name string
	Path string
}

// Loaded is the result of resolving configuration for a repository.
type Loaded struct {
	// Config is nil when the repository has no harness.toml.
	Config *Config
	Layers []Layer
}

// RepoPath returns the repository config path for root.
func RepoPath(root string) string {
	return filepath.Join(root, FileName)
}

// LocalPath returns the machine-local override path for root.
func LocalPath(root string) string {
	return util.HarnessDir(root, util.LocalConfig)
}

// Load resolves configuration for the repository at root using the global
// config at DefaultPath.
func Load(root string) (*Loaded, error) {
	return LoadWithGlobal(root, DefaultPath())
}

// LoadWithGlobal layers global, repository and local configuration. Later
// layers override earlier ones key by key. Configuration is only considered
// present when <root>/harness.toml exists; otherwise the returned Config is nil.
func LoadWithGlobal(root, globalPath string) (*Loaded, error) {
	repoPath := RepoPath(root)
	if !util.FileExists(repoPath) {
		return &Loaded{}, nil
	}

	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)

	loaded := &Loaded{}
	sources := []Layer{
		{Name: "global", Path: globalPath},
		{Name: "repo", Path: repoPath},
		{Name: "local", Path: LocalPath(root)},
	}
	for _, layer := range sources {
		if layer.Path == "" {
			continue
		}
		doc, err := readLayer(layer.Path)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		if err := v.MergeConfigMap(doc); err != nil {
			return nil, errkind.Wrap(errkind.ConfigInvalid, err, "merging %s", layer.Path)
		}
		loaded.Layers = append(loaded.Layers, layer)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errkind.Wrap(errkind.ConfigInvalid, err, "decoding configuration")
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loaded.Config = &cfg
	return loaded, nil
}

// readLayer decodes one TOML file. A missing file yields a nil document.
func readLayer(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errkind.Wrap(errkind.ConfigInvalid, err, "reading %s", path)
	}

	// Typed decode catches type mismatches and reports unknown keys.
	var typed Config
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&typed)
	if err != nil {
		return nil, errkind.Wrap(errkind.ConfigInvalid, err, "parsing %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		slog.Warn("unknown configuration keys ignored", "path", path, "keys", strings.Join(keys, ", "))
	}

	doc := map[string]any{}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, errkind.Wrap(errkind.ConfigInvalid, err, "parsing %s", path)
	}
	return doc, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("project.profile", d.Project.Profile)
	v.SetDefault("project.main_branch", d.Project.MainBranch)

	v.SetDefault("context.agents_map", d.Context.AgentsMap)
	v.SetDefault("context.context_index", d.Context.ContextIndex)

	v.SetDefault("continuity.initializer", d.Continuity.Initializer)
	v.SetDefault("continuity.coding_prompt", d.Continuity.CodingPrompt)
	v.SetDefault("continuity.progress_file", d.Continuity.ProgressFile)
	v.SetDefault("continuity.feature_state_file", d.Continuity.FeatureStateFile)
	v.SetDefault("continuity.state_schema_version", d.Continuity.StateSchemaVersion)
	v.SetDefault("continuity.log_sampling", d.Continuity.LogSampling)
	v.SetDefault("continuity.batch_interval_secs", d.Continuity.BatchIntervalSecs)
	v.SetDefault("continuity.max_log_size_kb", d.Continuity.MaxLogSizeKB)
	v.SetDefault("continuity.retained_logs", d.Continuity.RetainedLogs)

	v.SetDefault("metrics.weights.context", d.Metrics.Weights.Context)
	v.SetDefault("metrics.weights.tools", d.Metrics.Weights.Tools)
	v.SetDefault("metrics.weights.continuity", d.Metrics.Weights.Continuity)
	v.SetDefault("metrics.weights.verification", d.Metrics.Weights.Verification)
	v.SetDefault("metrics.weights.repository_quality", d.Metrics.Weights.RepositoryQuality)
	v.SetDefault("metrics.max_risk_tolerance", d.Metrics.MaxRiskTolerance)
	v.SetDefault("metrics.max_penalty_per_bucket", d.Metrics.MaxPenaltyPerBucket)

	v.SetDefault("workflow.max_consecutive_failures", d.Workflow.MaxConsecutiveFailures)
	v.SetDefault("workflow.max_idle_steps", d.Workflow.MaxIdleSteps)
	v.SetDefault("workflow.replan_on_loop", d.Workflow.ReplanOnLoop)

	v.SetDefault("optimization.min_traces", d.Optimization.MinTraces)
	v.SetDefault("optimization.min_uplift_abs", d.Optimization.MinUpliftAbs)
	v.SetDefault("optimization.min_uplift_rel", d.Optimization.MinUpliftRel)
	v.SetDefault("optimization.trace_staleness_days", d.Optimization.TraceStalenessDays)
	v.SetDefault("optimization.task_overlap_threshold", d.Optimization.TaskOverlapThreshold)
}

// normalize trims tool names and fills an empty alias map.
func (c *Config) normalize() {
	trim := func(list []string) []string {
		out := make([]string, 0, len(list))
		for _, s := range list {
			out = append(out, strings.TrimSpace(s))
		}
		return out
	}
	c.Tools.Baseline.Read = trim(c.Tools.Baseline.Read)
	c.Tools.Baseline.Write = trim(c.Tools.Baseline.Write)
	c.Tools.Baseline.Forbidden = trim(c.Tools.Baseline.Forbidden)
	c.Tools.Specialized.Extra = trim(c.Tools.Specialized.Extra)
	c.Tools.Deprecated.Observe = trim(c.Tools.Deprecated.Observe)
	c.Tools.Deprecated.Deprecated = trim(c.Tools.Deprecated.Deprecated)
	c.Tools.Deprecated.Disabled = trim(c.Tools.Deprecated.Disabled)
	if c.Tools.Aliases == nil {
		c.Tools.Aliases = map[string]string{}
	}
}

// Present reports whether the repository has a harness.toml.
func (l *Loaded) Present() bool { return l != nil && l.Config != nil }

// String renders the loaded layer names, for diagnostics.
func (l *Loaded) String() string {
	if l.Config == nil {
		return "no harness.toml (defaults)"
	}
	names := make([]string, 0, len(l.Layers))
	for _, layer := range l.Layers {
		names = append(names, fmt.Sprintf("%s=%s", layer.Name, layer.Path))
	}
	return strings.Join(names, " ")
}
