package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the repository-level configuration file.
const FileName = "harness.toml"

// Config is the merged harness configuration.
type Config struct {
	Project      ProjectConfig      `toml:"project" mapstructure:"project"`
	Context      ContextConfig      `toml:"context" mapstructure:"context"`
	Tools        ToolsConfig        `toml:"tools" mapstructure:"tools"`
	Verification VerificationConfig `toml:"verification" mapstructure:"verification"`
	Continuity   ContinuityConfig   `toml:"continuity" mapstructure:"continuity"`
	Metrics      MetricsConfig      `toml:"metrics" mapstructure:"metrics"`
	Workflow     WorkflowConfig     `toml:"workflow" mapstructure:"workflow"`
	Optimization OptimizationConfig `toml:"optimization" mapstructure:"optimization"`
}

// ProjectConfig describes the repository.
type ProjectConfig struct {
	Name       string `toml:"name" mapstructure:"name"`
	Profile    string `toml:"profile" mapstructure:"profile"`
	Language   string `toml:"language" mapstructure:"language"`
	MainBranch string `toml:"main_branch" mapstructure:"main_branch"`
}

// ContextConfig points at the agent context documents.
type ContextConfig struct {
	AgentsMap      string `toml:"agents_map" mapstructure:"agents_map"`
	ContextIndex   string `toml:"context_index" mapstructure:"context_index"`
	DocMapRequired bool   `toml:"doc_map_required" mapstructure:"doc_map_required"`
}

// ToolsConfig holds the tool inventory and command lifecycle.
type ToolsConfig struct {
	Baseline    BaselineTools     `toml:"baseline" mapstructure:"baseline"`
	Specialized SpecializedTools  `toml:"specialized" mapstructure:"specialized"`
	Deprecated  LifecycleTools    `toml:"deprecated" mapstructure:"deprecated"`
	Aliases     map[string]string `toml:"aliases" mapstructure:"aliases"`
}

// BaselineTools is the standard tool surface.
type BaselineTools struct {
	Read      []string `toml:"read" mapstructure:"read"`
	Write     []string `toml:"write" mapstructure:"write"`
	Forbidden []string `toml:"forbidden" mapstructure:"forbidden"`
}

// SpecializedTools are project-specific extras.
type SpecializedTools struct {
	Extra []string `toml:"extra" mapstructure:"extra"`
}

// LifecycleTools lists commands by deprecation stage.
type LifecycleTools struct {
	Observe    []string `toml:"observe" mapstructure:"observe"`
	Deprecated []string `toml:"deprecated" mapstructure:"deprecated"`
	Disabled   []string `toml:"disabled" mapstructure:"disabled"`
}

// VerificationConfig describes the completion gate.
type VerificationConfig struct {
	Required              []string `toml:"required" mapstructure:"required"`
	PreCompletionRequired bool     `toml:"pre_completion_required" mapstructure:"pre_completion_required"`
	LoopGuardEnabled      bool     `toml:"loop_guard_enabled" mapstructure:"loop_guard_enabled"`
}

// ContinuityConfig controls session continuity files and the progress log.
type ContinuityConfig struct {
	Initializer        string `toml:"initializer" mapstructure:"initializer"`
	CodingPrompt       string `toml:"coding_prompt" mapstructure:"coding_prompt"`
	ProgressFile       string `toml:"progress_file" mapstructure:"progress_file"`
	FeatureStateFile   string `toml:"feature_state_file" mapstructure:"feature_state_file"`
	StateSchemaVersion int    `toml:"state_schema_version" mapstructure:"state_schema_version"`
	LogSampling        string `toml:"log_sampling" mapstructure:"log_sampling"`
	BatchIntervalSecs  int    `toml:"batch_interval_secs" mapstructure:"batch_interval_secs"`
	MaxLogSizeKB       int    `toml:"max_log_size_kb" mapstructure:"max_log_size_kb"`
	RetainedLogs       int    `toml:"retained_logs" mapstructure:"retained_logs"`
}

// Log sampling modes.
const (
	SamplingMilestones = "milestones"
	SamplingAll        = "all"
	SamplingNone       = "none"
)

// MetricsConfig holds scoring weights and caps.
type MetricsConfig struct {
	Weights             WeightsConfig `toml:"weights" mapstructure:"weights"`
	MaxRiskTolerance    float64       `toml:"max_risk_tolerance" mapstructure:"max_risk_tolerance"`
	MaxPenaltyPerBucket float64       `toml:"max_penalty_per_bucket" mapstructure:"max_penalty_per_bucket"`
}

// WeightsConfig is the per-category weight vector. It must sum to 1.0.
type WeightsConfig struct {
	Context           float64 `toml:"context" mapstructure:"context"`
	Tools             float64 `toml:"tools" mapstructure:"tools"`
	Continuity        float64 `toml:"continuity" mapstructure:"continuity"`
	Verification      float64 `toml:"verification" mapstructure:"verification"`
	RepositoryQuality float64 `toml:"repository_quality" mapstructure:"repository_quality"`
}

// Sum returns the total of all weights.
func (w WeightsConfig) Sum() float64 {
	return w.Context + w.Tools + w.Continuity + w.Verification + w.RepositoryQuality
}

// WorkflowConfig bounds agent loops.
type WorkflowConfig struct {
	MaxConsecutiveFailures int  `toml:"max_consecutive_failures" mapstructure:"max_consecutive_failures"`
	MaxIdleSteps           int  `toml:"max_idle_steps" mapstructure:"max_idle_steps"`
	ReplanOnLoop           bool `toml:"replan_on_loop" mapstructure:"replan_on_loop"`
}

// OptimizationConfig holds the trace significance gates.
type OptimizationConfig struct {
	MinTraces            int     `toml:"min_traces" mapstructure:"min_traces"`
	MinUpliftAbs         float64 `toml:"min_uplift_abs" mapstructure:"min_uplift_abs"`
	MinUpliftRel         float64 `toml:"min_uplift_rel" mapstructure:"min_uplift_rel"`
	TraceStalenessDays   int     `toml:"trace_staleness_days" mapstructure:"trace_staleness_days"`
	TaskOverlapThreshold float64 `toml:"task_overlap_threshold" mapstructure:"task_overlap_threshold"`
}

// DefaultPath returns the global config file path
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "harness", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "harness", "config.toml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			Profile:    "general",
			MainBranch: "main",
		},
		Context: ContextConfig{
			AgentsMap:    "AGENTS.md",
			ContextIndex: "docs/context/INDEX.md",
		},
		Tools: ToolsConfig{
			Aliases: map[string]string{},
		},
		Continuity: ContinuityConfig{
			Initializer:        ".harness/initializer.prompt.md",
			CodingPrompt:       ".harness/coding.prompt.md",
			ProgressFile:       ".harness/progress.md",
			FeatureStateFile:   ".harness/feature_list.json",
			StateSchemaVersion: 1,
			LogSampling:        SamplingMilestones,
			BatchIntervalSecs:  60,
			MaxLogSizeKB:       100,
			RetainedLogs:       3,
		},
		Metrics: MetricsConfig{
			Weights: WeightsConfig{
				Context:           0.30,
				Tools:             0.25,
				Continuity:        0.20,
				Verification:      0.15,
				RepositoryQuality: 0.10,
			},
			MaxRiskTolerance:    0.50,
			MaxPenaltyPerBucket: 0.40,
		},
		Workflow: WorkflowConfig{
			MaxConsecutiveFailures: 3,
			MaxIdleSteps:           10,
			ReplanOnLoop:           true,
		},
		Optimization: OptimizationConfig{
			MinTraces:            10,
			MinUpliftAbs:         0.05,
			MinUpliftRel:         0.10,
			TraceStalenessDays:   30,
			TaskOverlapThreshold: 0.50,
		},
	}
}

// OrDefault returns c, or the default configuration when c is nil.
// A nil *Config means the repository has no harness.toml.
func (c *Config) OrDefault() *Config {
	if c == nil {
		return Default()
	}
	return c
}

// ToolInventory returns every configured tool name, unnormalized.
func (c *Config) ToolInventory() []string {
	var out []string
	out = append(out, c.Tools.Baseline.Read...)
	out = append(out, c.Tools.Baseline.Write...)
	out = append(out, c.Tools.Specialized.Extra...)
	return out
}

// Print writes config to a writer in TOML format
func Print(cfg *Config, w io.Writer) error {
	fmt.Fprintln(w, "# harness configuration")
	fmt.Fprintln(w)
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}
