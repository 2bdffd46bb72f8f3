// Package bench repeats the scoring pipeline and records the results with
// enough environment context to make later comparisons meaningful.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/Dicklesworthstone/harness/internal/config"
	"github.com/Dicklesworthstone/harness/internal/errkind"
	"github.com/Dicklesworthstone/harness/internal/git"
	"github.com/Dicklesworthstone/harness/internal/scan"
	"github.com/Dicklesworthstone/harness/internal/scoring"
	"github.com/Dicklesworthstone/harness/internal/util"
)

// DefaultSuite names a bench run without --suite.
const DefaultSuite = "default"

// Context describes the environment a bench ran in.
type Context struct {
	OS             string `json:"os"`
	Toolchain      string `json:"toolchain"`
	RepoRef        string `json:"repo_ref"`
	RepoDirty      bool   `json:"repo_dirty"`
	HarnessVersion string `json:"harness_version"`
	Suite          string `json:"suite"`
	Timestamp      string `json:"timestamp"`
}

// RunResult is the score of one repetition.
type RunResult struct {
	Run          int     `json:"run"`
	OverallScore float64 `json:"overall_score"`
}

// Report is a bench artifact.
type Report struct {
	Context Context     `json:"bench_context"`
	Runs    []RunResult `json:"runs"`
}

// Options configure a bench run.
type Options struct {
	Root    string
	Suite   string
	Runs    int
	Version string
	Now     func() time.Time
}

// Run scans the repository once and scores it opts.Runs times.
func Run(ctx context.Context, opts Options, cfg *config.Config) (*Report, error) {
	if opts.Runs < 1 {
		return nil, fmt.Errorf("runs must be at least 1, got %d", opts.Runs)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	model := scan.Scanner{Now: opts.Now}.Discover(ctx, opts.Root, cfg)
	report := &Report{Context: CaptureContext(ctx, opts.Root, opts.Version, opts.Suite, opts.Now())}
	for i := 1; i <= opts.Runs; i++ {
		scored, err := scoring.Score(model, cfg)
		if err != nil {
			return nil, err
		}
		report.Runs = append(report.Runs, RunResult{Run: i, OverallScore: scored.Scores.Overall})
	}
	return report, nil
}

// CaptureContext records the host, toolchain and repository state.
func CaptureContext(ctx context.Context, root, version, suite string, now time.Time) Context {
	if suite == "" {
		suite = DefaultSuite
	}
	return Context{
		OS:             runtime.GOOS + "-" + runtime.GOARCH,
		Toolchain:      runtime.Version(),
		RepoRef:        git.HeadRef(ctx, root),
		RepoDirty:      git.IsDirty(ctx, root, util.StateDir),
		HarnessVersion: version,
		Suite:          suite,
		Timestamp:      now.UTC().Format(time.RFC3339),
	}
}

// Write persists r under <root>/.harness/bench and returns its path.
func Write(root string, r *Report, now time.Time) (string, error) {
	dir := util.HarnessDir(root, util.BenchDir)
	if err := util.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("creating bench dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	path := util.UniquePath(dir, "bench-", ".json", now)
	if err := util.AtomicWriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("writing bench report: %w", err)
	}
	return path, nil
}

// Load reads a bench report.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errkind.Wrap(errkind.PathNotFound, err, "bench baseline not found: %s", path)
		}
		return nil, fmt.Errorf("reading bench baseline: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errkind.Wrap(errkind.ConfigInvalid, err, "bench baseline %s is malformed", path)
	}
	return &r, nil
}

// Average returns the mean overall score of runs, or 0 when there are none.
func Average(runs []RunResult) float64 {
	if len(runs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range runs {
		sum += r.OverallScore
	}
	return sum / float64(len(runs))
}

// CheckCompatible rejects comparisons across different hosts, toolchains or
// dirty states unless force is set.
func CheckCompatible(current, baseline Context, force bool) error {
	var mismatches []string
	if current.OS != baseline.OS {
		mismatches = append(mismatches, fmt.Sprintf("os (baseline=%s, current=%s)", baseline.OS, current.OS))
	}
	if current.Toolchain != baseline.Toolchain {
		mismatches = append(mismatches, fmt.Sprintf("toolchain (baseline=%s, current=%s)", baseline.Toolchain, current.Toolchain))
	}
	if current.RepoDirty != baseline.RepoDirty {
		mismatches = append(mismatches, fmt.Sprintf("repo_dirty (baseline=%t, current=%t)", baseline.RepoDirty, current.RepoDirty))
	}
	if len(mismatches) > 0 && !force {
		return errkind.New(errkind.ConfigInvalid,
			"bench compare blocked due to incompatible context: %s. Re-run with --force-compare to override.",
			strings.Join(mismatches, ", "))
	}
	return nil
}

// Comparison is the difference between two bench averages.
type Comparison struct {
	Baseline float64
	Current  float64
}

// Delta returns current minus baseline.
func (c Comparison) Delta() float64 { return c.Current - c.Baseline }

func (c Comparison) String() string {
	return fmt.Sprintf("bench compare: baseline=%.3f, current=%.3f, delta=%.3f", c.Baseline, c.Current, c.Delta())
}

// Compare checks compatibility and compares the average scores.
func Compare(current, baseline *Report, force bool) (Comparison, error) {
	if err := CheckCompatible(current.Context, baseline.Context, force); err != nil {
		return Comparison{}, err
	}
	return Comparison{Baseline: Average(baseline.Runs), Current: Average(current.Runs)}, nil
}
