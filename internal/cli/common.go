package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Dicklesworthstone/harness/internal/config"
	"github.com/Dicklesworthstone/harness/internal/continuity"
	"github.com/Dicklesworthstone/harness/internal/errkind"
	"github.com/Dicklesworthstone/harness/internal/git"
	"github.com/Dicklesworthstone/harness/internal/recommend"
	"github.com/Dicklesworthstone/harness/internal/scan"
	"github.com/Dicklesworthstone/harness/internal/scoring"
	"github.com/Dicklesworthstone/harness/internal/trace"
	"github.com/Dicklesworthstone/harness/internal/util"
)

// repo is a resolved repository with its configuration and progress log.
type repo struct {
	root    string
	loaded  *config.Loaded
	cfg     *config.Config
	log     *continuity.Logger
	feature string
}

// openRepo resolves the repository argument and loads its configuration.
// When record is set, milestones go to the progress log. Nothing is written
// until the command has scanned the repository.
func openRepo(args []string, feature string, record bool) (*repo, error) {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	root, err := resolveRepo(arg)
	if err != nil {
		return nil, err
	}
	loaded, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	r := &repo{root: root, loaded: loaded, cfg: loaded.Config, feature: feature}
	if record {
		r.log = continuity.New(root, loaded.Config)
	}
	return r, nil
}

// resolveRepo returns the top level of the git work tree containing arg.
func resolveRepo(arg string) (string, error) {
	if arg == "" {
		arg = "."
	}
	root, err := filepath.Abs(arg)
	if err != nil {
		return "", errkind.Wrap(errkind.PathNotFound, err, "resolving %s", arg)
	}
	if _, err := os.Stat(root); err != nil {
		return "", errkind.New(errkind.PathNotFound, "path not found: %s", arg)
	}
	if !git.IsRepo(root) {
		return "", errkind.New(errkind.NotGitRepo, "not a git repository: %s", root)
	}
	if top, err := git.FindProjectRoot(root); err == nil && top != "" {
		return top, nil
	}
	return root, nil
}

func (r *repo) milestone(action string, evidence []string, next string) {
	if r.log == nil {
		return
	}
	if err := r.log.Milestone(r.feature, action, evidence, next); err != nil {
		slog.Warn("continuity milestone logging failed", "component", "cli", "error", err)
	}
}

func (r *repo) progress(action string, evidence []string, next string) {
	if r.log == nil {
		return
	}
	if err := r.log.Progress(r.feature, action, evidence, next); err != nil {
		slog.Warn("continuity progress logging failed", "component", "cli", "error", err)
	}
}

// finish flushes buffered progress and records the completion milestone.
func (r *repo) finish(evidence ...string) {
	if r.log == nil {
		return
	}
	r.milestone("complete", evidence, "done")
}

// traceDir returns dir, or the default trace directory of the repository.
func (r *repo) traceDir(dir string) string {
	if dir == "" {
		return util.HarnessDir(r.root, util.TracesDir)
	}
	if !filepath.IsAbs(dir) {
		return filepath.Join(r.root, dir)
	}
	return dir
}

// loadTraces scans dir and summarizes it. The summary is nil when no recent
// records were found.
func (r *repo) loadTraces(dir string) (trace.Data, *trace.Summary, error) {
	th := trace.ThresholdsFrom(r.cfg)
	data, err := trace.Scan(dir, trace.Options{StalenessDays: th.StalenessDays})
	if err != nil {
		return data, nil, err
	}
	if data.Stats.Recent == 0 {
		return data, nil, nil
	}
	return data, trace.Summarize(data), nil
}

// evaluate scans, scores and plans the repository.
func (r *repo) evaluate(ctx context.Context, summary *trace.Summary) (scoring.Report, []recommend.Recommendation, error) {
	model := scan.Discover(ctx, r.root, r.cfg)
	rep, err := scoring.Score(model, r.cfg)
	if err != nil {
		return rep, nil, err
	}
	return rep, recommend.Plan(rep, r.cfg, summary), nil
}

// warnRegressions logs every recommendation whose traces regressed.
func warnRegressions(regs []recommend.Recommendation) {
	for _, rec := range regs {
		slog.Warn("recommendation regressed in recent traces", "component", "cli", "rule", rec.ID, "note", rec.Note)
	}
}
