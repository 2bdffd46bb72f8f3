// Package apply turns selected recommendations into file changes. It is the
// only package that mutates a repository, and it does so in a fixed order:
// clean tree check, plan validation, rollback manifest, scope summary,
// confirmation, and finally atomic writes.
package apply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Dicklesworthstone/harness/internal/config"
	"github.com/Dicklesworthstone/harness/internal/errkind"
	"github.com/Dicklesworthstone/harness/internal/git"
	"github.com/Dicklesworthstone/harness/internal/plan"
	"github.com/Dicklesworthstone/harness/internal/policy"
	"github.com/Dicklesworthstone/harness/internal/recommend"
	"github.com/Dicklesworthstone/harness/internal/scan"
	"github.com/Dicklesworthstone/harness/internal/scoring"
	"github.com/Dicklesworthstone/harness/internal/util"
)

// Mode selects whether a run writes files.
type Mode string

const (
	ModePreview Mode = "preview"
	ModeApply   Mode = "apply"
)

// ParseMode parses a --mode value.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePreview:
		return ModePreview, nil
	case ModeApply:
		return ModeApply, nil
	}
	return "", fmt.Errorf("unknown mode %q (want preview or apply)", s)
}

// Options configure one apply run.
type Options struct {
	Root       string
	Mode       Mode
	PlanFile   string
	PlanAll    bool
	AllowDirty bool
	Yes        bool
	ShowDiff   bool
	Version    string
	Now        func() time.Time
}

// Result describes what a run did.
type Result struct {
	Selected     []recommend.Recommendation
	Changes      []Change
	Manifest     *Manifest
	ManifestPath string
	Written      int
	NoOp         bool
	Cancelled    bool
}

// Engine executes apply runs.
type Engine struct {
	opts    Options
	cfg     *config.Config
	policy  *policy.Engine
	confirm Confirmer
	out     io.Writer
	logger  *slog.Logger
}

// New creates an Engine. cfg may be nil when the repository has no
// configuration.
func New(opts Options, cfg *config.Config, confirm Confirmer, out io.Writer) *Engine {
	if opts.Mode == "" {
		opts.Mode = ModePreview
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if confirm == nil {
		confirm = NonInteractive{Answer: opts.Yes}
	}
	if out == nil {
		out = io.Discard
	}
	return &Engine{
		opts:    opts,
		cfg:     cfg,
		policy:  policy.New(cfg),
		confirm: confirm,
		out:     out,
		logger:  slog.Default().With("component", "apply"),
	}
}

// Run executes the full sequence. Any error leaves the repository untouched.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	now := e.opts.Now()

	if !e.opts.AllowDirty {
		if err := e.checkClean(ctx); err != nil {
			return nil, err
		}
	}

	selected, err := e.selectRecommendations(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{Selected: selected}

	b := newBuilder(e.opts.Root, e.cfg)
	for _, rec := range selected {
		if err := b.add(rec); err != nil {
			return nil, wrapBuild(err, "building changes for %s", rec.ID)
		}
	}
	if e.cfg != nil {
		if err := b.promote(); err != nil {
			return nil, errkind.Wrap(errkind.ConfigInvalid, err, "promoting disabled tools")
		}
	}
	changes, err := b.finish()
	if err != nil {
		return nil, wrapBuild(err, "building changes")
	}
	res.Changes = changes

	if err := e.policy.Guard(nil, len(changes)); err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		fmt.Fprintln(e.out, "no-op: no changes required")
		res.NoOp = true
		return res, nil
	}

	res.Manifest = newManifest(changes, e.opts.Version, now)
	if e.opts.Mode == ModeApply {
		path, err := res.Manifest.write(e.opts.Root, now)
		if err != nil {
			return nil, errkind.Wrap(errkind.RollbackWriteFailed, err, "rollback manifest could not be written")
		}
		res.ManifestPath = path
		fmt.Fprintf(e.out, "rollback manifest: %s\n", path)
	}

	e.printScope(changes)

	if e.opts.Mode == ModePreview {
		fmt.Fprintln(e.out, "preview: no files were written")
		return res, nil
	}

	ok, err := e.confirmed(selected)
	if err != nil {
		return nil, err
	}
	if !ok {
		fmt.Fprintln(e.out, "apply cancelled")
		res.Cancelled = true
		return res, nil
	}

	if err := e.verifyUnchanged(changes); err != nil {
		return nil, err
	}
	writes := make([]util.FileWrite, 0, len(changes))
	for _, c := range changes {
		writes = append(writes, util.FileWrite{Path: filepath.Join(e.opts.Root, filepath.FromSlash(c.Path)), Data: c.After})
	}
	if err := util.AtomicWriteFiles(writes, 0644); err != nil {
		return res, errkind.Wrap(errkind.Internal, err, "writing changes (rollback manifest: %s)", res.ManifestPath)
	}
	for _, c := range changes {
		res.Written++
		e.logger.Info("wrote file", "path", c.Path, "status", string(c.Action))
	}
	fmt.Fprintf(e.out, "apply complete: wrote %d file(s)\n", res.Written)
	return res, nil
}

// wrapBuild keeps the kind of a classified builder error and reports any
// other failure as internal.
func wrapBuild(err error, format string, args ...any) error {
	var kerr *errkind.Error
	if errors.As(err, &kerr) {
		return err
	}
	return errkind.Wrap(errkind.Internal, err, format, args...)
}

// checkClean rejects a work tree with changes outside the harness state dir.
func (e *Engine) checkClean(ctx context.Context) error {
	cmd := "git " + strings.Join(git.StatusArgs, " ")
	if err := e.policy.Guard([]string{cmd}, 0); err != nil {
		return err
	}
	entries, err := git.Status(ctx, e.opts.Root)
	if err != nil {
		return errkind.Wrap(errkind.NotGitRepo, err, "cannot read git status of %s", e.opts.Root)
	}
	dirty := git.FilterIgnored(entries, util.StateDir)
	if len(dirty) > 0 {
		e.logger.Debug("dirty work tree", "count", len(dirty), "path", dirty[0].Path)
		return errkind.New(errkind.WorkingTreeDirty, "working tree is dirty; use --allow-dirty to override")
	}
	return nil
}

func (e *Engine) selectRecommendations(ctx context.Context) ([]recommend.Recommendation, error) {
	switch {
	case e.opts.PlanAll && e.opts.PlanFile != "":
		return nil, errkind.New(errkind.SelectorMisuse, "use either --plan-file or --plan-all, not both")
	case !e.opts.PlanAll && e.opts.PlanFile == "":
		return nil, errkind.New(errkind.SelectorMisuse, "one of --plan-file or --plan-all is required")
	case e.opts.PlanAll:
		model := scan.Scanner{Now: e.opts.Now}.Discover(ctx, e.opts.Root, e.cfg)
		report, err := scoring.Score(model, e.cfg)
		if err != nil {
			return nil, err
		}
		return recommend.Filter(recommend.Plan(report, e.cfg, nil), recommend.RiskSafe), nil
	}

	f, err := plan.Load(e.opts.Root, e.opts.PlanFile, e.opts.Version)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var recs []recommend.Recommendation
	for _, id := range f.Recommendations {
		if seen[id] {
			continue
		}
		seen[id] = true
		rec, ok := recommend.Lookup(id)
		if !ok {
			e.logger.Warn("skipping unknown recommendation in plan", "rule", id)
			continue
		}
		recs = append(recs, rec)
	}
	recommend.Sort(recs)
	return recs, nil
}

func (e *Engine) printScope(changes []Change) {
	counts := Count(changes)
	fmt.Fprintf(e.out, "scope: create=%d modify=%d delete=%d\n",
		counts[ActionCreate], counts[ActionModify], counts[ActionDelete])
	for _, c := range changes {
		fmt.Fprintf(e.out, "%s: %s\n", c.Action, c.Path)
	}
	if e.opts.ShowDiff && e.opts.Mode == ModePreview {
		for _, c := range changes {
			writeDiff(e.out, c)
		}
	}
}

// confirmed runs the confirmation gate. High-risk selections always need a
// human answer, even with --yes.
func (e *Engine) confirmed(selected []recommend.Recommendation) (bool, error) {
	var risky []string
	for _, rec := range selected {
		if rec.Risk == recommend.RiskHigh {
			risky = append(risky, rec.ID)
		}
	}
	if len(risky) > 0 && !e.confirm.Interactive() {
		return false, errkind.New(errkind.ConfirmationRequired,
			"high-risk recommendation requires interactive confirmation: %s", strings.Join(risky, ", "))
	}
	if e.opts.Yes && len(risky) == 0 {
		return true, nil
	}
	ok, err := e.confirm.Confirm(ConfirmPrompt)
	if err != nil {
		return false, errkind.Wrap(errkind.Internal, err, "confirmation failed")
	}
	return ok, nil
}

// verifyUnchanged re-hashes every file the manifest recorded.
func (e *Engine) verifyUnchanged(changes []Change) error {
	for _, c := range changes {
		path := filepath.Join(e.opts.Root, filepath.FromSlash(c.Path))
		data, err := os.ReadFile(path)
		switch {
		case c.Action == ActionCreate && errors.Is(err, os.ErrNotExist):
			continue
		case c.Action == ActionCreate && err == nil:
			return errkind.New(errkind.WorkingTreeDirty, "%s was created after the rollback manifest was written", c.Path)
		case err != nil:
			return errkind.Wrap(errkind.WorkingTreeDirty, err, "%s changed after the rollback manifest was written", c.Path)
		}
		if util.HashBytes(data) != util.HashBytes(c.Before) {
			return errkind.New(errkind.WorkingTreeDirty, "%s changed after the rollback manifest was written", c.Path)
		}
	}
	return nil
}
