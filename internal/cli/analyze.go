package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/harness/internal/config"
	"github.com/Dicklesworthstone/harness/internal/output"
	"github.com/Dicklesworthstone/harness/internal/recommend"
	"github.com/Dicklesworthstone/harness/internal/report"
	"github.com/Dicklesworthstone/harness/internal/util"
	"github.com/Dicklesworthstone/harness/internal/watcher"
)

const watchDebounce = 500 * time.Millisecond

func newAnalyzeCmd() *cobra.Command {
	var (
		format    string
		minImpact string
		watch     bool
		traceDir  string
	)

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Score a repository and list findings and recommendations",
		Long: `Score a repository across context, tools, continuity, verification and
repository quality, then list findings and ordered recommendations.

The exit code reflects the worst finding: 0 none above info, 1 warnings,
2 blocking findings, 3 runtime error.

Examples:
  harness analyze .
  harness analyze . --format sarif > harness.sarif
  harness analyze . --min-impact safe
  harness analyze . --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			safeOnly, err := parseMinImpact(minImpact)
			if err != nil {
				return err
			}

			r, err := openRepo(args, "analyze", true)
			if err != nil {
				return err
			}
			if !r.loaded.Present() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: no harness.toml found in %s\n", r.root)
			}

			code, err := runAnalyze(cmd.Context(), cmd.OutOrStdout(), r, f, safeOnly, traceDir)
			if err != nil {
				return err
			}
			r.finish(fmt.Sprintf("exit_code=%d", code))

			if watch {
				return watchAnalyze(cmd, r, f, safeOnly, traceDir)
			}
			return exitWith(code)
		},
	}

	cmd.Flags().StringVar(&format, "format", string(report.FormatMarkdown), "output format: md, json, sarif, yaml")
	cmd.Flags().StringVar(&minImpact, "min-impact", "all", "recommendations to include: safe, all")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-run when files change")
	cmd.Flags().StringVar(&traceDir, "trace-dir", "", "trace directory (default .harness/traces)")
	return cmd
}

func parseMinImpact(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "safe":
		return true, nil
	case "all", "":
		return false, nil
	}
	return false, fmt.Errorf("unknown --min-impact %q (want safe or all)", s)
}

// runAnalyze renders one report and returns its exit code.
func runAnalyze(ctx context.Context, w io.Writer, r *repo, f report.Format, safeOnly bool, traceDir string) (int, error) {
	data, summary, err := r.loadTraces(r.traceDir(traceDir))
	if err != nil {
		return 0, err
	}
	r.progress("trace_scanned", []string{fmt.Sprintf("recent=%d", data.Stats.Recent)}, "scoring")

	rep, recs, err := r.evaluate(ctx, summary)
	if err != nil {
		return 0, err
	}
	if safeOnly {
		recs = recommend.Filter(recs, recommend.RiskSafe)
	}
	doc := report.New(rep, recs)
	warnRegressions(doc.RegressionWarnings)

	if f == report.FormatMarkdown && output.IsTerminal(w) {
		rendered, err := report.RenderTerminal(report.Markdown(doc), output.TerminalWidth(w))
		if err == nil {
			_, err = io.WriteString(w, rendered)
			return rep.ExitCode(), err
		}
		slog.Debug("terminal rendering failed, writing plain markdown", "component", "cli", "error", err)
	}
	if err := report.Render(w, doc, f, Version); err != nil {
		return 0, err
	}
	return rep.ExitCode(), nil
}

// watchAnalyze re-runs the analysis on file changes until interrupted.
func watchAnalyze(cmd *cobra.Command, r *repo, f report.Format, safeOnly bool, traceDir string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	changed := make(chan struct{}, 1)
	w, err := watcher.New(func([]watcher.Event) {
		select {
		case changed <- struct{}{}:
		default:
		}
	},
		watcher.WithDebounceDuration(watchDebounce),
		watcher.WithIgnore(func(path string) bool {
			rel, err := filepath.Rel(r.root, path)
			if err != nil {
				return false
			}
			first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
			return first == ".git" || first == util.StateDir
		}),
	)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()
	if err := w.AddRecursive(r.root); err != nil {
		return fmt.Errorf("watching %s: %w", r.root, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (Ctrl+C to stop)\n", r.root)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			loaded, err := config.Load(r.root)
			if err != nil {
				slog.Warn("config reload failed", "component", "cli", "path", r.root, "error", err)
				continue
			}
			r.loaded, r.cfg = loaded, loaded.Config
			fmt.Fprintln(out)
			if _, err := runAnalyze(ctx, out, r, f, safeOnly, traceDir); err != nil {
				slog.Warn("analysis failed", "component", "cli", "path", r.root, "error", err)
			}
		}
	}
}
