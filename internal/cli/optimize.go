package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/harness/internal/recommend"
	"github.com/Dicklesworthstone/harness/internal/report"
	"github.com/Dicklesworthstone/harness/internal/trace"
	"github.com/Dicklesworthstone/harness/internal/util"
)

func newOptimizeCmd() *cobra.Command {
	var traceDir string

	cmd := &cobra.Command{
		Use:   "optimize [path]",
		Short: "Compare recent agent traces and write an optimize report",
		Long: `Scan agent traces, compare the two most recent harness revisions and
grade each recommendation by the measured delta.

The report is written to .harness/optimize/optimize-<stamp>.md. With fewer
recent traces than optimization.min_traces the report says so and every
recommendation stays rule-only.

Examples:
  harness optimize .
  harness optimize . --trace-dir ./agent-traces`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(args, "optimize", true)
			if err != nil {
				return err
			}
			dir := r.traceDir(traceDir)
			th := trace.ThresholdsFrom(r.cfg)

			data, err := trace.Scan(dir, trace.Options{StalenessDays: th.StalenessDays})
			if err != nil {
				return err
			}
			r.progress("trace_scanned", []string{
				fmt.Sprintf("recent=%d", data.Stats.Recent),
				fmt.Sprintf("malformed=%d", data.Stats.Malformed),
			}, "comparing")

			summary := trace.Summarize(data)
			delta := trace.Compare(summary, th)
			rep, recs, err := r.evaluate(cmd.Context(), summary)
			if err != nil {
				return err
			}
			regressions := recommend.Regressions(recs)
			warnRegressions(regressions)

			md := report.RenderOptimize(report.Optimize{
				OverallScore:    rep.Scores.Overall,
				TraceDir:        dir,
				Stats:           data.Stats,
				Thresholds:      th,
				Delta:           delta,
				Recommendations: recs,
			})
			outDir := util.HarnessDir(r.root, util.OptimizeDir)
			if err := util.EnsureDir(outDir); err != nil {
				return fmt.Errorf("creating optimize dir: %w", err)
			}
			path := util.UniquePath(outDir, "optimize-", ".md", time.Now())
			if err := util.AtomicWriteFile(path, []byte(md), 0644); err != nil {
				return fmt.Errorf("writing optimize report: %w", err)
			}

			for _, rec := range regressions {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s regressed: %s\n", rec.ID, rec.Note)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "optimize report: %s\n", path)
			r.finish("path="+path, "status="+string(delta.Status))
			return nil
		},
	}

	cmd.Flags().StringVar(&traceDir, "trace-dir", "", "trace directory (default .harness/traces)")
	return cmd
}
