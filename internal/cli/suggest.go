package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/harness/internal/errkind"
	"github.com/Dicklesworthstone/harness/internal/output"
	"github.com/Dicklesworthstone/harness/internal/plan"
	"github.com/Dicklesworthstone/harness/internal/recommend"
	"github.com/Dicklesworthstone/harness/internal/report"
	"github.com/Dicklesworthstone/harness/internal/tui"
)

func newSuggestCmd() *cobra.Command {
	var (
		exportPlan   bool
		includeRisky bool
		pick         bool
		traceDir     string
	)

	cmd := &cobra.Command{
		Use:   "suggest [path]",
		Short: "List ordered recommendations and optionally export a plan",
		Long: `List the recommendations for a repository in priority order, with the
evidence status derived from recent traces.

--export-plan writes .harness/plans/plan-<stamp>.json with the safe
recommendations, or all of them with --include-risky. --pick opens an
interactive list to choose them instead. Pass the file to
'harness apply --plan-file'.

Examples:
  harness suggest .
  harness suggest . --export-plan
  harness suggest . --export-plan --include-risky
  harness suggest . --pick`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pick {
				f, ok := cmd.InOrStdin().(*os.File)
				if !ok || !isatty.IsTerminal(f.Fd()) {
					return errkind.New(errkind.SelectorMisuse, "--pick needs an interactive terminal")
				}
			}

			r, err := openRepo(args, "suggest", true)
			if err != nil {
				return err
			}
			_, summary, err := r.loadTraces(r.traceDir(traceDir))
			if err != nil {
				return err
			}
			_, all, err := r.evaluate(cmd.Context(), summary)
			if err != nil {
				return err
			}
			recs, regressions := recommend.Split(all)
			warnRegressions(regressions)

			w := cmd.OutOrStdout()
			out := output.New(w)
			if len(recs) == 0 {
				out.Textln("suggest: no recommendations")
			} else {
				out.Heading("suggestions:")
				table := output.NewTable(w, "ID", "TITLE", "IMPACT", "EFFORT", "RISK", "EVIDENCE").
					WithMaxColumnWidth(48)
				for _, rec := range recs {
					table.AddRow(rec.ID, rec.Title, rec.Impact.String(), rec.Effort.String(),
						rec.Risk.String(), string(rec.Evidence))
				}
				table.Render()
			}
			if len(regressions) > 0 {
				out.Line()
				fmt.Fprint(w, report.RegressionWarnings(regressions))
			}

			if exportPlan || pick {
				selected := recs
				switch {
				case pick:
					chosen, ok, err := tui.Pick(recs, cmd.InOrStdin(), cmd.OutOrStdout())
					if err != nil {
						return err
					}
					if !ok {
						out.Textln("suggest: plan export cancelled")
						r.finish(fmt.Sprintf("recommendations=%d", len(recs)))
						return nil
					}
					selected = chosen
				case !includeRisky:
					selected = recommend.Filter(recs, recommend.RiskSafe)
				}
				path, err := plan.Write(r.root, recommend.IDs(selected), Version, time.Now())
				if err != nil {
					return err
				}
				out.Textln("plan file: %s", path)
				r.milestone("plan_exported", []string{"path=" + path}, "apply")
			}

			r.finish(fmt.Sprintf("recommendations=%d", len(recs)), fmt.Sprintf("regressions=%d", len(regressions)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&exportPlan, "export-plan", false, "write a plan file for 'harness apply'")
	cmd.Flags().BoolVar(&includeRisky, "include-risky", false, "include medium and high risk recommendations in the plan")
	cmd.Flags().BoolVar(&pick, "pick", false, "choose the plan recommendations interactively")
	cmd.MarkFlagsMutuallyExclusive("pick", "include-risky")
	cmd.Flags().StringVar(&traceDir, "trace-dir", "", "trace directory (default .harness/traces)")
	return cmd
}
