package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/harness/internal/bench"
)

func newBenchCmd() *cobra.Command {
	var (
		suite        string
		runs         int
		compare      string
		forceCompare bool
	)

	cmd := &cobra.Command{
		Use:   "bench [path]",
		Short: "Score a repository repeatedly and record the environment",
		Long: `Score a repository --runs times and write .harness/bench/bench-<stamp>.json
with the scores and the environment they were taken in.

--compare loads an earlier bench file and prints the difference of the
average scores. Files from another os, toolchain or dirty state are
refused unless --force-compare is given.

Examples:
  harness bench . --runs 5
  harness bench . --compare .harness/bench/bench-20260101T000000Z.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(args, "bench", true)
			if err != nil {
				return err
			}
			now := time.Now()
			rep, err := bench.Run(cmd.Context(), bench.Options{
				Root:    r.root,
				Suite:   suite,
				Runs:    runs,
				Version: Version,
				Now:     func() time.Time { return now },
			}, r.cfg)
			if err != nil {
				return err
			}
			r.progress("runs_scored", []string{fmt.Sprintf("runs=%d", len(rep.Runs))}, "writing")

			out := cmd.OutOrStdout()
			if compare != "" {
				baseline, err := bench.Load(compare)
				if err != nil {
					return err
				}
				cmp, err := bench.Compare(rep, baseline, forceCompare)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cmp.String())
			}

			path, err := bench.Write(r.root, rep, now)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "bench report: %s\n", path)
			r.finish("path=" + path)
			return nil
		},
	}

	cmd.Flags().StringVar(&suite, "suite", bench.DefaultSuite, "suite name recorded in the report")
	cmd.Flags().IntVar(&runs, "runs", 1, "number of scoring runs")
	cmd.Flags().StringVar(&compare, "compare", "", "baseline bench file to compare against")
	cmd.Flags().BoolVar(&forceCompare, "force-compare", false, "compare even when the contexts differ")
	return cmd
}
