package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/harness/internal/output"
	"github.com/Dicklesworthstone/harness/internal/scoring"
)

func newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint [path]",
		Short: "List findings with their severity",
		Long: `List the findings of a repository, one per line, with wrapped details.
Exits 2 when a blocking finding is present and 1 for warnings.

Examples:
  harness lint .`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(args, "lint", true)
			if err != nil {
				return err
			}
			rep, _, err := r.evaluate(cmd.Context(), nil)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if len(rep.Findings) == 0 {
				out.Textln("lint: no findings")
			}
			for _, f := range rep.Findings {
				out.Textln("%s %s: %s", out.Badge(lintLabel(f.Severity)), f.ID, f.Title)
				if f.Body != "" {
					out.Paragraph(f.Body, 2)
				}
			}

			code := rep.ExitCode()
			r.finish(fmt.Sprintf("findings=%d", len(rep.Findings)))
			return exitWith(code)
		},
	}
}

func lintLabel(s scoring.Severity) string {
	switch s {
	case scoring.Blocking:
		return "blocking"
	case scoring.Warning:
		return "warn"
	}
	return "info"
}
