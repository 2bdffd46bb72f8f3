package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/harness/internal/apply"
)

func newApplyCmd() *cobra.Command {
	var (
		planFile   string
		planAll    bool
		mode       string
		allowDirty bool
		yes        bool
		showDiff   bool
	)

	cmd := &cobra.Command{
		Use:   "apply [path]",
		Short: "Preview or apply recommended changes",
		Long: `Preview or apply the changes for a set of recommendations.

Exactly one selector is required: --plan-file <file> for an exported plan,
or --plan-all for every safe recommendation. The default mode is preview,
which writes nothing. --mode apply requires a clean working tree (unless
--allow-dirty), writes a rollback manifest under .harness/rollback, asks for
confirmation and then writes the files.

High risk changes always need an interactive confirmation.

Examples:
  harness apply . --plan-all --diff
  harness apply . --plan-file plan-20260101T000000Z.json --mode apply
  harness apply . --plan-all --mode apply --yes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := apply.ParseMode(mode)
			if err != nil {
				return err
			}
			record := m == apply.ModeApply
			r, err := openRepo(args, "apply", record)
			if err != nil {
				return err
			}

			engine := apply.New(apply.Options{
				Root:       r.root,
				Mode:       m,
				PlanFile:   planFile,
				PlanAll:    planAll,
				AllowDirty: allowDirty,
				Yes:        yes,
				ShowDiff:   showDiff,
				Version:    Version,
			}, r.cfg, confirmerFor(cmd, yes), cmd.OutOrStdout())

			res, err := engine.Run(cmd.Context())
			if err != nil {
				r.milestone("failed", []string{err.Error()}, "blocked")
				return err
			}
			if res.ManifestPath != "" {
				r.milestone("manifest_written", []string{"path=" + res.ManifestPath}, "confirm")
			}
			r.finish(fmt.Sprintf("written=%d", res.Written))
			return nil
		},
	}

	cmd.Flags().StringVar(&planFile, "plan-file", "", "plan file from 'harness suggest --export-plan'")
	cmd.Flags().BoolVar(&planAll, "plan-all", false, "select every safe recommendation")
	cmd.Flags().StringVar(&mode, "mode", string(apply.ModePreview), "preview or apply")
	cmd.Flags().BoolVar(&allowDirty, "allow-dirty", false, "apply on a dirty working tree")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt for safe and medium changes")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "show a unified diff in preview mode")
	return cmd
}

// confirmerFor prompts on a terminal and otherwise answers with --yes.
func confirmerFor(cmd *cobra.Command, yes bool) apply.Confirmer {
	if f, ok := cmd.InOrStdin().(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return apply.Interactive{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
	}
	return apply.NonInteractive{Answer: yes}
}
