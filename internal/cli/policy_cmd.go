package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/harness/internal/config"
	"github.com/Dicklesworthstone/harness/internal/errkind"
	"github.com/Dicklesworthstone/harness/internal/output"
	"github.com/Dicklesworthstone/harness/internal/policy"
	"github.com/Dicklesworthstone/harness/internal/util"
)

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the tool policy of a repository",
	}
	cmd.AddCommand(newPolicyCheckCmd(), newPolicyRulesCmd())
	return cmd
}

// loadConfigAt loads the configuration of dir without requiring a git
// repository.
func loadConfigAt(dir string) (*config.Loaded, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errkind.Wrap(errkind.PathNotFound, err, "resolving %s", dir)
	}
	if !util.DirExists(root) {
		return nil, errkind.New(errkind.PathNotFound, "path not found: %s", dir)
	}
	return config.Load(root)
}

func newPolicyCheckCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "check -- <command...>",
		Short: "Classify a command against the tool lifecycle",
		Long: `Classify a shell command against the repository tool policy and print the
status, the matching rule and the alias-expanded command.

Exit codes: 0 allowed, 1 observe, 2 deprecated or disabled.

Examples:
  harness policy check -- git push --force origin main
  harness policy check --path ../service -- grep -r TODO .`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfigAt(path)
			if err != nil {
				return err
			}
			d := policy.New(loaded.Config).Classify(strings.Join(args, " "))

			out := output.New(cmd.OutOrStdout())
			out.Textln("status: %s", out.Status(d.Status.String()))
			if d.Rule != "" {
				out.Textln("rule: %s (%s)", d.Rule, d.Source)
			}
			out.Textln("command: %s", d.Expanded)
			return exitWith(policyExitCode(d.Status))
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "repository whose policy applies")
	return cmd
}

func policyExitCode(s policy.ToolStatus) int {
	switch s {
	case policy.Allowed:
		return errkind.ExitOK
	case policy.Observe:
		return errkind.ExitWarning
	}
	return errkind.ExitBlocking
}

func newPolicyRulesCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the ordered policy rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(path)
			if err != nil {
				return errkind.Wrap(errkind.PathNotFound, err, "resolving %s", path)
			}
			loaded, err := loadConfigAt(root)
			if err != nil {
				return err
			}
			engine := policy.New(loaded.Config)

			w := cmd.OutOrStdout()
			out := output.New(w)
			table := output.NewTable(w, "PATTERN", "STATUS", "SOURCE")
			for _, rule := range engine.Rules() {
				table.AddRow(rule.Pattern, rule.Status.String(), string(rule.Source))
			}
			table.Render()

			stats := engine.Stats()
			out.Line()
			out.Textln("rules: %s, %s, %s",
				output.CountStr(stats[policy.Disabled], "disabled", "disabled"),
				output.CountStr(stats[policy.Deprecated], "deprecated", "deprecated"),
				output.CountStr(stats[policy.Observe], "observed", "observed"))

			doc, _, err := config.ReadDocument(config.RepoPath(root))
			if err != nil {
				return errkind.Wrap(errkind.ConfigInvalid, err, "reading %s", config.FileName)
			}
			if pending := doc.PendingPromotion(); len(pending) > 0 {
				out.Textln("pending promotion to forbidden: %s", strings.Join(pending, ", "))
			}
			if other := policy.Unpromotable(loaded.Config, doc.Disabled()); len(other) > 0 {
				out.Textln("disabled outside %s, not promoted by apply: %s", config.FileName, strings.Join(other, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "repository whose policy applies")
	return cmd
}
