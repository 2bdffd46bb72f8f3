package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/harness/internal/errkind"
)

var (
	verbosity int
	quiet     bool
	Version   = "dev" // Set via ldflags
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harness",
		Short: "Score and improve how well a repository supports AI coding agents",
		Long: `harness inspects a git repository for the things an AI coding agent needs:
context documents, a sane tool surface, continuity files, verification gates
and basic repository hygiene. It scores them, recommends fixes, and can apply
the safe ones.

Quick Start:
  harness init .                      # Write harness.toml, AGENTS.md and a context index
  harness analyze .                   # Score the repository
  harness suggest . --export-plan     # Save safe recommendations as a plan
  harness apply . --plan-all          # Preview the safe changes
  harness apply . --plan-all --mode apply --yes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v info, -vv debug)")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		// Inspection
		newAnalyzeCmd(),
		newLintCmd(),
		newSuggestCmd(),

		// Changes
		newInitCmd(),
		newApplyCmd(),

		// Evidence
		newOptimizeCmd(),
		newBenchCmd(),

		// Utilities
		newPolicyCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return execute(rootCmd, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func execute(cmd *cobra.Command, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.Execute()
	if err == nil {
		return errkind.ExitOK
	}

	var ce *codeError
	if errors.As(err, &ce) {
		return ce.code
	}
	var ke *errkind.Error
	if !errors.As(err, &ke) {
		// Flag and argument errors from cobra
		err = errkind.New(errkind.Internal, "%s", err.Error())
	}
	fmt.Fprintln(stderr, errkind.Line(err))
	return errkind.ExitCode(err)
}

// codeError ends a successful run with a finding-derived exit code.
type codeError struct{ code int }

func (e *codeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// exitWith returns nil for code 0 and a codeError otherwise.
func exitWith(code int) error {
	if code == errkind.ExitOK {
		return nil
	}
	return &codeError{code: code}
}

func setupLogging(w io.Writer) {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case verbosity == 1:
		level = slog.LevelInfo
	case verbosity >= 2:
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "harness version %s\n", Version)
		},
	}
}
