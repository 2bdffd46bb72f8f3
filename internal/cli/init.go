package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/harness/internal/apply"
	"github.com/Dicklesworthstone/harness/internal/config"
	"github.com/Dicklesworthstone/harness/internal/continuity"
	"github.com/Dicklesworthstone/harness/internal/errkind"
	"github.com/Dicklesworthstone/harness/internal/scan"
	"github.com/Dicklesworthstone/harness/internal/util"
)

type initFile struct {
	rel  string
	data []byte
}

func newInitCmd() *cobra.Command {
	var (
		profile     string
		dryRun      bool
		noOverwrite bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write harness.toml, AGENTS.md and a context index",
		Long: `Write the starting harness files into a repository:

  harness.toml           configuration, with verification commands for the detected language
  AGENTS.md              the agent entry point
  docs/context/INDEX.md  the context index

Existing files are overwritten unless --no-overwrite is given.

Examples:
  harness init .
  harness init . --profile agent
  harness init ./new-project --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if profile != "general" && profile != "agent" {
				return errkind.New(errkind.ConfigInvalid, "unknown profile %q (want general or agent)", profile)
			}
			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			root, err := filepath.Abs(target)
			if err != nil {
				return errkind.Wrap(errkind.PathNotFound, err, "resolving %s", target)
			}

			out := cmd.OutOrStdout()
			if !util.DirExists(root) {
				if dryRun {
					fmt.Fprintf(out, "init target would be created: %s\n", root)
				} else if err := os.MkdirAll(root, 0755); err != nil {
					return fmt.Errorf("creating %s: %w", root, err)
				}
			}

			cfg := config.Scaffold(root, profile)
			var buf bytes.Buffer
			if err := config.Print(cfg, &buf); err != nil {
				return err
			}
			files := []initFile{
				{rel: config.FileName, data: buf.Bytes()},
				{rel: scan.AgentsFile, data: apply.AgentsDoc(scan.ContextIndexFile)},
				{rel: scan.ContextIndexFile, data: apply.IndexDoc(scan.AgentsFile, config.FileName)},
			}

			fmt.Fprintln(out, "init plan:")
			for _, f := range files {
				fmt.Fprintf(out, "- %s\n", f.rel)
			}
			if dryRun {
				fmt.Fprintln(out, "dry-run: no files were written")
				return nil
			}

			var written []string
			for _, f := range files {
				path := filepath.Join(root, filepath.FromSlash(f.rel))
				if noOverwrite && util.FileExists(path) {
					fmt.Fprintf(out, "skip existing: %s\n", f.rel)
					continue
				}
				if err := util.AtomicWriteFile(path, f.data, 0644); err != nil {
					return fmt.Errorf("writing %s: %w", f.rel, err)
				}
				written = append(written, f.rel)
			}

			log := continuity.New(root, cfg)
			if err := log.Milestone("init", "complete", written, "analyze"); err != nil {
				slog.Warn("continuity milestone logging failed", "component", "cli", "error", err)
			}
			fmt.Fprintln(out, "init complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "general", "configuration profile: general or agent")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without writing files")
	cmd.Flags().BoolVar(&noOverwrite, "no-overwrite", false, "keep files that already exist")
	return cmd
}
