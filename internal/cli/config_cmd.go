package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/harness/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, locate or validate configuration",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigPathCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfigAt(path)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !loaded.Present() {
				fmt.Fprintln(w, "# Using default configuration (no harness.toml found)")
			}
			return config.Print(loaded.Config.OrDefault(), w)
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "repository directory")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the global configuration path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.DefaultPath())
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate every configuration layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfigAt(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config valid: %s\n", loaded.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "repository directory")
	return cmd
}
