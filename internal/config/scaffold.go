package config

import (
	"path/filepath"

	"github.com/Dicklesworthstone/harness/internal/util"
)

// Scaffold returns the configuration written by `harness init` for the
// repository at root. The language is detected from well-known build files
// and seeds the verification commands.
func Scaffold(root, profile string) *Config {
	cfg := Default()
	if profile != "" {
		cfg.Project.Profile = profile
	}
	cfg.Project.Name = filepath.Base(root)
	cfg.Tools.Baseline.Read = []string{"cat", "ls", "rg"}
	cfg.Tools.Baseline.Write = []string{"git"}
	cfg.Verification.LoopGuardEnabled = true

	switch {
	case util.FileExists(filepath.Join(root, "go.mod")):
		cfg.Project.Language = "go"
		cfg.Verification.Required = []string{"go vet ./...", "go test ./..."}
	case util.FileExists(filepath.Join(root, "Cargo.toml")):
		cfg.Project.Language = "rust"
		cfg.Verification.Required = []string{"cargo fmt --check", "cargo clippy --all-targets", "cargo test"}
	case util.FileExists(filepath.Join(root, "package.json")):
		cfg.Project.Language = "javascript"
		cfg.Verification.Required = []string{"npm test"}
	default:
		cfg.Verification.Required = []string{"make test"}
	}
	cfg.Verification.PreCompletionRequired = true

	if profile == "agent" {
		cfg.Continuity.LogSampling = SamplingAll
	}
	return cfg
}
