// Package scan builds an immutable model of the repository signals the
// scoring engine consumes.
package scan

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Dicklesworthstone/harness/internal/config"
	"github.com/Dicklesworthstone/harness/internal/git"
)

// Well-known documentation paths, relative to the repository root.
const (
	AgentsFile       = "AGENTS.md"
	ContextIndexFile = "docs/context/INDEX.md"
	ArchitectureFile = "ARCHITECTURE.md"
	DocsArchitecture = "docs/ARCHITECTURE.md"
	ReadmeFile       = "README.md"
)

// DocsAgeTracked are the documents whose newest commit defines docs age.
var DocsAgeTracked = []string{AgentsFile, ContextIndexFile, ArchitectureFile, DocsArchitecture, ReadmeFile}

// RepoModel is a read-only snapshot of repository signals.
type RepoModel struct {
	Root       string
	FileCount  int
	Docs       DocSignals
	Tools      ToolSignals
	Continuity ContinuitySignals
	Quality    QualitySignals
}

// DocSignals describe agent-facing documentation.
type DocSignals struct {
	HasAgentsMD             bool
	AgentsHasSectionHeader  bool
	HasContextIndex         bool
	HasArchitectureDoc      bool
	ReadmeLinksArchitecture bool
	// DocsAgeDays is nil when no tracked document has git history.
	DocsAgeDays *int
}

// ContinuitySignals describe session continuity artifacts.
type ContinuitySignals struct {
	HasInitializerPrompt bool
	HasCodingPrompt      bool
	HasProgressFile      bool
	HasFeatureStateFile  bool
	HasProgressSummary   bool
}

// QualitySignals describe repository hygiene.
type QualitySignals struct {
	HasCIWorkflow bool
	HasTests      bool
	HasLintConfig bool
}

// Scanner discovers repository signals. The zero value uses the wall clock.
type Scanner struct {
	Now func() time.Time
}

// Discover scans root with the wall clock. A nil cfg means the repository
// has no harness.toml.
func Discover(ctx context.Context, root string, cfg *config.Config) RepoModel {
	return Scanner{}.Discover(ctx, root, cfg)
}

// Discover scans root. Unreadable files and directories are skipped.
func (s Scanner) Discover(ctx context.Context, root string, cfg *config.Config) RepoModel {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	files := listFiles(root)
	model := RepoModel{
		Root:       root,
		FileCount:  len(files),
		Docs:       detectDocs(ctx, root, now()),
		Tools:      DetectTools(cfg),
		Continuity: detectContinuity(root, cfg.OrDefault()),
		Quality:    detectQuality(root, files),
	}
	slog.Debug("repository scanned", "component", "scan", "path", root, "count", model.FileCount)
	return model
}

// listFiles returns slash-separated relative paths of regular files, sorted.
// The .git directory is skipped.
func listFiles(root string) []string {
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files
}

func detectDocs(ctx context.Context, root string, now time.Time) DocSignals {
	agents := readIfExists(filepath.Join(root, AgentsFile))
	readme := readIfExists(filepath.Join(root, ReadmeFile))

	signals := DocSignals{
		HasAgentsMD:             exists(filepath.Join(root, AgentsFile)),
		HasContextIndex:         exists(filepath.Join(root, filepath.FromSlash(ContextIndexFile))),
		HasArchitectureDoc:      exists(filepath.Join(root, ArchitectureFile)) || exists(filepath.Join(root, filepath.FromSlash(DocsArchitecture))),
		ReadmeLinksArchitecture: strings.Contains(strings.ToLower(readme), "architecture"),
	}
	for _, line := range strings.Split(agents, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") {
			signals.AgentsHasSectionHeader = true
			break
		}
	}
	signals.DocsAgeDays = docsAgeDays(ctx, root, now)
	return signals
}

// docsAgeDays returns whole days since the newest commit touching a tracked
// document.
func docsAgeDays(ctx context.Context, root string, now time.Time) *int {
	var newest time.Time
	found := false
	for _, path := range DocsAgeTracked {
		t, ok := git.LastCommitTime(ctx, root, path)
		if !ok {
			continue
		}
		if !found || t.After(newest) {
			newest = t
			found = true
		}
	}
	if !found {
		return nil
	}
	age := int(now.Sub(newest).Hours() / 24)
	if age < 0 {
		age = 0
	}
	return &age
}

func detectContinuity(root string, cfg *config.Config) ContinuitySignals {
	c := cfg.Continuity
	progress := readIfExists(resolve(root, c.ProgressFile))
	return ContinuitySignals{
		HasInitializerPrompt: exists(resolve(root, c.Initializer)),
		HasCodingPrompt:      exists(resolve(root, c.CodingPrompt)),
		HasProgressFile:      exists(resolve(root, c.ProgressFile)),
		HasFeatureStateFile:  exists(resolve(root, c.FeatureStateFile)),
		HasProgressSummary:   strings.Contains(strings.ToLower(progress), "summary"),
	}
}

var testSuffixes = []string{
	"_test.go", "_test.rs", "_spec.rs", "_test.py", "_spec.rb",
	".test.ts", ".test.js", ".spec.ts", ".spec.js", ".test.tsx", ".spec.tsx",
}

var lintConfigs = []string{
	".golangci.yml", ".golangci.yaml", ".golangci.toml", ".golangci.json",
	"rustfmt.toml", ".rustfmt.toml", ".clippy.toml", "clippy.toml",
	".eslintrc", ".eslintrc.js", ".eslintrc.cjs", ".eslintrc.json", ".eslintrc.yml", "eslint.config.js", "eslint.config.mjs",
	"ruff.toml", ".ruff.toml", ".flake8", ".pylintrc", ".rubocop.yml", "biome.json",
}

func detectQuality(root string, files []string) QualitySignals {
	var q QualitySignals
	for _, f := range files {
		if strings.HasPrefix(f, ".github/workflows/") {
			q.HasCIWorkflow = true
		}
		name := filepath.Base(f)
		if isTestFile(f, name) {
			q.HasTests = true
		}
	}
	for _, name := range lintConfigs {
		if exists(filepath.Join(root, name)) {
			q.HasLintConfig = true
			break
		}
	}
	return q
}

func isTestFile(rel, name string) bool {
	if strings.HasPrefix(rel, "tests/") || strings.Contains(rel, "/tests/") {
		return true
	}
	if strings.HasPrefix(name, "test_") && strings.HasSuffix(name, ".py") {
		return true
	}
	for _, suffix := range testSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, filepath.FromSlash(path))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readIfExists(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
