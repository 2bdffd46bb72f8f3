package util

import (
	"os"
	"path/filepath"
)

// Layout of the harness state directory inside a repository.
const (
	StateDir    = ".harness"
	PlansDir    = "plans"
	RollbackDir = "rollback"
	TracesDir   = "traces"
	OptimizeDir = "optimize"
	BenchDir    = "bench"
	LocalConfig = "local.toml"
)

// HarnessDir returns <root>/.harness joined with any extra elements.
func HarnessDir(root string, elem ...string) string {
	parts := append([]string{root, StateDir}, elem...)
	return filepath.Join(parts...)
}

// EnsureDir ensures that a directory exists, creating it if necessary.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
