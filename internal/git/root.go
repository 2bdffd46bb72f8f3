package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// FindProjectRoot attempts to find the root of the git repository
// containing the given directory.
func FindProjectRoot(startDir string) (string, error) {
	out, err := Run(context.Background(), startDir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(dir string) bool {
	if _, err := Run(context.Background(), dir, "rev-parse", "--git-dir"); err == nil {
		return true
	}
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && (info.IsDir() || info.Mode().IsRegular())
}
