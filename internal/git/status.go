package git

import (
	"context"
	"path/filepath"
	"strings"
)

// StatusEntry is one line of `git status --porcelain`.
type StatusEntry struct {
	Code string
	Path string
}

// StatusArgs is the exact command used for the clean-tree check.
var StatusArgs = []string{"status", "--porcelain"}

// Status returns the porcelain status entries of the work tree at dir.
func Status(ctx context.Context, dir string) ([]StatusEntry, error) {
	out, err := Run(ctx, dir, StatusArgs...)
	if err != nil {
		return nil, err
	}
	return parseStatus(out), nil
}

// parseStatus parses porcelain v1 output. Renames report the new path.
func parseStatus(out string) []StatusEntry {
	var entries []StatusEntry
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		path := strings.TrimSpace(line[3:])
		if idx := strings.Index(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		path = strings.Trim(path, `"`)
		entries = append(entries, StatusEntry{Code: code, Path: path})
	}
	return entries
}

// FilterIgnored drops entries that live under any of the given directory
// prefixes (slash separated, relative to the repository root).
func FilterIgnored(entries []StatusEntry, prefixes ...string) []StatusEntry {
	var kept []StatusEntry
	for _, e := range entries {
		p := filepath.ToSlash(e.Path)
		skip := false
		for _, prefix := range prefixes {
			prefix = strings.TrimSuffix(prefix, "/")
			if p == prefix || strings.HasPrefix(p, prefix+"/") {
				skip = true
				break
			}
		}
		if !skip {
			kept = append(kept, e)
		}
	}
	return kept
}
