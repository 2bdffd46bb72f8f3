package git

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// HeadRef returns the commit hash of HEAD, or "unknown" when it cannot be
// resolved (for example in a repository without commits).
func HeadRef(ctx context.Context, dir string) string {
	out, err := Run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "unknown"
	}
	ref := strings.TrimSpace(out)
	if ref == "" {
		return "unknown"
	}
	return ref
}

// IsDirty reports whether the work tree at dir has any uncommitted change
// outside the ignore prefixes.
func IsDirty(ctx context.Context, dir string, ignore ...string) bool {
	entries, err := Status(ctx, dir)
	return err != nil || len(FilterIgnored(entries, ignore...)) > 0
}

// LastCommitTime returns the committer time of the newest commit touching
// path. ok is false when the path has no history.
func LastCommitTime(ctx context.Context, dir, path string) (t time.Time, ok bool) {
	out, err := Run(ctx, dir, "log", "-1", "--format=%ct", "--", path)
	if err != nil {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}
