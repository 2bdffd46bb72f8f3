// Package plan reads and writes plan artifacts: the recommendation ids an
// apply run is allowed to act on.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Dicklesworthstone/harness/internal/errkind"
	"github.com/Dicklesworthstone/harness/internal/util"
)

// File is the on-disk plan.
type File struct {
	Version         string   `json:"version"`
	GeneratedAt     string   `json:"generated_at"`
	Recommendations []string `json:"recommendations"`
}

// Dir returns the plans directory of root.
func Dir(root string) string {
	return util.HarnessDir(root, util.PlansDir)
}

// Write persists ids as a new plan file and returns its path.
func Write(root string, ids []string, version string, now time.Time) (string, error) {
	dir := Dir(root)
	if err := util.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("creating plans dir: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	data, err := json.MarshalIndent(File{
		Version:         version,
		GeneratedAt:     now.UTC().Format(time.RFC3339),
		Recommendations: ids,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	path := util.UniquePath(dir, "plan-", ".json", now)
	if err := util.AtomicWriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("writing plan: %w", err)
	}
	return path, nil
}

// ResolvePath maps a user-supplied plan path to an absolute path strictly
// inside the plans directory of root. Absolute paths, ".." segments and
// symlinks escaping the directory are rejected with PlanInvalid.
func ResolvePath(root, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errkind.New(errkind.PlanInvalid, "plan file path is empty")
	}
	if filepath.IsAbs(p) {
		return "", errkind.New(errkind.PlanInvalid, "plan file must be a relative path: %s", p)
	}
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", errkind.New(errkind.PlanInvalid, "plan file path must not contain '..': %s", p)
		}
	}

	dir := Dir(root)
	var candidate string
	if !strings.ContainsAny(p, `/\`) {
		candidate = filepath.Join(dir, p)
	} else {
		candidate = filepath.Join(root, p)
	}

	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", errkind.Wrap(errkind.PlanInvalid, err, "plans directory does not exist: %s", dir)
	}
	realFile, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", errkind.Wrap(errkind.PlanInvalid, err, "plan file not found: %s", p)
	}
	rel, err := filepath.Rel(realDir, realFile)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errkind.New(errkind.PlanInvalid, "plan file must be inside %s: %s", filepath.Join(util.StateDir, util.PlansDir), p)
	}
	return realFile, nil
}

// Load resolves, reads and validates a plan file. The plan version must equal
// version.
func Load(root, p, version string) (*File, error) {
	path, err := ResolvePath(root, p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errkind.Wrap(errkind.PlanInvalid, err, "reading plan file %s", p)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			return nil, errkind.Wrap(errkind.PlanInvalid, err, "plan file %s is not valid JSON (offset %d)", p, syn.Offset)
		}
		return nil, errkind.Wrap(errkind.PlanInvalid, err, "plan file %s is malformed", p)
	}
	if f.Version == "" {
		return nil, errkind.New(errkind.PlanInvalid, "plan file %s has no version", p)
	}
	if f.Version != version {
		return nil, errkind.New(errkind.PlanInvalid, "plan version %q does not match harness version %q", f.Version, version)
	}
	return &f, nil
}
