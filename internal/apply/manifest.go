package apply

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dicklesworthstone/harness/internal/util"
)

// ManifestEntry records the pre-write state of one touched file. SHA256 is
// nil for files that did not exist.
type ManifestEntry struct {
	Path   string  `json:"path"`
	Action Action  `json:"action"`
	SHA256 *string `json:"sha256"`
}

// Manifest is the rollback record written before any mutation.
type Manifest struct {
	Timestamp      string          `json:"timestamp"`
	HarnessVersion string          `json:"harness_version"`
	Files          []ManifestEntry `json:"files"`
}

func newManifest(changes []Change, version string, now time.Time) *Manifest {
	m := &Manifest{
		Timestamp:      now.UTC().Format(time.RFC3339),
		HarnessVersion: version,
		Files:          make([]ManifestEntry, 0, len(changes)),
	}
	for _, c := range changes {
		entry := ManifestEntry{Path: c.Path, Action: c.Action}
		if c.Action != ActionCreate {
			sum := util.HashBytes(c.Before)
			entry.SHA256 = &sum
		}
		m.Files = append(m.Files, entry)
	}
	return m
}

// write persists m under <root>/.harness/rollback and returns its path.
func (m *Manifest) write(root string, now time.Time) (string, error) {
	dir := util.HarnessDir(root, util.RollbackDir)
	if err := util.EnsureDir(dir); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	path := util.UniquePath(dir, "", ".json", now)
	if err := util.AtomicWriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
