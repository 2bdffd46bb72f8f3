package scan

import (
	"sort"
	"strings"

	"github.com/Dicklesworthstone/harness/internal/config"
)

// DefaultTools is the inventory assumed when none is configured.
var DefaultTools = []string{"bash", "ls", "find", "cat", "rg", "git"}

// DestructiveTools are tool names that should never be exposed unguarded.
var DestructiveTools = []string{"sudo", "mkfs", "fdisk", "rm", "shutdown"}

// OverlapClusters group tools with interchangeable behavior.
var OverlapClusters = [][]string{
	{"grep", "rg", "ag", "ack"},
	{"find", "fd"},
}

// ToolSignals describe the configured tool surface.
type ToolSignals struct {
	Names           []string
	OverlapClusters int
	Destructive     []string
	HasDuplicates   bool
}

// DetectTools derives tool signals from configuration. A nil cfg or an empty
// inventory falls back to DefaultTools.
func DetectTools(cfg *config.Config) ToolSignals {
	var names []string
	if cfg != nil {
		names = cfg.ToolInventory()
	}
	names = NormalizeTools(names)
	if len(names) == 0 {
		names = NormalizeTools(DefaultTools)
	}

	signals := ToolSignals{Names: names}
	present := map[string]bool{}
	for _, name := range names {
		if present[name] {
			signals.HasDuplicates = true
		}
		present[name] = true
	}
	for _, cluster := range OverlapClusters {
		n := 0
		for _, tool := range cluster {
			if present[tool] {
				n++
			}
		}
		if n > 1 {
			signals.OverlapClusters++
		}
	}
	for _, name := range names {
		for _, d := range DestructiveTools {
			if name == d {
				signals.Destructive = append(signals.Destructive, name)
			}
		}
	}
	return signals
}

// NormalizeTools trims and lowercases names, drops empties and sorts.
func NormalizeTools(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
