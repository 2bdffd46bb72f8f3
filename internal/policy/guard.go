package policy

import (
	"log/slog"

	"github.com/Dicklesworthstone/harness/internal/errkind"
)

// LoopGuardThreshold is the planned edit count at which a plan is rejected.
const LoopGuardThreshold = 25

// DetectLoop reports whether edits reaches threshold.
func DetectLoop(edits, threshold int) bool {
	return edits >= threshold
}

// Guard validates commands and a planned edit count before any action runs.
// A disabled or forbidden command yields ForbiddenToolAccess; reaching the
// loop guard threshold yields PlanInvalid. Deprecated commands are logged
// and allowed.
func (e *Engine) Guard(commands []string, plannedEdits int) error {
	for _, cmd := range commands {
		d := e.Classify(cmd)
		switch d.Status {
		case Disabled:
			return errkind.New(errkind.ForbiddenToolAccess, "forbidden tool access attempt: %s", cmd)
		case Deprecated:
			slog.Warn("deprecated command used", "component", "policy", "rule", d.Rule, "command", cmd)
		case Observe:
			slog.Info("observed command used", "component", "policy", "rule", d.Rule, "command", cmd)
		}
	}

	if DetectLoop(plannedEdits, LoopGuardThreshold) {
		return errkind.New(errkind.PlanInvalid,
			"loop guard triggered: planned change count %d reaches threshold %d", plannedEdits, LoopGuardThreshold)
	}
	return nil
}
