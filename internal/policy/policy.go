// Package policy classifies shell commands against the configured tool
// lifecycle and forbidden list, and guards planned actions.
package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Dicklesworthstone/harness/internal/config"
)

// ToolStatus is the lifecycle status of a command.
type ToolStatus int

const (
	Allowed ToolStatus = iota
	Observe
	Deprecated
	Disabled
)

func (s ToolStatus) String() string {
	switch s {
	case Allowed:
		return "allowed"
	case Observe:
		return "observe"
	case Deprecated:
		return "deprecated"
	case Disabled:
		return "disabled"
	default:
		return fmt.Sprintf("ToolStatus(%d)", int(s))
	}
}

// Source names the rule list a decision came from.
type Source string

const (
	SourceNone       Source = ""
	SourceDisabled   Source = "disabled"
	SourceDeprecated Source = "deprecated"
	SourceObserve    Source = "observe"
	SourceForbidden  Source = "forbidden"
)

// DefaultForbidden is always part of the forbidden list.
var DefaultForbidden = []string{
	"git push --force",
	"git reset --hard",
	"rm -rf",
	"sudo rm -rf",
}

// Rule is one entry of the ordered rule list.
type Rule struct {
	Pattern string
	Status  ToolStatus
	Source  Source
}

// Decision is the classification of a single command.
type Decision struct {
	Status ToolStatus
	// Rule is the matching pattern, empty when Allowed.
	Rule   string
	Source Source
	// Expanded is the command after whitespace normalization and alias expansion.
	Expanded string
}

// Engine classifies commands. It is immutable after New.
type Engine struct {
	rules   []Rule
	aliases map[string]string
}

// New builds an engine from configuration. A nil cfg uses defaults.
// Rules are evaluated in order: disabled, deprecated, observe, forbidden.
func New(cfg *config.Config) *Engine {
	cfg = cfg.OrDefault()
	e := &Engine{aliases: map[string]string{}}

	for alias, target := range cfg.Tools.Aliases {
		head := strings.ToLower(normalize(alias))
		if head != "" {
			e.aliases[head] = normalize(target)
		}
	}

	lc := cfg.Tools.Deprecated
	e.addRules(lc.Disabled, Disabled, SourceDisabled)
	e.addRules(lc.Deprecated, Deprecated, SourceDeprecated)
	e.addRules(lc.Observe, Observe, SourceObserve)
	e.addRules(cfg.Tools.Baseline.Forbidden, Disabled, SourceForbidden)
	e.addRules(DefaultForbidden, Disabled, SourceForbidden)
	return e
}

func (e *Engine) addRules(patterns []string, status ToolStatus, source Source) {
	for _, p := range patterns {
		p = normalize(p)
		if p == "" {
			continue
		}
		e.rules = append(e.rules, Rule{Pattern: p, Status: status, Source: source})
	}
}

// Rules returns a copy of the ordered rule list.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Stats returns the number of rules per status.
func (e *Engine) Stats() map[ToolStatus]int {
	stats := map[ToolStatus]int{}
	for _, r := range e.rules {
		stats[r.Status]++
	}
	return stats
}

// Classify returns the status of command. It is total: every input,
// including the empty string, yields a decision.
func (e *Engine) Classify(command string) Decision {
	expanded := e.Expand(command)
	d := Decision{Status: Allowed, Expanded: expanded}
	if expanded == "" {
		return d
	}
	tokens := tokenize(expanded)
	for _, r := range e.rules {
		if matches(tokens, tokenize(r.Pattern)) {
			d.Status = r.Status
			d.Rule = r.Pattern
			d.Source = r.Source
			return d
		}
	}
	return d
}

// Check returns the matching rule for command, or nil when it is allowed.
func (e *Engine) Check(command string) *Rule {
	d := e.Classify(command)
	if d.Status == Allowed {
		return nil
	}
	return &Rule{Pattern: d.Rule, Status: d.Status, Source: d.Source}
}

// IsBlocked reports whether command is disabled or forbidden.
func (e *Engine) IsBlocked(command string) bool {
	return e.Classify(command).Status == Disabled
}

// Expand normalizes whitespace and rewrites the head token through the alias
// map. Expansion is a single hop; alias targets are not expanded again.
func (e *Engine) Expand(command string) string {
	cmd := normalize(command)
	if cmd == "" {
		return ""
	}
	head, tail, _ := strings.Cut(cmd, " ")
	target, ok := e.aliases[strings.ToLower(head)]
	if !ok {
		return cmd
	}
	if tail == "" {
		return target
	}
	return normalize(target + " " + tail)
}

// matches reports whether either token list is a prefix of the other.
// A bare "rm" therefore matches the rule "rm -rf".
func matches(command, rule []string) bool {
	if len(command) == 0 || len(rule) == 0 {
		return false
	}
	return hasTokenPrefix(command, rule) || hasTokenPrefix(rule, command)
}

func hasTokenPrefix(tokens, prefix []string) bool {
	if len(tokens) < len(prefix) {
		return false
	}
	for i := range prefix {
		if tokens[i] != prefix[i] {
			return false
		}
	}
	return true
}

func tokenize(s string) []string {
	tokens := strings.Fields(s)
	if len(tokens) > 0 {
		tokens[0] = strings.ToLower(tokens[0])
	}
	return tokens
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// LifecycleState lists configured tools per deprecation stage.
type LifecycleState struct {
	Observe    []string
	Deprecated []string
	Disabled   []string
}

// Lifecycle returns the normalized, sorted lifecycle lists of cfg.
func Lifecycle(cfg *config.Config) LifecycleState {
	lc := cfg.OrDefault().Tools.Deprecated
	return LifecycleState{
		Observe:    sortedNames(lc.Observe),
		Deprecated: sortedNames(lc.Deprecated),
		Disabled:   sortedNames(lc.Disabled),
	}
}

// PendingPromotion returns disabled tools not yet in the forbidden baseline.
func PendingPromotion(cfg *config.Config) []string {
	if cfg == nil {
		return nil
	}
	forbidden := map[string]bool{}
	for _, f := range cfg.Tools.Baseline.Forbidden {
		forbidden[strings.ToLower(normalize(f))] = true
	}
	var pending []string
	for _, d := range sortedNames(cfg.Tools.Deprecated.Disabled) {
		if !forbidden[strings.ToLower(d)] {
			pending = append(pending, d)
		}
	}
	return pending
}

// Unpromotable returns pending disabled tools of the merged cfg that are not
// declared in the repository harness.toml. They come from the global or
// local layer, which apply never edits, so they stay pending until the user
// forbids them in that layer.
func Unpromotable(cfg *config.Config, repoDisabled []string) []string {
	declared := map[string]bool{}
	for _, d := range repoDisabled {
		declared[strings.ToLower(normalize(d))] = true
	}
	var out []string
	for _, p := range PendingPromotion(cfg) {
		if !declared[strings.ToLower(p)] {
			out = append(out, p)
		}
	}
	return out
}

func sortedNames(names []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range names {
		n = normalize(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
