package apply

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Dicklesworthstone/harness/internal/config"
	"github.com/Dicklesworthstone/harness/internal/errkind"
	"github.com/Dicklesworthstone/harness/internal/policy"
	"github.com/Dicklesworthstone/harness/internal/recommend"
	"github.com/Dicklesworthstone/harness/internal/scan"
)

// Action is what a change does to its file.
type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
)

// Change is one planned file write. Path is slash separated and relative to
// the repository root.
type Change struct {
	Path   string
	Action Action
	Before []byte
	After  []byte
}

const generatedHeader = "# Generated by harness\n"

// IndexDoc renders a generated context index listing entries.
func IndexDoc(entries ...string) []byte {
	var b strings.Builder
	b.WriteString(generatedHeader + "# Context Index\n\n")
	for _, e := range entries {
		b.WriteString("- " + e + "\n")
	}
	return []byte(b.String())
}

// AgentsDoc renders a generated AGENTS.md linking the context index.
func AgentsDoc(index string) []byte {
	return []byte(generatedHeader + "# Agents\n\n" + indexLink(index) + "\n")
}

func indexLink(index string) string {
	return "- Context index: " + index
}

var architectureContent = []byte(generatedHeader + "# Architecture\n\n## Overview\n\nTBD.\n")

// builder collects changes for one run, keyed by path so a file is touched
// at most once.
type builder struct {
	root    string
	cfg     *config.Config
	changes []Change
	index   map[string]int

	doc      config.Document
	original []byte
	docDirty bool
}

func newBuilder(root string, cfg *config.Config) *builder {
	return &builder{root: root, cfg: cfg, index: map[string]int{}}
}

func (b *builder) abs(rel string) string {
	return filepath.Join(b.root, filepath.FromSlash(rel))
}

// current returns the content a later builder should see for rel, including
// earlier planned changes.
func (b *builder) current(rel string) ([]byte, bool, error) {
	if i, ok := b.index[rel]; ok {
		return b.changes[i].After, true, nil
	}
	data, err := os.ReadFile(b.abs(rel))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (b *builder) put(rel string, after []byte) error {
	if err := config.CheckRepoPath(rel); err != nil {
		return errkind.Wrap(errkind.PlanInvalid, err, "refusing to write %s", rel)
	}
	if i, ok := b.index[rel]; ok {
		b.changes[i].After = after
		return nil
	}
	before, err := os.ReadFile(b.abs(rel))
	switch {
	case os.IsNotExist(err):
		b.index[rel] = len(b.changes)
		b.changes = append(b.changes, Change{Path: rel, Action: ActionCreate, After: after})
	case err != nil:
		return err
	default:
		if bytes.Equal(before, after) {
			return nil
		}
		b.index[rel] = len(b.changes)
		b.changes = append(b.changes, Change{Path: rel, Action: ActionModify, Before: before, After: after})
	}
	return nil
}

// add applies the file changes of one recommendation.
func (b *builder) add(rec recommend.Recommendation) error {
	switch rec.ID {
	case recommend.IDContextIndex:
		return b.contextIndex(scan.AgentsFile, scan.ContextIndexFile)
	case recommend.IDRepoScale:
		for _, rel := range []string{scan.ArchitectureFile, scan.DocsArchitecture} {
			if _, ok, err := b.current(rel); err != nil || ok {
				return err
			}
		}
		return b.put(scan.ArchitectureFile, architectureContent)
	case recommend.IDToolsDestructive:
		names := scan.DetectTools(b.cfg).Destructive
		if len(names) == 0 {
			return nil
		}
		doc, err := b.document()
		if err != nil || doc == nil {
			return err
		}
		if doc.ForbidTools(names) {
			b.docDirty = true
		}
	case recommend.IDVerificationGate, recommend.IDToolsPrune:
		slog.Debug("advisory recommendation has no file changes", "component", "apply", "rule", rec.ID)
	default:
		slog.Warn("unknown recommendation id", "component", "apply", "rule", rec.ID)
	}
	return nil
}

func (b *builder) contextIndex(agents, index string) error {
	if _, ok, err := b.current(index); err != nil {
		return err
	} else if !ok {
		if err := b.put(index, IndexDoc(agents)); err != nil {
			return err
		}
	}

	data, ok, err := b.current(agents)
	if err != nil {
		return err
	}
	if !ok {
		return b.put(agents, AgentsDoc(index))
	}
	if strings.Contains(string(data), index) {
		return nil
	}
	text := string(data)
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return b.put(agents, []byte(text+indexLink(index)+"\n"))
}

// promote adds every disabled tool to the forbidden baseline.
func (b *builder) promote() error {
	doc, err := b.document()
	if err != nil || doc == nil {
		return err
	}
	if other := policy.Unpromotable(b.cfg, doc.Disabled()); len(other) > 0 {
		slog.Warn("disabled tools outside harness.toml are not promoted", "component", "apply", "tools", strings.Join(other, ","))
	}
	if added := doc.PromoteDisabled(); len(added) > 0 {
		slog.Info("promoting disabled tools", "component", "apply", "count", len(added))
		b.docDirty = true
	}
	return nil
}

// document lazily decodes harness.toml. It is nil when the repository has no
// configuration file.
func (b *builder) document() (config.Document, error) {
	if b.doc != nil {
		return b.doc, nil
	}
	doc, original, err := config.ReadDocument(config.RepoPath(b.root))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", config.FileName, err)
	}
	if original == nil {
		return nil, nil
	}
	b.doc, b.original = doc, original
	return doc, nil
}

// finish appends the merged config edit and returns every change.
func (b *builder) finish() ([]Change, error) {
	if b.docDirty {
		data, err := b.doc.Encode()
		if err != nil {
			return nil, err
		}
		if err := b.put(config.FileName, data); err != nil {
			return nil, err
		}
	}
	return b.changes, nil
}

// Count returns the number of changes per action.
func Count(changes []Change) map[Action]int {
	counts := map[Action]int{}
	for _, c := range changes {
		counts[c.Action]++
	}
	return counts
}
