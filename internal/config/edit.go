package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Document is a decoded harness.toml that can be edited and re-encoded.
// Comments and key order are not preserved.
type Document map[string]any

// ReadDocument decodes the TOML file at path. A missing file yields an empty
// document and nil original bytes.
func ReadDocument(path string) (Document, []byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Document{}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	doc := Document{}
	if _, err := toml.Decode(string(data), (*map[string]any)(&doc)); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, data, nil
}

// Encode renders the document as TOML.
func (d Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(map[string]any(d)); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", FileName, err)
	}
	return buf.Bytes(), nil
}

// ForbidTools moves each name out of the read, write and extra tool lists and
// into tools.baseline.forbidden. It reports whether the document changed.
func (d Document) ForbidTools(names []string) bool {
	changed := false
	for _, path := range [][]string{
		{"tools", "baseline", "read"},
		{"tools", "baseline", "write"},
		{"tools", "specialized", "extra"},
	} {
		list, ok := d.list(path...)
		if !ok {
			continue
		}
		kept := list[:0:0]
		for _, tool := range list {
			if containsFold(names, tool) {
				changed = true
				continue
			}
			kept = append(kept, tool)
		}
		d.setList(kept, path...)
	}
	if len(d.addForbidden(names)) > 0 {
		changed = true
	}
	return changed
}

// PromoteDisabled adds every tools.deprecated.disabled entry to
// tools.baseline.forbidden and returns the names that were added.
func (d Document) PromoteDisabled() []string {
	disabled, _ := d.list("tools", "deprecated", "disabled")
	return d.addForbidden(disabled)
}

// PendingPromotion returns the tools.deprecated.disabled entries that
// PromoteDisabled would add, without changing the document.
func (d Document) PendingPromotion() []string {
	disabled, _ := d.list("tools", "deprecated", "disabled")
	forbidden, _ := d.list("tools", "baseline", "forbidden")
	var pending []string
	for _, name := range disabled {
		name = strings.TrimSpace(name)
		if name == "" || containsFold(forbidden, name) || containsFold(pending, name) {
			continue
		}
		pending = append(pending, name)
	}
	sort.Strings(pending)
	return pending
}

// Disabled returns the tools.deprecated.disabled entries of the document.
func (d Document) Disabled() []string {
	disabled, _ := d.list("tools", "deprecated", "disabled")
	return disabled
}

func (d Document) addForbidden(names []string) []string {
	forbidden, _ := d.list("tools", "baseline", "forbidden")
	var added []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || containsFold(forbidden, name) {
			continue
		}
		forbidden = append(forbidden, name)
		added = append(added, name)
	}
	if len(added) > 0 {
		d.setList(forbidden, "tools", "baseline", "forbidden")
	}
	sort.Strings(added)
	return added
}

// list returns the string array at the dotted path.
func (d Document) list(path ...string) ([]string, bool) {
	table := map[string]any(d)
	for _, key := range path[:len(path)-1] {
		next, ok := table[key].(map[string]any)
		if !ok {
			return nil, false
		}
		table = next
	}
	raw, ok := table[path[len(path)-1]]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}

func (d Document) setList(values []string, path ...string) {
	table := map[string]any(d)
	for _, key := range path[:len(path)-1] {
		next, ok := table[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			table[key] = next
		}
		table = next
	}
	if values == nil {
		values = []string{}
	}
	table[path[len(path)-1]] = values
}

func containsFold(list []string, name string) bool {
	name = strings.TrimSpace(name)
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), name) {
			return true
		}
	}
	return false
}
