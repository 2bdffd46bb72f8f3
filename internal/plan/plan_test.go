package plan

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Dicklesworthstone/harness/internal/errkind"
)

var now = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func TestWriteAndLoad(t *testing.T) {
	root := t.TempDir()
	path, err := Write(root, []string{"rec.context.index"}, "1.2.3", now)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := filepath.Base(path); got != "plan-20260304T050607Z.json" {
		t.Errorf("name = %s", got)
	}

	second, err := Write(root, nil, "1.2.3", now)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if second == path {
		t.Error("second plan overwrote the first")
	}

	f, err := Load(root, filepath.Base(path), "1.2.3")
	if err != nil {
		t.Fatalf("Load bare name: %v", err)
	}
	if !reflect.DeepEqual(f.Recommendations, []string{"rec.context.index"}) {
		t.Errorf("recommendations = %v", f.Recommendations)
	}
	if f.GeneratedAt != "2026-03-04T05:06:07Z" {
		t.Errorf("generated_at = %s", f.GeneratedAt)
	}

	if _, err := Load(root, filepath.Join(".harness", "plans", filepath.Base(path)), "1.2.3"); err != nil {
		t.Errorf("Load relative path: %v", err)
	}
}

func TestLoadRejects(t *testing.T) {
	root := t.TempDir()
	dir := Dir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("bad.json", "{not json")
	write("old.json", `{"version":"0.9.0","recommendations":[]}`)
	write("nover.json", `{"recommendations":[]}`)
	if err := os.WriteFile(filepath.Join(root, "outside.json"), []byte(`{"version":"1.0.0"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		path string
	}{
		{"parent segment", "../plan.json"},
		{"nested parent segment", ".harness/plans/../../outside.json"},
		{"absolute", filepath.Join(root, "outside.json")},
		{"outside plans dir", "./outside.json"},
		{"relative outside plans dir", "docs/outside.json"},
		{"missing", "nope.json"},
		{"malformed", "bad.json"},
		{"version mismatch", "old.json"},
		{"no version", "nover.json"},
		{"empty", " "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(root, tc.path, "1.0.0")
			if !errors.Is(err, &errkind.Error{Kind: errkind.PlanInvalid}) {
				t.Fatalf("Load(%q) = %v, want PlanInvalid", tc.path, err)
			}
		})
	}
}

func TestResolvePathSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	dir := Dir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(root, "secret.json")
	if err := os.WriteFile(target, []byte(`{"version":"1"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(dir, "link.json")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if _, err := ResolvePath(root, "link.json"); errkind.KindOf(err) != errkind.PlanInvalid {
		t.Errorf("symlink escape = %v, want PlanInvalid", err)
	}
}
