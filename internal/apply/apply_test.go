package apply

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Dicklesworthstone/harness/internal/config"
	"github.com/Dicklesworthstone/harness/internal/errkind"
	"github.com/Dicklesworthstone/harness/internal/git"
	"github.com/Dicklesworthstone/harness/internal/plan"
	"github.com/Dicklesworthstone/harness/internal/recommend"
	"github.com/Dicklesworthstone/harness/internal/util"
)

const testVersion = "0.1.0"

var fixedNow = time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

// initRepo creates a committed git repository holding files, or skips.
func initRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	if !git.Available() {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	for _, args := range [][]string{
		{"init", "-q"},
		{"add", "-A"},
		{"-c", "user.email=test@example.com", "-c", "user.name=test", "commit", "-q", "--allow-empty", "-m", "init"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Skipf("git %v failed, skipping test: %v\n%s", args, err, out)
		}
	}
	return dir
}

func loadConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	loaded, err := config.LoadWithGlobal(root, filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return loaded.Config
}

func run(t *testing.T, opts Options, cfg *config.Config, c Confirmer) (*Result, string, error) {
	t.Helper()
	if opts.Version == "" {
		opts.Version = testVersion
	}
	opts.Now = func() time.Time { return fixedNow }
	var out bytes.Buffer
	res, err := New(opts, cfg, c, &out).Run(context.Background())
	return res, out.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func rollbackCount(t *testing.T, root string) int {
	t.Helper()
	entries, err := os.ReadDir(util.HarnessDir(root, util.RollbackDir))
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

const disabledNC = `[tools.baseline]
read = ["cat", "rg"]
write = ["git"]

[tools.deprecated]
disabled = ["nc"]
`

func forbidden(t *testing.T, root string) []string {
	t.Helper()
	var cfg config.Config
	if _, err := toml.DecodeFile(config.RepoPath(root), &cfg); err != nil {
		t.Fatal(err)
	}
	return cfg.Tools.Baseline.Forbidden
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type fileState struct {
	content string
	modTime time.Time
}

// snapshotTree records content and mtime of every file under root outside .git.
func snapshotTree(t *testing.T, root string) map[string]fileState {
	t.Helper()
	files := map[string]fileState{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		files[filepath.ToSlash(rel)] = fileState{content: string(data), modTime: info.ModTime()}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return files
}

func TestPreviewWritesNothing(t *testing.T) {
	root := initRepo(t, map[string]string{
		config.FileName:      disabledNC,
		"README.md":          "# Project\n",
		"docs/guide.md":      "guide\n",
		"scripts/check.sh":   "#!/bin/sh\n",
		".harness/keep.json": "{}\n",
	})
	cfg := loadConfig(t, root)
	before := snapshotTree(t, root)

	res, out, err := run(t, Options{Root: root, Mode: ModePreview, PlanAll: true, ShowDiff: true}, cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	after := snapshotTree(t, root)
	if len(after) != len(before) {
		t.Errorf("preview changed the file set: %d files before, %d after", len(before), len(after))
	}
	for rel, want := range before {
		got, ok := after[rel]
		switch {
		case !ok:
			t.Errorf("%s removed in preview", rel)
		case got.content != want.content:
			t.Errorf("%s content changed in preview:\n%s", rel, got.content)
		case !got.modTime.Equal(want.modTime):
			t.Errorf("%s mtime changed in preview", rel)
		}
	}
	for rel := range after {
		if _, ok := before[rel]; !ok {
			t.Errorf("%s created in preview", rel)
		}
	}
	if rollbackCount(t, root) != 0 {
		t.Error("preview wrote a rollback manifest")
	}
	if res.Manifest == nil || res.ManifestPath != "" {
		t.Errorf("preview manifest = %+v path %q", res.Manifest, res.ManifestPath)
	}
	for _, want := range []string{
		"scope: create=3 modify=1 delete=0",
		"create: AGENTS.md",
		"modify: harness.toml",
		"+++ b/harness.toml",
		"preview: no files were written",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestContextIndexStaysInsideRoot(t *testing.T) {
	t.Run("config rejects escaping index", func(t *testing.T) {
		root := initRepo(t, map[string]string{config.FileName: "[context]\ncontext_index = \"../escaped.md\"\n"})
		_, err := config.LoadWithGlobal(root, filepath.Join(t.TempDir(), "absent.toml"))
		if errkind.KindOf(err) != errkind.ConfigInvalid {
			t.Fatalf("err = %v, want ConfigInvalid", err)
		}
	})

	t.Run("apply ignores configured paths", func(t *testing.T) {
		root := initRepo(t, nil)
		cfg := config.Default()
		cfg.Context.ContextIndex = "../escaped-index.md"
		cfg.Context.AgentsMap = "../escaped.md"

		res, _, err := run(t, Options{Root: root, Mode: ModeApply, PlanAll: true, Yes: true}, cfg, NonInteractive{Answer: true})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		for _, c := range res.Changes {
			if err := config.CheckRepoPath(c.Path); err != nil {
				t.Errorf("change path %q: %v", c.Path, err)
			}
		}
		for _, name := range []string{"escaped-index.md", "escaped.md"} {
			if util.FileExists(filepath.Join(filepath.Dir(root), name)) {
				t.Errorf("apply wrote %s outside the repository root", name)
			}
		}
		if !util.FileExists(filepath.Join(root, "docs", "context", "INDEX.md")) {
			t.Error("docs/context/INDEX.md not written")
		}
	})

	t.Run("builder refuses escaping path", func(t *testing.T) {
		root := t.TempDir()
		b := newBuilder(root, nil)
		err := b.put("../escaped.md", []byte("x"))
		if errkind.KindOf(err) != errkind.PlanInvalid {
			t.Fatalf("err = %v, want PlanInvalid", err)
		}
		if len(b.changes) != 0 {
			t.Errorf("changes = %+v", b.changes)
		}
	})
}

func TestApplyPromotesDisabled(t *testing.T) {
	root := initRepo(t, map[string]string{config.FileName: disabledNC})
	cfg := loadConfig(t, root)

	res, out, err := run(t, Options{Root: root, Mode: ModeApply, PlanAll: true, Yes: true}, cfg, NonInteractive{Answer: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := forbidden(t, root); !contains(got, "nc") {
		t.Errorf("forbidden = %v, want nc", got)
	}
	if res.Written != 4 {
		t.Errorf("written = %d, want 4", res.Written)
	}
	if !strings.Contains(out, "apply complete: wrote 4 file(s)") {
		t.Errorf("output:\n%s", out)
	}
	if got := readFile(t, filepath.Join(root, "docs", "context", "INDEX.md")); got != "# Generated by harness\n# Context Index\n\n- AGENTS.md\n" {
		t.Errorf("INDEX.md = %q", got)
	}
	if changes := res.Changes; changes[len(changes)-1].Path != config.FileName {
		t.Errorf("config edit should be last, got %s", changes[len(changes)-1].Path)
	}

	// Promotion is idempotent
	res, _, err = run(t, Options{Root: root, Mode: ModeApply, PlanAll: true, Yes: true, AllowDirty: true}, loadConfig(t, root), NonInteractive{Answer: true})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !res.NoOp {
		t.Errorf("second run changes = %+v", res.Changes)
	}
}

func TestRollbackManifestHashes(t *testing.T) {
	agents := "# Agents\n\nExisting notes.\n"
	root := initRepo(t, map[string]string{"AGENTS.md": agents})
	planPath, err := plan.Write(root, []string{recommend.IDContextIndex}, testVersion, fixedNow)
	if err != nil {
		t.Fatal(err)
	}

	res, _, err := run(t, Options{Root: root, Mode: ModeApply, PlanFile: filepath.Base(planPath), Yes: true}, nil, NonInteractive{Answer: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var m Manifest
	if err := json.Unmarshal([]byte(readFile(t, res.ManifestPath)), &m); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if m.HarnessVersion != testVersion || m.Timestamp != "2026-05-06T07:08:09Z" {
		t.Errorf("manifest header = %+v", m)
	}
	if filepath.Base(res.ManifestPath) != "20260506T070809Z.json" {
		t.Errorf("manifest name = %s", res.ManifestPath)
	}
	byPath := map[string]ManifestEntry{}
	for _, f := range m.Files {
		byPath[f.Path] = f
	}
	if e := byPath["AGENTS.md"]; e.SHA256 == nil || *e.SHA256 != util.HashBytes([]byte(agents)) || e.Action != ActionModify {
		t.Errorf("AGENTS.md entry = %+v", e)
	}
	if e := byPath["docs/context/INDEX.md"]; e.SHA256 != nil || e.Action != ActionCreate {
		t.Errorf("INDEX.md entry = %+v", e)
	}
	if got := readFile(t, filepath.Join(root, "AGENTS.md")); got != agents+"- Context index: docs/context/INDEX.md\n" {
		t.Errorf("AGENTS.md = %q", got)
	}
}

func TestRunRejects(t *testing.T) {
	root := initRepo(t, map[string]string{"README.md": "hi\n"})
	outside := filepath.Join(filepath.Dir(root), "plan.json")
	if err := os.WriteFile(outside, []byte(`{"version":"0.1.0","recommendations":[]}`), 0644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		opts Options
		want errkind.Kind
	}{
		{"both selectors", Options{PlanAll: true, PlanFile: "plan.json"}, errkind.SelectorMisuse},
		{"no selector", Options{}, errkind.SelectorMisuse},
		{"parent traversal", Options{PlanFile: "../plan.json"}, errkind.PlanInvalid},
		{"missing plan", Options{PlanFile: "absent.json"}, errkind.PlanInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.opts.Root = root
			tc.opts.Mode = ModeApply
			_, _, err := run(t, tc.opts, nil, NonInteractive{Answer: true})
			if errkind.KindOf(err) != tc.want {
				t.Fatalf("err = %v, want %s", err, tc.want)
			}
			if errkind.ExitCode(err) != errkind.ExitRuntime {
				t.Errorf("exit = %d", errkind.ExitCode(err))
			}
			if rollbackCount(t, root) != 0 {
				t.Error("rollback manifest written on failure")
			}
		})
	}
}

func TestPlanVersionMismatch(t *testing.T) {
	root := initRepo(t, nil)
	p, err := plan.Write(root, []string{recommend.IDRepoScale}, "9.9.9", fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = run(t, Options{Root: root, Mode: ModeApply, PlanFile: filepath.Base(p)}, nil, nil)
	if !errors.Is(err, &errkind.Error{Kind: errkind.PlanInvalid}) {
		t.Errorf("err = %v, want PlanInvalid", err)
	}
}

func TestDirtyTree(t *testing.T) {
	root := initRepo(t, map[string]string{"README.md": "hi\n"})
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("changed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// Harness state is ignored by the clean check
	if err := util.EnsureDir(util.HarnessDir(root, "scratch")); err != nil {
		t.Fatal(err)
	}

	_, _, err := run(t, Options{Root: root, Mode: ModePreview, PlanAll: true}, nil, nil)
	if errkind.KindOf(err) != errkind.WorkingTreeDirty {
		t.Fatalf("err = %v, want WorkingTreeDirty", err)
	}
	if !strings.Contains(err.Error(), "--allow-dirty") {
		t.Errorf("message = %q", err.Error())
	}

	if _, _, err := run(t, Options{Root: root, Mode: ModePreview, PlanAll: true, AllowDirty: true}, nil, nil); err != nil {
		t.Errorf("allow-dirty: %v", err)
	}
}

func TestNotGitRepo(t *testing.T) {
	if !git.Available() {
		t.Skip("git not available")
	}
	root := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(root))
	_, _, err := run(t, Options{Root: root, Mode: ModePreview, PlanAll: true}, nil, nil)
	if errkind.KindOf(err) != errkind.NotGitRepo {
		t.Errorf("err = %v, want NotGitRepo", err)
	}
}

func TestForbiddenStatusCommand(t *testing.T) {
	root := initRepo(t, nil)
	cfg := config.Default()
	cfg.Tools.Deprecated.Disabled = []string{"git status"}
	_, _, err := run(t, Options{Root: root, Mode: ModePreview, PlanAll: true}, cfg, nil)
	if errkind.KindOf(err) != errkind.ForbiddenToolAccess {
		t.Errorf("err = %v, want ForbiddenToolAccess", err)
	}
}

func TestDeprecatedToolStillApplies(t *testing.T) {
	root := initRepo(t, map[string]string{config.FileName: `[tools.baseline]
read = ["cat", "grep"]

[tools.deprecated]
deprecated = ["grep"]
`})
	cfg := loadConfig(t, root)
	res, _, err := run(t, Options{Root: root, Mode: ModeApply, PlanAll: true, Yes: true}, cfg, NonInteractive{Answer: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Written == 0 {
		t.Error("expected files to be written")
	}
}

func TestConfirmationGate(t *testing.T) {
	const destructive = `[tools.baseline]
read = ["cat", "rm"]
`
	setup := func(t *testing.T) (string, string) {
		root := initRepo(t, map[string]string{config.FileName: destructive})
		p, err := plan.Write(root, []string{recommend.IDToolsDestructive}, testVersion, fixedNow)
		if err != nil {
			t.Fatal(err)
		}
		return root, filepath.Base(p)
	}

	t.Run("high risk needs a human", func(t *testing.T) {
		root, p := setup(t)
		_, _, err := run(t, Options{Root: root, Mode: ModeApply, PlanFile: p, Yes: true}, loadConfig(t, root), NonInteractive{Answer: true})
		if errkind.KindOf(err) != errkind.ConfirmationRequired {
			t.Fatalf("err = %v, want ConfirmationRequired", err)
		}
		if got := readFile(t, config.RepoPath(root)); got != destructive {
			t.Errorf("harness.toml changed: %q", got)
		}
	})

	t.Run("declined", func(t *testing.T) {
		root, p := setup(t)
		var prompt bytes.Buffer
		res, out, err := run(t, Options{Root: root, Mode: ModeApply, PlanFile: p, Yes: true}, loadConfig(t, root),
			Interactive{In: strings.NewReader("n\n"), Out: &prompt})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !res.Cancelled || !strings.Contains(out, "apply cancelled") {
			t.Errorf("cancelled = %v, out:\n%s", res.Cancelled, out)
		}
		if prompt.String() != ConfirmPrompt {
			t.Errorf("prompt = %q", prompt.String())
		}
		if got := readFile(t, config.RepoPath(root)); got != destructive {
			t.Errorf("harness.toml changed: %q", got)
		}
	})

	t.Run("accepted", func(t *testing.T) {
		root, p := setup(t)
		_, _, err := run(t, Options{Root: root, Mode: ModeApply, PlanFile: p}, loadConfig(t, root),
			Interactive{In: strings.NewReader("yes\n")})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		var cfg config.Config
		if _, err := toml.DecodeFile(config.RepoPath(root), &cfg); err != nil {
			t.Fatal(err)
		}
		if contains(cfg.Tools.Baseline.Read, "rm") || !contains(cfg.Tools.Baseline.Forbidden, "rm") {
			t.Errorf("tools = %+v", cfg.Tools.Baseline)
		}
	})
}

func TestModifiedAfterManifest(t *testing.T) {
	root := initRepo(t, map[string]string{"AGENTS.md": "# Agents\n"})
	p, err := plan.Write(root, []string{recommend.IDContextIndex}, testVersion, fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, "AGENTS.md")
	c := confirmFunc(func() {
		if err := os.WriteFile(path, []byte("# Agents\nedited\n"), 0644); err != nil {
			t.Fatal(err)
		}
	})
	_, _, err = run(t, Options{Root: root, Mode: ModeApply, PlanFile: filepath.Base(p)}, nil, c)
	if errkind.KindOf(err) != errkind.WorkingTreeDirty {
		t.Fatalf("err = %v, want WorkingTreeDirty", err)
	}
	if got := readFile(t, path); got != "# Agents\nedited\n" {
		t.Errorf("AGENTS.md overwritten: %q", got)
	}
}

// confirmFunc accepts after running a side effect.
type confirmFunc func()

func (f confirmFunc) Confirm(string) (bool, error) { f(); return true, nil }
func (confirmFunc) Interactive() bool              { return true }

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("Apply"); err != nil || m != ModeApply {
		t.Errorf("ParseMode = %v, %v", m, err)
	}
	if _, err := ParseMode("dry"); err == nil {
		t.Error("expected error")
	}
}
