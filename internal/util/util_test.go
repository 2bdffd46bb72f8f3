package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")

	if err := AtomicWriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile overwrite: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestAtomicWriteFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "sub", "b.txt")
	if err := os.WriteFile(a, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := AtomicWriteFiles([]FileWrite{{Path: a, Data: []byte("new a")}, {Path: b, Data: []byte("new b")}}, 0644); err != nil {
		t.Fatalf("AtomicWriteFiles: %v", err)
	}
	for path, want := range map[string]string{a: "new a", b: "new b"} {
		got, err := os.ReadFile(path)
		if err != nil || string(got) != want {
			t.Errorf("%s = %q, %v; want %q", path, got, err, want)
		}
	}
}

func TestAtomicWriteFilesStagingFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(a, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	// A regular file where a parent directory is needed makes staging fail.
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	err := AtomicWriteFiles([]FileWrite{
		{Path: a, Data: []byte("new")},
		{Path: filepath.Join(blocker, "b.txt"), Data: []byte("b")},
	}, 0644)
	if err == nil {
		t.Fatal("expected staging error")
	}
	got, _ := os.ReadFile(a)
	if string(got) != "old" {
		t.Errorf("a.txt = %q, want untouched", got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("leftover temp files: %d entries", len(entries))
	}
}

func TestStamp(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("x", 3600))
	if got := Stamp(ts); got != "20260304T040607Z" {
		t.Errorf("Stamp = %q", got)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	first := UniquePath(dir, "plan-", ".json", ts)
	if filepath.Base(first) != "plan-20260102T030405Z.json" {
		t.Fatalf("first = %s", first)
	}
	if err := os.WriteFile(first, nil, 0644); err != nil {
		t.Fatal(err)
	}

	second := UniquePath(dir, "plan-", ".json", ts)
	if filepath.Base(second) != "plan-20260102T030405Z-1.json" {
		t.Errorf("second = %s", second)
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("HashFile = %s, want %s", got, want)
	}
}

func TestHarnessDir(t *testing.T) {
	got := HarnessDir("/repo", PlansDir)
	if got != filepath.Join("/repo", ".harness", "plans") {
		t.Errorf("HarnessDir = %s", got)
	}
}
