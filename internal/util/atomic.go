package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriteFile writes data to a file atomically by writing to a temp file
// and then renaming it. The file is either fully written or not updated at all.
// Missing parent directories are created.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	tmp, err := stageFile(filename, data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// FileWrite is one target of AtomicWriteFiles.
type FileWrite struct {
	Path string
	Data []byte
}

// AtomicWriteFiles stages every file in a temp file next to its target and
// renames them into place only after all of them were written. A failure
// while staging leaves every target untouched.
func AtomicWriteFiles(files []FileWrite, perm os.FileMode) error {
	staged := make([]string, 0, len(files))
	cleanup := func(from int) {
		for _, tmp := range staged[from:] {
			os.Remove(tmp)
		}
	}
	for _, f := range files {
		tmp, err := stageFile(f.Path, f.Data, perm)
		if err != nil {
			cleanup(0)
			return fmt.Errorf("staging %s: %w", f.Path, err)
		}
		staged = append(staged, tmp)
	}
	for i, f := range files {
		if err := os.Rename(staged[i], f.Path); err != nil {
			cleanup(i)
			return fmt.Errorf("renaming temp file for %s: %w", f.Path, err)
		}
	}
	return nil
}

// stageFile writes data to a synced temp file in the target's directory and
// returns its name.
func stageFile(filename string, data []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(filename)
	if err := EnsureDir(dir); err != nil {
		return "", fmt.Errorf("creating parent directory: %w", err)
	}

	// Same directory keeps the rename on one filesystem
	tmpFile, err := os.CreateTemp(dir, ".harness-atomic-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	name := tmpFile.Name()
	fail := func(format string, err error) (string, error) {
		tmpFile.Close()
		os.Remove(name)
		return "", fmt.Errorf(format, err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		return fail("writing to temp file: %w", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		return fail("chmod temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fail("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return name, nil
}
