package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StampLayout is the compact UTC timestamp used in artifact file names.
const StampLayout = "20060102T150405Z"

// Stamp formats t in UTC using StampLayout.
func Stamp(t time.Time) string {
	return t.UTC().Format(StampLayout)
}

// UniquePath returns dir/<prefix><stamp><ext>, appending -1, -2, ... when a
// file with that name already exists.
func UniquePath(dir, prefix, ext string, t time.Time) string {
	base := prefix + Stamp(t)
	candidate := filepath.Join(dir, base+ext)
	for i := 1; ; i++ {
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, i, ext))
	}
}

// HashBytes returns the hex sha256 digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the hex sha256 digest of the file at path.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}
