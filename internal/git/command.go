package git

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// MaxOutputBytes limits the size of git command output to prevent OOM.
const MaxOutputBytes = 10 * 1024 * 1024

// DefaultTimeout bounds every git invocation.
const DefaultTimeout = 30 * time.Second

// Run runs git with args inside dir and returns its stdout.
func Run(ctx context.Context, dir string, args ...string) (string, error) {
	allArgs := append([]string{"-C", dir}, args...)
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", allArgs...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("creating stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("starting git %s: %w", strings.Join(args, " "), err)
	}

	// Read one byte past the limit to detect truncation
	data, err := io.ReadAll(io.LimitReader(stdoutPipe, MaxOutputBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading git output: %w", err)
	}

	if len(data) > MaxOutputBytes {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return "", fmt.Errorf("git output exceeded limit of %d bytes", MaxOutputBytes)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("git %s timed out", strings.Join(args, " "))
		}
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	return string(data), nil
}

// Available reports whether a git binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}
