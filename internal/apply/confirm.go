package apply

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ConfirmPrompt is shown before an apply run writes anything.
const ConfirmPrompt = "Apply these changes? [y/N]: "

// Confirmer decides whether a pending apply may proceed.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
	// Interactive reports whether a human is answering.
	Interactive() bool
}

// Interactive reads one answer line from In after writing the prompt to Out.
type Interactive struct {
	In  io.Reader
	Out io.Writer
}

func (c Interactive) Confirm(prompt string) (bool, error) {
	if c.Out != nil {
		fmt.Fprint(c.Out, prompt)
	}
	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (Interactive) Interactive() bool { return true }

// NonInteractive answers every prompt with Answer.
type NonInteractive struct {
	Answer bool
}

func (c NonInteractive) Confirm(string) (bool, error) { return c.Answer, nil }

func (NonInteractive) Interactive() bool { return false }
