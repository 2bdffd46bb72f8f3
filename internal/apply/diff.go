package apply

import (
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// writeDiff prints a line diff of c in a unified-like layout.
func writeDiff(w io.Writer, c Change) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(c.Before), string(c.After))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	fmt.Fprintf(w, "--- a/%s\n+++ b/%s\n", c.Path, c.Path)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprint(w, prefix, line)
			if !strings.HasSuffix(line, "\n") {
				fmt.Fprintln(w)
			}
		}
	}
}
