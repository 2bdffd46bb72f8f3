package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
)

func TestColorProfileNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	if p := ColorProfile(&buf); p != termenv.Ascii {
		t.Errorf("profile = %v, want Ascii", p)
	}
	f := New(&buf)
	if f.UseColor() {
		t.Error("buffer output should not use colour")
	}
	if got := f.Badge("blocking"); got != "[BLOCKING]" {
		t.Errorf("Badge = %q", got)
	}
	if TerminalWidth(&buf) != DefaultWidth {
		t.Error("non-terminal width should be the default")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 3, "hel"},
		{"hello", 0, ""},
		{"日本語テキスト", 7, "日本..."},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "ID", "IMPACT")
	tbl.AddRow("rec.context.index", "high")
	tbl.AddRow("rec.repo.scale", "low")
	tbl.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "  ID                 IMPACT" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "  -----------------  ------" {
		t.Errorf("separator = %q", lines[1])
	}
	if tbl.RowCount() != 2 {
		t.Errorf("RowCount = %d", tbl.RowCount())
	}
}

func TestTableMaxColumnWidth(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "NAME").WithMaxColumnWidth(6)
	tbl.AddRow("a-very-long-name")
	tbl.Render()
	if !strings.Contains(buf.String(), "a-v...") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWrap(t *testing.T) {
	got := Wrap("one two three four five six seven eight nine ten eleven twelve", 30, 4)
	for _, line := range strings.Split(got, "\n") {
		if !strings.HasPrefix(line, "    ") {
			t.Errorf("line %q is not indented", line)
		}
		if len(line) > 30 {
			t.Errorf("line %q exceeds width", line)
		}
	}
}

func TestCountStr(t *testing.T) {
	if got := CountStr(1, "file", "files"); got != "1 file" {
		t.Errorf("got %q", got)
	}
	if got := CountStr(3, "file", "files"); got != "3 files" {
		t.Errorf("got %q", got)
	}
}
