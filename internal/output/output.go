// Package output renders user-facing terminal text: styled severity badges,
// aligned tables and wrapped paragraphs. Colour is only emitted when the
// destination is a terminal and NO_COLOR is unset.
package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DefaultWidth is used when the terminal width cannot be determined.
const DefaultWidth = 80

// Formatter writes styled text to a writer.
type Formatter struct {
	writer   io.Writer
	useColor bool
	styles   Styles
}

// Styles are the lipgloss styles used for terminal output.
type Styles struct {
	Title    lipgloss.Style
	Blocking lipgloss.Style
	Warning  lipgloss.Style
	Info     lipgloss.Style
	OK       lipgloss.Style
	Muted    lipgloss.Style
}

// New creates a Formatter for w, choosing the colour profile from the
// environment.
func New(w io.Writer) *Formatter {
	profile := ColorProfile(w)
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)
	return &Formatter{
		writer:   w,
		useColor: profile != termenv.Ascii,
		styles:   newStyles(r),
	}
}

func newStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:    r.NewStyle().Bold(true),
		Blocking: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning:  r.NewStyle().Foreground(lipgloss.Color("11")),
		Info:     r.NewStyle().Foreground(lipgloss.Color("12")),
		OK:       r.NewStyle().Foreground(lipgloss.Color("10")),
		Muted:    r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Writer returns the underlying writer.
func (f *Formatter) Writer() io.Writer { return f.writer }

// UseColor reports whether styles emit escape sequences.
func (f *Formatter) UseColor() bool { return f.useColor }

// Styles returns the formatter's styles.
func (f *Formatter) Styles() Styles { return f.styles }

// Width returns the terminal width of the writer, or DefaultWidth.
func (f *Formatter) Width() int { return TerminalWidth(f.writer) }

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// ColorProfile returns Ascii for non-terminals and when NO_COLOR is set,
// otherwise the profile the terminal advertises.
func ColorProfile(w io.Writer) termenv.Profile {
	if os.Getenv("NO_COLOR") != "" || !IsTerminal(w) {
		return termenv.Ascii
	}
	return termenv.NewOutput(w).EnvColorProfile()
}

// TerminalWidth returns the column count of w, or DefaultWidth.
func TerminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok {
		return DefaultWidth
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}
