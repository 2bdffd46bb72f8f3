// Package tui holds the interactive terminal views of harness.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/harness/internal/recommend"
)

// PickerKeys are the key bindings of the recommendation picker.
type PickerKeys struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	All     key.Binding
	Confirm key.Binding
	Quit    key.Binding
}

// DefaultPickerKeys returns the standard bindings.
func DefaultPickerKeys() PickerKeys {
	return PickerKeys{
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "prev")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "next")),
		Toggle:  key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
		All:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all/none")),
		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "export")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "cancel")),
	}
}

// Picker is a bubbletea model for choosing the recommendations of a plan.
type Picker struct {
	recs      []recommend.Recommendation
	selected  []bool
	cursor    int
	keys      PickerKeys
	done      bool
	cancelled bool

	cursorStyle lipgloss.Style
	riskStyle   map[recommend.Risk]lipgloss.Style
	helpStyle   lipgloss.Style
}

// NewPicker creates a picker with every Safe recommendation preselected.
func NewPicker(recs []recommend.Recommendation) *Picker {
	p := &Picker{
		recs:        recs,
		selected:    make([]bool, len(recs)),
		keys:        DefaultPickerKeys(),
		cursorStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true),
		riskStyle: map[recommend.Risk]lipgloss.Style{
			recommend.RiskSafe:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			recommend.RiskMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			recommend.RiskHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		},
		helpStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
	for i, r := range recs {
		p.selected[i] = r.Risk == recommend.RiskSafe
	}
	return p
}

// Init implements tea.Model.
func (p *Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p *Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch {
	case key.Matches(km, p.keys.Quit):
		p.cancelled = true
		return p, tea.Quit
	case key.Matches(km, p.keys.Confirm):
		p.done = true
		return p, tea.Quit
	case key.Matches(km, p.keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(km, p.keys.Down):
		if p.cursor < len(p.recs)-1 {
			p.cursor++
		}
	case key.Matches(km, p.keys.Toggle):
		if p.cursor < len(p.selected) {
			p.selected[p.cursor] = !p.selected[p.cursor]
		}
	case key.Matches(km, p.keys.All):
		all := !p.allSelected()
		for i := range p.selected {
			p.selected[i] = all
		}
	}
	return p, nil
}

func (p *Picker) allSelected() bool {
	for _, s := range p.selected {
		if !s {
			return false
		}
	}
	return true
}

// View implements tea.Model.
func (p *Picker) View() string {
	if p.done || p.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString("Select recommendations for the plan:\n\n")
	for i, r := range p.recs {
		cursor := "  "
		if i == p.cursor {
			cursor = p.cursorStyle.Render("> ")
		}
		box := "[ ]"
		if p.selected[i] {
			box = "[x]"
		}
		risk := p.riskStyle[r.Risk].Render(r.Risk.String())
		fmt.Fprintf(&b, "%s%s %s  %s (%s)\n", cursor, box, r.ID, r.Title, risk)
	}
	b.WriteString("\n")
	help := make([]string, 0, 6)
	for _, k := range []key.Binding{p.keys.Up, p.keys.Down, p.keys.Toggle, p.keys.All, p.keys.Confirm, p.keys.Quit} {
		help = append(help, k.Help().Key+" "+k.Help().Desc)
	}
	b.WriteString(p.helpStyle.Render(strings.Join(help, " • ")))
	b.WriteString("\n")
	return b.String()
}

// Selected returns the chosen recommendations in list order. It is empty
// when the picker was cancelled.
func (p *Picker) Selected() []recommend.Recommendation {
	if p.cancelled {
		return nil
	}
	var out []recommend.Recommendation
	for i, r := range p.recs {
		if p.selected[i] {
			out = append(out, r)
		}
	}
	return out
}

// Cancelled reports whether the user quit without exporting.
func (p *Picker) Cancelled() bool { return p.cancelled }

// Pick runs the picker on in and out and returns the chosen
// recommendations. ok is false when the user cancelled.
func Pick(recs []recommend.Recommendation, in io.Reader, out io.Writer) (chosen []recommend.Recommendation, ok bool, err error) {
	p := NewPicker(recs)
	prog := tea.NewProgram(p, tea.WithInput(in), tea.WithOutput(out))
	if _, err := prog.Run(); err != nil {
		return nil, false, fmt.Errorf("running picker: %w", err)
	}
	if p.Cancelled() {
		return nil, false, nil
	}
	return p.Selected(), true, nil
}
