package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FilterInput is a single-line filter box
type FilterInput struct {
	input textinput.Model
	Width int

	Style      lipgloss.Style
	FocusStyle lipgloss.Style
}

// NewFilterInput creates a filter box with the given placeholder
func NewFilterInput(width int, placeholder string) FilterInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "/ "
	ti.CharLimit = 64

	return FilterInput{
		input: ti,
		Width: width,
		Style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		FocusStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1),
	}
}

// Focus sets focus on the input
func (f *FilterInput) Focus() tea.Cmd {
	return f.input.Focus()
}

// Blur removes focus from the input
func (f *FilterInput) Blur() {
	f.input.Blur()
}

// Focused reports whether the input takes keystrokes
func (f FilterInput) Focused() bool {
	return f.input.Focused()
}

// Value returns the current filter text
func (f FilterInput) Value() string {
	return f.input.Value()
}

// SetValue replaces the filter text
func (f *FilterInput) SetValue(s string) {
	f.input.SetValue(s)
}

// Clear empties the input
func (f *FilterInput) Clear() {
	f.input.Reset()
}

// Update forwards messages to the text input
func (f FilterInput) Update(msg tea.Msg) (FilterInput, tea.Cmd) {
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// View renders the filter box
func (f FilterInput) View() string {
	f.input.Width = max(f.Width-8, 1)
	if f.input.Focused() {
		return f.FocusStyle.Width(f.Width - 2).Render(f.input.View())
	}
	return f.Style.Width(f.Width - 2).Render(f.input.View())
}
