package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/golang_turntable/internal/ui/components"
)

// FilesChosenMsg is sent when files or directories are picked for the
// local record
type FilesChosenMsg struct {
	Paths []string
}

// LibraryView browses the filesystem for local music
type LibraryView struct {
	Width       int
	Height      int
	FileBrowser components.FileBrowser

	TitleStyle lipgloss.Style
	DimStyle   lipgloss.Style

	open, addDir key.Binding
}

// NewLibraryView creates a new library view starting at startPath
func NewLibraryView(startPath string, width, height int) LibraryView {
	return LibraryView{
		Width:       width,
		Height:      height,
		FileBrowser: components.NewFileBrowser(startPath, width, height-3),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		DimStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		open:     key.NewBinding(key.WithKeys("enter", "l", "right")),
		addDir:   key.NewBinding(key.WithKeys("a")),
	}
}

// Update handles messages
func (v LibraryView) Update(msg tea.Msg) (LibraryView, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return v, nil
	}

	switch {
	case key.Matches(km, v.open):
		if path := v.FileBrowser.EnterSelected(); path != "" {
			return v, choose(path)
		}
		return v, nil
	case key.Matches(km, v.addDir):
		return v, choose(v.FileBrowser.CurrentPath)
	}

	v.FileBrowser, _ = v.FileBrowser.Update(msg)
	return v, nil
}

func choose(paths ...string) tea.Cmd {
	return func() tea.Msg {
		return FilesChosenMsg{Paths: paths}
	}
}

// View renders the library view
func (v LibraryView) View() string {
	var sb strings.Builder
	sb.WriteString(v.TitleStyle.Render("Load local music"))
	sb.WriteString("\n")
	sb.WriteString(v.FileBrowser.View())
	sb.WriteString("\n")
	sb.WriteString(v.DimStyle.Render("[Enter] Open/Add file  [a] Add this folder  [Backspace] Up  [~] Home  [Esc] Close"))
	return sb.String()
}
