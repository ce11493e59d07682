package components

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/golang_turntable/internal/audio"
)

// FileEntry is a directory or audio file shown in the browser
type FileEntry struct {
	Name  string
	Path  string
	IsDir bool
}

// FileBrowser navigates the filesystem, listing directories and the audio
// files the local player can decode
type FileBrowser struct {
	Width       int
	Height      int
	CurrentPath string
	Entries     []FileEntry
	Selected    int
	Offset      int
	Err         error

	DirStyle      lipgloss.Style
	FileStyle     lipgloss.Style
	SelectedStyle lipgloss.Style
	PathStyle     lipgloss.Style
	DimStyle      lipgloss.Style

	up, down, parent, home key.Binding
}

// NewFileBrowser creates a file browser starting at startPath, or the home
// directory when it is empty
func NewFileBrowser(startPath string, width, height int) FileBrowser {
	fb := FileBrowser{
		Width:  width,
		Height: height,
		DirStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true),
		FileStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")),
		SelectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("255")).
			Bold(true),
		PathStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true),
		DimStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		up:       key.NewBinding(key.WithKeys("up", "k")),
		down:     key.NewBinding(key.WithKeys("down", "j")),
		parent:   key.NewBinding(key.WithKeys("backspace", "h", "left")),
		home:     key.NewBinding(key.WithKeys("~")),
	}

	if startPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			startPath = "/"
		} else {
			startPath = home
		}
	}

	fb.Navigate(startPath)
	return fb
}

// Navigate changes to the specified directory
func (fb *FileBrowser) Navigate(path string) {
	fb.CurrentPath = path
	fb.Selected = 0
	fb.Offset = 0
	fb.Err = nil
	fb.Entries = nil

	entries, err := os.ReadDir(path)
	if err != nil {
		fb.Err = err
		return
	}

	if parent := filepath.Dir(path); parent != path {
		fb.Entries = append(fb.Entries, FileEntry{Name: "..", Path: parent, IsDir: true})
	}

	var dirs, files []FileEntry
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		full := filepath.Join(path, entry.Name())
		switch {
		case entry.IsDir():
			dirs = append(dirs, FileEntry{Name: entry.Name(), Path: full, IsDir: true})
		case audio.IsSupported(entry.Name()):
			files = append(files, FileEntry{Name: entry.Name(), Path: full})
		}
	}

	byName := func(s []FileEntry) func(i, j int) bool {
		return func(i, j int) bool { return strings.ToLower(s[i].Name) < strings.ToLower(s[j].Name) }
	}
	sort.Slice(dirs, byName(dirs))
	sort.Slice(files, byName(files))

	fb.Entries = append(fb.Entries, dirs...)
	fb.Entries = append(fb.Entries, files...)
}

// Update handles navigation keys
func (fb FileBrowser) Update(msg tea.Msg) (FileBrowser, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return fb, nil
	}
	switch {
	case key.Matches(km, fb.up):
		if fb.Selected > 0 {
			fb.Selected--
			fb.ensureVisible()
		}
	case key.Matches(km, fb.down):
		if fb.Selected < len(fb.Entries)-1 {
			fb.Selected++
			fb.ensureVisible()
		}
	case key.Matches(km, fb.parent):
		if parent := filepath.Dir(fb.CurrentPath); parent != fb.CurrentPath {
			fb.Navigate(parent)
		}
	case key.Matches(km, fb.home):
		if home, err := os.UserHomeDir(); err == nil {
			fb.Navigate(home)
		}
	}
	return fb, nil
}

// SelectedEntry returns the currently selected entry, or nil if none
func (fb *FileBrowser) SelectedEntry() *FileEntry {
	if fb.Selected >= 0 && fb.Selected < len(fb.Entries) {
		return &fb.Entries[fb.Selected]
	}
	return nil
}

// EnterSelected opens the selected directory, or returns the selected
// file's path
func (fb *FileBrowser) EnterSelected() string {
	entry := fb.SelectedEntry()
	if entry == nil {
		return ""
	}
	if entry.IsDir {
		fb.Navigate(entry.Path)
		return ""
	}
	return entry.Path
}

// FileCount is the number of audio files in the current directory
func (fb FileBrowser) FileCount() int {
	n := 0
	for _, e := range fb.Entries {
		if !e.IsDir {
			n++
		}
	}
	return n
}

func (fb *FileBrowser) visibleHeight() int {
	return max(fb.Height-4, 1)
}

func (fb *FileBrowser) ensureVisible() {
	visible := fb.visibleHeight()
	if fb.Selected < fb.Offset {
		fb.Offset = fb.Selected
	} else if fb.Selected >= fb.Offset+visible {
		fb.Offset = fb.Selected - visible + 1
	}
}

// View renders the file browser
func (fb FileBrowser) View() string {
	var sb strings.Builder

	sb.WriteString(fb.PathStyle.Render(truncate(fb.CurrentPath, fb.Width)))
	sb.WriteString("\n")

	if fb.Err != nil {
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("Error: " + fb.Err.Error()))
		sb.WriteString("\n")
	}

	visible := fb.visibleHeight()
	end := min(fb.Offset+visible, len(fb.Entries))
	for i := fb.Offset; i < end; i++ {
		entry := fb.Entries[i]
		line := "  " + entry.Name
		if entry.IsDir {
			line = "▸ " + entry.Name + "/"
		}
		line = truncate(line, fb.Width)

		switch {
		case i == fb.Selected:
			sb.WriteString(fb.SelectedStyle.Render(line))
		case entry.IsDir:
			sb.WriteString(fb.DirStyle.Render(line))
		default:
			sb.WriteString(fb.FileStyle.Render(line))
		}
		sb.WriteString("\n")
	}
	for i := end - fb.Offset; i < visible; i++ {
		sb.WriteString("\n")
	}

	sb.WriteString(fb.DimStyle.Render(fmt.Sprintf("%d audio files here", fb.FileCount())))
	return sb.String()
}
