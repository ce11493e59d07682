package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/golang_turntable/internal/playlist"
	"github.com/jscyril/golang_turntable/internal/ui/components"
)

// PlaylistChosenMsg is sent when a playlist is picked
type PlaylistChosenMsg struct {
	ID   string
	Name string
}

// PlaylistView lets the user pick one of their streaming playlists,
// filtered by name
type PlaylistView struct {
	Width    int
	Height   int
	Filter   components.FilterInput
	Selected int
	Loading  bool
	Err      error

	all   []playlist.Summary
	shown []playlist.Summary

	TitleStyle    lipgloss.Style
	SelectedStyle lipgloss.Style
	NormalStyle   lipgloss.Style
	DimStyle      lipgloss.Style

	up, down, choose key.Binding
}

// NewPlaylistView creates a new playlist view
func NewPlaylistView(width, height int) PlaylistView {
	return PlaylistView{
		Width:   width,
		Height:  height,
		Filter:  components.NewFilterInput(width, "filter playlists"),
		Loading: true,
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		SelectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Bold(true),
		NormalStyle: lipgloss.NewStyle(),
		DimStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		up:          key.NewBinding(key.WithKeys("up", "ctrl+p")),
		down:        key.NewBinding(key.WithKeys("down", "ctrl+n")),
		choose:      key.NewBinding(key.WithKeys("enter")),
	}
}

// Open resets the filter and focuses it
func (v *PlaylistView) Open() tea.Cmd {
	v.Filter.Clear()
	v.Selected = 0
	v.apply()
	return v.Filter.Focus()
}

// SetPlaylists replaces the available playlists
func (v *PlaylistView) SetPlaylists(list []playlist.Summary, err error) {
	v.Loading = false
	v.Err = err
	v.all = list
	v.apply()
}

// Shown returns the playlists matching the filter
func (v PlaylistView) Shown() []playlist.Summary {
	return v.shown
}

func (v *PlaylistView) apply() {
	v.shown = playlist.Filter(v.all, v.Filter.Value())
	if v.Selected >= len(v.shown) {
		v.Selected = max(len(v.shown)-1, 0)
	}
}

// Update handles navigation; every other key edits the filter
func (v PlaylistView) Update(msg tea.Msg) (PlaylistView, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, v.up):
			if v.Selected > 0 {
				v.Selected--
			}
			return v, nil
		case key.Matches(km, v.down):
			if v.Selected < len(v.shown)-1 {
				v.Selected++
			}
			return v, nil
		case key.Matches(km, v.choose):
			if v.Selected < len(v.shown) {
				chosen := v.shown[v.Selected]
				return v, func() tea.Msg {
					return PlaylistChosenMsg{ID: chosen.ID, Name: chosen.Name}
				}
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.Filter, cmd = v.Filter.Update(msg)
	v.apply()
	return v, cmd
}

// View renders the playlist view
func (v PlaylistView) View() string {
	var sb strings.Builder

	sb.WriteString(v.TitleStyle.Render("Your playlists"))
	sb.WriteString("\n")
	sb.WriteString(v.Filter.View())
	sb.WriteString("\n")

	switch {
	case v.Loading:
		sb.WriteString(v.DimStyle.Render("Loading playlists…"))
	case v.Err != nil:
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("Error: " + v.Err.Error()))
	case len(v.shown) == 0:
		sb.WriteString(v.DimStyle.Render("No playlists match"))
	default:
		visible := max(v.Height-6, 1)
		offset := 0
		if v.Selected >= visible {
			offset = v.Selected - visible + 1
		}
		end := min(offset+visible, len(v.shown))
		for i := offset; i < end; i++ {
			pl := v.shown[i]
			line := clip(pl.Name, max(v.Width-16, 8))
			count := fmt.Sprintf(" %d tracks", pl.TrackCount)
			if i == v.Selected {
				sb.WriteString(v.SelectedStyle.Render(line))
			} else {
				sb.WriteString(v.NormalStyle.Render(line))
			}
			sb.WriteString(v.DimStyle.Render(count))
			if i < end-1 {
				sb.WriteString("\n")
			}
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString(v.DimStyle.Render("[↑↓] Navigate  [Enter] Put on the turntable  [Esc] Close"))
	return sb.String()
}
