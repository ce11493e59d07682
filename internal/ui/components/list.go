package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/golang_turntable/api"
)

// TrackList is a scrollable list of the tracks on the record. Selected is
// the keyboard cursor; Playing is the track under the needle, or -1.
type TrackList struct {
	Items    []api.Track
	Selected int
	Playing  int
	Height   int
	Width    int
	Offset   int
	Title    string

	SelectedStyle lipgloss.Style
	PlayingStyle  lipgloss.Style
	NormalStyle   lipgloss.Style
	DimStyle      lipgloss.Style
	TitleStyle    lipgloss.Style

	up, down, home, end key.Binding
}

// NewTrackList creates a new track list
func NewTrackList(height, width int) TrackList {
	return TrackList{
		Height:  height,
		Width:   width,
		Playing: -1,
		SelectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Bold(true),
		PlayingStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true),
		NormalStyle: lipgloss.NewStyle(),
		DimStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		up:   key.NewBinding(key.WithKeys("up", "k")),
		down: key.NewBinding(key.WithKeys("down", "j")),
		home: key.NewBinding(key.WithKeys("home", "g")),
		end:  key.NewBinding(key.WithKeys("end", "G")),
	}
}

// SetItems replaces the tracks and resets the cursor
func (l *TrackList) SetItems(items []api.Track) {
	l.Items = items
	l.Selected = 0
	l.Offset = 0
	l.Playing = -1
}

// SetPlaying marks index as playing and scrolls it into view
func (l *TrackList) SetPlaying(index int) {
	l.Playing = index
	if index >= 0 && index < len(l.Items) {
		l.Selected = index
		l.ensureVisible()
	}
}

// Update handles cursor keys
func (l TrackList) Update(msg tea.Msg) (TrackList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, l.up):
			l.MoveUp()
		case key.Matches(msg, l.down):
			l.MoveDown()
		case key.Matches(msg, l.home):
			l.Selected = 0
			l.ensureVisible()
		case key.Matches(msg, l.end):
			if len(l.Items) > 0 {
				l.Selected = len(l.Items) - 1
				l.ensureVisible()
			}
		}
	}
	return l, nil
}

// MoveUp moves selection up
func (l *TrackList) MoveUp() {
	if l.Selected > 0 {
		l.Selected--
		l.ensureVisible()
	}
}

// MoveDown moves selection down
func (l *TrackList) MoveDown() {
	if l.Selected < len(l.Items)-1 {
		l.Selected++
		l.ensureVisible()
	}
}

func (l *TrackList) visibleHeight() int {
	h := l.Height
	if l.Title != "" {
		h--
	}
	return max(h, 1)
}

// ensureVisible ensures the selected item is visible
func (l *TrackList) ensureVisible() {
	visible := l.visibleHeight()
	if l.Selected < l.Offset {
		l.Offset = l.Selected
	} else if l.Selected >= l.Offset+visible {
		l.Offset = l.Selected - visible + 1
	}
}

// SelectedIndex returns the cursor position, or -1 when the list is empty
func (l TrackList) SelectedIndex() int {
	if len(l.Items) == 0 {
		return -1
	}
	return l.Selected
}

// View renders the track list
func (l TrackList) View() string {
	var sb strings.Builder

	if l.Title != "" {
		sb.WriteString(l.TitleStyle.Render(l.Title))
		sb.WriteString("\n")
	}

	if len(l.Items) == 0 {
		sb.WriteString(l.DimStyle.Render("No tracks on the record"))
		return sb.String()
	}

	end := min(l.Offset+l.visibleHeight(), len(l.Items))
	for i := l.Offset; i < end; i++ {
		track := l.Items[i]

		marker := "  "
		if i == l.Playing {
			marker = "♪ "
		}
		dur := api.FormatDuration(track.DurationMs)
		name := fmt.Sprintf("%s%2d. %s", marker, i+1, track.Name)
		if track.Artist != "" {
			name += " · " + track.Artist
		}
		line := padRight(truncate(name, l.Width-len(dur)-1), l.Width-len(dur)) + dur

		switch {
		case i == l.Selected:
			sb.WriteString(l.SelectedStyle.Render(line))
		case i == l.Playing:
			sb.WriteString(l.PlayingStyle.Render(line))
		default:
			sb.WriteString(l.NormalStyle.Render(line))
		}
		if i < end-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// truncate shortens s to at most maxLen runes
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-1]) + "…"
}

func padRight(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
