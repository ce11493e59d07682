package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/internal/ui/components"
)

// PlayerView shows the track under the needle, its artwork label and the
// transport state
type PlayerView struct {
	Width       int
	Track       *api.Track
	Playing     bool
	Volume      float64
	Mode        api.Mode
	ProgressBar components.ProgressBar

	TitleStyle  lipgloss.Style
	ArtistStyle lipgloss.Style
	AlbumStyle  lipgloss.Style
	StatusStyle lipgloss.Style
	ArtStyle    lipgloss.Style
	DimStyle    lipgloss.Style
}

// NewPlayerView creates a new player view
func NewPlayerView(width int) PlayerView {
	return PlayerView{
		Width:       width,
		ProgressBar: components.NewProgressBar(width),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		ArtistStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
		AlbumStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		ArtStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("161")).
			Foreground(lipgloss.Color("230")).
			Width(9).
			Height(3).
			Align(lipgloss.Center, lipgloss.Center),
		DimStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// SetWidth resizes the view and its progress bar
func (v *PlayerView) SetWidth(width int) {
	v.Width = width
	v.ProgressBar.Width = width
}

// View renders the player view
func (v PlayerView) View() string {
	var info strings.Builder

	status := "■ stopped"
	switch {
	case v.Playing:
		status = "▶ playing"
	case v.Track != nil:
		status = "❚❚ paused"
	}
	info.WriteString(v.StatusStyle.Render(status))
	info.WriteString(v.DimStyle.Render("  " + modeName(v.Mode)))
	info.WriteString("\n")

	if v.Track == nil {
		info.WriteString(v.TitleStyle.Render("Drop the needle on the record"))
		info.WriteString("\n")
		info.WriteString(v.DimStyle.Render("drag the arm, or press space"))
	} else {
		textWidth := max(v.Width-14, 8)
		info.WriteString(v.TitleStyle.Render(clip(v.Track.Name, textWidth)))
		info.WriteString("\n")
		info.WriteString(v.ArtistStyle.Render(clip(v.Track.Artist, textWidth)))
		info.WriteString("\n")
		info.WriteString(v.AlbumStyle.Render(clip(v.Track.Album, textWidth)))
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top, v.ArtStyle.Render(Artwork(v.Track)), " ", info.String())

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	sb.WriteString(v.ProgressBar.View())
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("vol %s %3d%%", renderVolumeBar(v.Volume), int(v.Volume*100+0.5)))
	return sb.String()
}

// Artwork is the text stand-in for album art shown in the art box and on
// the record label
func Artwork(track *api.Track) string {
	if track == nil {
		return "♪"
	}
	initials := initialsOf(track.Album)
	if initials == "" {
		initials = initialsOf(track.Name)
	}
	if track.HasArtwork() {
		return "◉\n" + initials
	}
	return initials
}

func initialsOf(s string) string {
	var out []rune
	for _, word := range strings.Fields(s) {
		r := []rune(word)
		out = append(out, []rune(strings.ToUpper(string(r[0])))...)
		if len(out) == 3 {
			break
		}
	}
	return string(out)
}

func modeName(m api.Mode) string {
	if m == api.ModeLocal {
		return "local files"
	}
	return "spotify"
}

// renderVolumeBar renders a volume bar
func renderVolumeBar(volume float64) string {
	filled := min(max(int(volume*10+0.5), 0), 10)
	empty := 10 - filled

	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	return filledStyle.Render(strings.Repeat("●", filled)) + emptyStyle.Render(strings.Repeat("○", empty))
}

func clip(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
