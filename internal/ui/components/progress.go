package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/golang_turntable/api"
)

// ProgressBar shows how far into the current track playback is
type ProgressBar struct {
	Width      int
	Percent    float64
	PositionMs int64
	DurationMs int64
	BarChar    string
	EmptyChar  string
	ShowTime   bool

	FilledStyle lipgloss.Style
	EmptyStyle  lipgloss.Style
	TimeStyle   lipgloss.Style
}

// NewProgressBar creates a new progress bar
func NewProgressBar(width int) ProgressBar {
	return ProgressBar{
		Width:       width,
		BarChar:     "━",
		EmptyChar:   "─",
		ShowTime:    true,
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		TimeStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// SetProgress sets the position; percent is in [0,100]
func (p *ProgressBar) SetProgress(percent float64, positionMs, durationMs int64) {
	p.Percent = min(max(percent, 0), 100)
	p.PositionMs = positionMs
	p.DurationMs = durationMs
}

// Filled returns how many cells of a bar of the given width are filled
func (p ProgressBar) Filled(barWidth int) int {
	return int(float64(barWidth) * p.Percent / 100)
}

// View renders the progress bar
func (p ProgressBar) View() string {
	var sb strings.Builder

	current := api.FormatDuration(p.PositionMs)
	total := api.FormatDuration(p.DurationMs)

	barWidth := p.Width
	if p.ShowTime {
		barWidth -= len(current) + len(total) + 2
	}
	if barWidth < 10 {
		barWidth = 10
	}
	filled := p.Filled(barWidth)

	if p.ShowTime {
		sb.WriteString(p.TimeStyle.Render(current))
		sb.WriteString(" ")
	}
	sb.WriteString(p.FilledStyle.Render(strings.Repeat(p.BarChar, filled)))
	sb.WriteString(p.EmptyStyle.Render(strings.Repeat(p.EmptyChar, barWidth-filled)))
	if p.ShowTime {
		sb.WriteString(" ")
		sb.WriteString(p.TimeStyle.Render(total))
	}
	return sb.String()
}
