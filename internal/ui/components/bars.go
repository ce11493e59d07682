package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var barLevels = []rune(" ▁▂▃▄▅▆▇█")

// Bars draws visualizer values in [0,1] as vertical bars
type Bars struct {
	Width  int
	Height int
	Styles []lipgloss.Style // bottom row first
}

// NewBars creates a bar display with a color ramp from bottom to top
func NewBars(width, height int) Bars {
	ramp := []string{"62", "99", "135", "171", "212"}
	styles := make([]lipgloss.Style, height)
	for i := range styles {
		styles[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(ramp[i*len(ramp)/max(height, 1)]))
	}
	return Bars{Width: width, Height: height, Styles: styles}
}

// Columns samples values down to at most Width entries
func (b Bars) Columns(values []float64) []float64 {
	n := min(b.Width, len(values))
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = values[i*len(values)/n]
	}
	return out
}

// View renders values, top row first
func (b Bars) View(values []float64) string {
	cols := b.Columns(values)
	steps := len(barLevels) - 1

	rows := make([]string, b.Height)
	for r := range rows {
		fromBottom := b.Height - 1 - r
		var sb strings.Builder
		for _, v := range cols {
			level := int(v*float64(b.Height*steps)) - fromBottom*steps
			sb.WriteRune(barLevels[min(max(level, 0), steps)])
		}
		line := sb.String()
		if fromBottom < len(b.Styles) {
			line = b.Styles[fromBottom].Render(line)
		}
		rows[r] = line
	}
	return strings.Join(rows, "\n")
}
