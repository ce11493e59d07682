package components

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/golang_turntable/internal/geometry"
)

// One terminal cell covers CellWidth by CellHeight turntable units. Cells
// are about twice as tall as wide, so the record stays round.
const (
	CellWidth  = 10.0
	CellHeight = 20.0
)

type cellKind int

const (
	cellEmpty cellKind = iota
	cellVinyl
	cellGroove
	cellSheen
	cellLabel
	cellLabelText
	cellSpindle
	cellMarker
	cellMarkerActive
	cellArm
	cellNeedle
	cellPivot
)

var cellRunes = map[cellKind]rune{
	cellEmpty:        ' ',
	cellVinyl:        '░',
	cellGroove:       '▒',
	cellSheen:        '▓',
	cellLabel:        ' ',
	cellSpindle:      '●',
	cellMarker:       '◇',
	cellMarkerActive: '◆',
	cellArm:          '▪',
	cellNeedle:       '▼',
	cellPivot:        '◉',
}

type cell struct {
	kind cellKind
	r    rune
}

// Turntable draws the record, its track markers and the tonearm on a
// character grid laid over turntable coordinates
type Turntable struct {
	Geometry geometry.Config
	Cols     int
	Rows     int

	// Rotation is the record's angle in degrees; it only advances while
	// Spinning
	Rotation float64
	Spinning bool

	Markers      int
	ActiveMarker int
	Label        string

	ArmAngle float64
	OnRecord bool

	styles map[cellKind]lipgloss.Style
}

// NewTurntable sizes the grid to fit the record described by cfg
func NewTurntable(cfg geometry.Config) Turntable {
	right := max(cfg.RecordCenter.X+cfg.RecordRadius, cfg.Pivot.X+cfg.Reach())
	bottom := max(cfg.RecordCenter.Y+cfg.RecordRadius, cfg.Pivot.Y+cfg.Reach())
	return Turntable{
		Geometry:     cfg,
		Cols:         int(math.Ceil(right/CellWidth)) + 1,
		Rows:         int(math.Ceil(bottom/CellHeight)) + 1,
		ActiveMarker: -1,
		ArmAngle:     cfg.MinAngle,
		styles: map[cellKind]lipgloss.Style{
			cellEmpty:        lipgloss.NewStyle(),
			cellVinyl:        lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
			cellGroove:       lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
			cellSheen:        lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			cellLabel:        lipgloss.NewStyle().Background(lipgloss.Color("161")),
			cellLabelText:    lipgloss.NewStyle().Background(lipgloss.Color("161")).Foreground(lipgloss.Color("230")).Bold(true),
			cellSpindle:      lipgloss.NewStyle().Background(lipgloss.Color("161")).Foreground(lipgloss.Color("252")),
			cellMarker:       lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			cellMarkerActive: lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
			cellArm:          lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
			cellNeedle:       lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
			cellPivot:        lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		},
	}
}

// Advance turns the record by the angle covered in dt at rpm
func (t *Turntable) Advance(dt time.Duration, rpm float64) {
	if !t.Spinning {
		return
	}
	t.Rotation = geometry.NormalizeAngle(t.Rotation + rpm*6*dt.Seconds())
}

// ToTurntable returns the turntable point at the middle of a cell
func ToTurntable(col, row int) (x, y float64) {
	return float64(col)*CellWidth + CellWidth/2, float64(row)*CellHeight + CellHeight/2
}

// CellAt returns the cell containing p
func CellAt(p geometry.Point) (col, row int) {
	return int(math.Floor(p.X / CellWidth)), int(math.Floor(p.Y / CellHeight))
}

// Needle is the needle tip for the current arm angle
func (t Turntable) Needle() geometry.Point {
	return geometry.NeedlePosition(t.ArmAngle, t.Geometry.Pivot, t.Geometry.Reach())
}

// NearArm reports whether (x, y) lies within tolerance of the arm
func (t Turntable) NearArm(x, y, tolerance float64) bool {
	a, b := t.Geometry.Pivot, t.Needle()
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	u := 0.0
	if lenSq > 0 {
		u = geometry.Clamp(((x-a.X)*dx+(y-a.Y)*dy)/lenSq, 0, 1)
	}
	closest := geometry.Point{X: a.X + u*dx, Y: a.Y + u*dy}
	return geometry.Distance(closest, geometry.Point{X: x, Y: y}) <= tolerance
}

// View renders the turntable
func (t Turntable) View() string {
	grid := t.grid()

	var sb strings.Builder
	for row, cells := range grid {
		var run strings.Builder
		kind := cells[0].kind
		flush := func() {
			sb.WriteString(t.styles[kind].Render(run.String()))
			run.Reset()
		}
		for _, c := range cells {
			if c.kind != kind {
				flush()
				kind = c.kind
			}
			run.WriteRune(c.r)
		}
		flush()
		if row < len(grid)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (t Turntable) grid() [][]cell {
	cfg := t.Geometry
	labelRadius := cfg.GrooveInner - CellWidth

	grid := make([][]cell, t.Rows)
	for row := range grid {
		grid[row] = make([]cell, t.Cols)
		for col := range grid[row] {
			x, y := ToTurntable(col, row)
			p := geometry.Point{X: x, Y: y}
			d := geometry.Distance(p, cfg.RecordCenter)

			var kind cellKind
			switch {
			case d < CellWidth:
				kind = cellSpindle
			case d <= labelRadius:
				kind = cellLabel
			case d > cfg.RecordRadius:
				kind = cellEmpty
			case t.inSheen(p):
				kind = cellSheen
			case d >= cfg.GrooveInner && d <= cfg.GrooveOuter && int(d/CellHeight)%2 == 0:
				kind = cellGroove
			default:
				kind = cellVinyl
			}
			grid[row][col] = cell{kind: kind, r: cellRunes[kind]}
		}
	}

	t.placeLabel(grid, labelRadius)

	for i, m := range geometry.MarkerPositions(t.Markers, cfg.RecordCenter, cfg.GrooveOuter-CellWidth) {
		kind := cellMarker
		if i == t.ActiveMarker {
			kind = cellMarkerActive
		}
		set(grid, m, kind, cellRunes[kind])
	}

	reach := cfg.Reach()
	for d := 0.0; d < reach; d += CellWidth / 2 {
		set(grid, geometry.NeedlePosition(t.ArmAngle, cfg.Pivot, d), cellArm, cellRunes[cellArm])
	}
	needle := cellRunes[cellNeedle]
	if !t.OnRecord {
		needle = '▽'
	}
	set(grid, t.Needle(), cellNeedle, needle)
	set(grid, cfg.Pivot, cellPivot, cellRunes[cellPivot])
	return grid
}

// inSheen reports whether p falls in the light reflection, which turns
// with the record
func (t Turntable) inSheen(p geometry.Point) bool {
	if !t.Spinning {
		return false
	}
	c := t.Geometry.RecordCenter
	angle := geometry.NormalizeAngle(math.Atan2(p.Y-c.Y, p.X-c.X) * 180 / math.Pi)
	diff := math.Mod(math.Abs(angle-t.Rotation), 180)
	return diff < 8 || diff > 172
}

// placeLabel writes the label text across the middle of the label
func (t Turntable) placeLabel(grid [][]cell, labelRadius float64) {
	if t.Label == "" {
		return
	}
	c := t.Geometry.RecordCenter
	col, row := CellAt(geometry.Point{X: c.X, Y: c.Y - CellHeight})
	if row < 0 || row >= len(grid) {
		return
	}
	width := int(2*labelRadius/CellWidth) - 2
	text := []rune(truncate(t.Label, width))
	start := col - len(text)/2
	for i, r := range text {
		x := start + i
		if x >= 0 && x < len(grid[row]) && grid[row][x].kind == cellLabel {
			grid[row][x] = cell{kind: cellLabelText, r: r}
		}
	}
}

func set(grid [][]cell, p geometry.Point, kind cellKind, r rune) {
	col, row := CellAt(p)
	if row < 0 || row >= len(grid) || col < 0 || col >= len(grid[row]) {
		return
	}
	grid[row][col] = cell{kind: kind, r: r}
}
