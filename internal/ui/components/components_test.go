package components

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/internal/geometry"
)

func TestTurntableGridFitsRecord(t *testing.T) {
	tt := NewTurntable(geometry.DefaultConfig())

	assert.Equal(t, 46, tt.Cols)
	assert.Equal(t, 24, tt.Rows)
	assert.Equal(t, -1, tt.ActiveMarker)
	assert.Equal(t, -45.0, tt.ArmAngle)

	lines := strings.Split(tt.View(), "\n")
	assert.Len(t, lines, tt.Rows)
}

func TestCellMapping(t *testing.T) {
	x, y := ToTurntable(0, 0)
	assert.Equal(t, 5.0, x)
	assert.Equal(t, 10.0, y)

	col, row := CellAt(geometry.Point{X: 25, Y: 250})
	assert.Equal(t, 2, col)
	assert.Equal(t, 12, row)

	col, row = CellAt(geometry.Point{X: x, Y: y})
	assert.Equal(t, 0, col)
	assert.Equal(t, 0, row)
}

func TestNearArm(t *testing.T) {
	tt := NewTurntable(geometry.DefaultConfig())

	assert.True(t, tt.NearArm(85, 50, 20), "midway along the resting arm")
	assert.True(t, tt.NearArm(20, 120, 0), "pivot")
	assert.False(t, tt.NearArm(400, 400, 20))

	tt.ArmAngle = 45
	assert.False(t, tt.NearArm(85, 50, 20), "arm has swung away")
}

func TestAdvanceOnlyWhileSpinning(t *testing.T) {
	tt := NewTurntable(geometry.DefaultConfig())

	tt.Advance(time.Second, 100.0/3)
	assert.Equal(t, 0.0, tt.Rotation)

	tt.Spinning = true
	tt.Advance(time.Second, 100.0/3)
	assert.InDelta(t, 200.0, tt.Rotation, 1e-9)

	tt.Advance(time.Second, 100.0/3)
	assert.InDelta(t, 40.0, tt.Rotation, 1e-9, "rotation wraps at 360")
}

func TestTurntableView(t *testing.T) {
	tt := NewTurntable(geometry.DefaultConfig())
	tt.Markers = 4
	tt.ActiveMarker = 1
	tt.Label = "Blue Train"
	tt.ArmAngle = 0

	view := tt.View()
	assert.Equal(t, 3, strings.Count(view, "◇"))
	assert.Equal(t, 1, strings.Count(view, "◆"))
	assert.Contains(t, view, "Blue Train")
	assert.Contains(t, view, "▽", "needle lifted")
	assert.Contains(t, view, "◉")

	tt.OnRecord = true
	assert.Contains(t, tt.View(), "▼")
}

func TestBars(t *testing.T) {
	b := NewBars(2, 2)
	assert.Equal(t, []float64{0, 2}, b.Columns([]float64{0, 1, 2, 3}))

	b.Width = 10
	assert.Len(t, b.Columns([]float64{1, 2, 3}), 3)
	assert.Nil(t, b.Columns(nil))

	b.Width = 4
	lines := strings.Split(b.View([]float64{1, 0, 0.5, 0.25}), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, 1, strings.Count(lines[0], "█"))
	assert.Equal(t, 2, strings.Count(lines[1], "█"))
	assert.Contains(t, lines[1], "▄")
}

func TestTrackListFollowsPlaying(t *testing.T) {
	l := NewTrackList(5, 40)
	assert.Equal(t, -1, l.SelectedIndex())
	assert.Contains(t, l.View(), "No tracks on the record")

	items := make([]api.Track, 20)
	for i := range items {
		items[i] = api.Track{ID: fmt.Sprint(i), Name: fmt.Sprintf("Song %d", i), DurationMs: 61000}
	}
	l.SetItems(items)
	l.SetPlaying(15)

	assert.Equal(t, 15, l.SelectedIndex())
	assert.Equal(t, 11, l.Offset)
	view := l.View()
	assert.Contains(t, view, "♪ 16. Song 15")
	assert.Contains(t, view, "1:01")
	assert.NotContains(t, view, "Song 0")

	l.SetItems(items[:3])
	assert.Equal(t, -1, l.Playing)
	assert.Equal(t, 0, l.Offset)

	l.SetPlaying(-1)
	assert.Equal(t, 0, l.SelectedIndex(), "clearing playing keeps the cursor")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "", truncate("abc", 0))
	assert.Equal(t, "é…", truncate("éèê", 2))
}
