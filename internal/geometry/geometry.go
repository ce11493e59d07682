// Package geometry holds the pure turntable math: pointer position to arm
// angle, arm angle to needle position, needle position to groove contact,
// and groove angle to track index. Nothing here keeps state or touches a
// rendering surface.
package geometry

import (
	"fmt"
	"math"

	"github.com/jscyril/golang_turntable/pkg/errors"
)

// Point is a position in turntable coordinates. Y grows downward.
type Point struct {
	X float64 `koanf:"x"`
	Y float64 `koanf:"y"`
}

// Config is the fixed groove geometry of one turntable
type Config struct {
	Pivot        Point   `koanf:"pivot"`
	ArmLength    float64 `koanf:"arm_length"`
	NeedleOffset float64 `koanf:"needle_offset"`
	RecordCenter Point   `koanf:"record_center"`
	RecordRadius float64 `koanf:"record_radius"`
	GrooveInner  float64 `koanf:"groove_inner"`
	GrooveOuter  float64 `koanf:"groove_outer"`
	MinAngle     float64 `koanf:"min_angle"`
	MaxAngle     float64 `koanf:"max_angle"`
}

// DefaultConfig returns a geometry whose arm rests off the record at
// MinAngle, enters the groove near -20 degrees and never reaches the label.
func DefaultConfig() Config {
	return Config{
		Pivot:        Point{X: 20, Y: 120},
		ArmLength:    150,
		NeedleOffset: 30,
		RecordCenter: Point{X: 250, Y: 250},
		RecordRadius: 200,
		GrooveInner:  80,
		GrooveOuter:  190,
		MinAngle:     -45,
		MaxAngle:     45,
	}
}

// Reach is the distance from the pivot to the needle tip
func (c Config) Reach() float64 {
	return c.ArmLength + c.NeedleOffset
}

// Validate rejects geometries the contact math cannot work with
func (c Config) Validate() error {
	switch {
	case c.ArmLength <= 0:
		return fmt.Errorf("%w: arm length must be positive", errors.ErrInvalidGeometry)
	case c.RecordRadius <= 0:
		return fmt.Errorf("%w: record radius must be positive", errors.ErrInvalidGeometry)
	case c.GrooveInner < 0 || c.GrooveInner >= c.RecordRadius:
		return fmt.Errorf("%w: groove inner radius must be in [0, record radius)", errors.ErrInvalidGeometry)
	case c.GrooveOuter <= c.GrooveInner || c.GrooveOuter > c.RecordRadius:
		return fmt.Errorf("%w: groove outer radius must be in (inner, record radius]", errors.ErrInvalidGeometry)
	case c.MinAngle >= c.MaxAngle:
		return fmt.Errorf("%w: min angle must be below max angle", errors.ErrInvalidGeometry)
	}
	return nil
}

// Contact is the result of a groove hit test
type Contact struct {
	InContact bool
	// NormalizedAngle is the needle's angle around the record center in
	// [0,360). Only meaningful when InContact is true.
	NormalizedAngle float64
}

// AngleFromPointer returns the arm angle in degrees pointing from pivot to
// the pointer, clamped to [minAngle, maxAngle].
func AngleFromPointer(x, y float64, pivot Point, minAngle, maxAngle float64) float64 {
	angle := radToDeg(math.Atan2(y-pivot.Y, x-pivot.X))
	return Clamp(angle, minAngle, maxAngle)
}

// NeedlePosition projects the needle tip along the arm
func NeedlePosition(angle float64, pivot Point, reach float64) Point {
	rad := degToRad(angle)
	return Point{
		X: pivot.X + reach*math.Cos(rad),
		Y: pivot.Y + reach*math.Sin(rad),
	}
}

// ContactAt tests whether the needle lies in the groove band. Both radii
// are inclusive.
func ContactAt(needle, center Point, innerRadius, recordRadius float64) Contact {
	d := Distance(needle, center)
	if d < innerRadius || d > recordRadius {
		return Contact{}
	}
	return Contact{
		InContact:       true,
		NormalizedAngle: NormalizeAngle(radToDeg(math.Atan2(needle.Y-center.Y, needle.X-center.X))),
	}
}

// TrackIndexForAngle maps a groove angle in [0,360) onto one of count
// equal sectors. Returns -1 when there are no tracks.
func TrackIndexForAngle(normalizedAngle float64, count int) int {
	if count <= 0 {
		return -1
	}
	idx := int(math.Floor(normalizedAngle / 360 * float64(count)))
	if idx < 0 {
		return 0
	}
	if idx >= count {
		return count - 1
	}
	return idx
}

// AngleForTrackIndex spreads track indices linearly over the arm's sweep.
// This is not the inverse of TrackIndexForAngle: one measures the groove,
// the other the arm.
func AngleForTrackIndex(index, count int, minAngle, maxAngle float64) float64 {
	if count <= 0 {
		return minAngle
	}
	return minAngle + float64(index)/float64(count)*(maxAngle-minAngle)
}

// MarkerPositions places count track markers evenly around center,
// starting at the top and going clockwise.
func MarkerPositions(count int, center Point, radius float64) []Point {
	if count <= 0 {
		return nil
	}
	step := 360 / float64(count)
	points := make([]Point, count)
	for i := range points {
		rad := degToRad(float64(i)*step - 90)
		points[i] = Point{
			X: center.X + radius*math.Cos(rad),
			Y: center.Y + radius*math.Sin(rad),
		}
	}
	return points
}

// Distance is the Euclidean distance between two points
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// NormalizeAngle folds any angle into [0,360)
func NormalizeAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }

func radToDeg(r float64) float64 { return r * 180 / math.Pi }
