package audio

import (
	"time"

	"github.com/faiface/beep/effects"
)

// applyVolume maps a 0..1 level onto the volume effect. 0.5 is unity gain.
func applyVolume(v *effects.Volume, level float64) {
	v.Volume = level*2 - 1
	v.Silent = level <= 0
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
