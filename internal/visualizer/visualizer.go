// Package visualizer computes the bar heights drawn around the record.
// Bars follow the live spectrum when one is connected and otherwise
// pulse at the track's tempo.
package visualizer

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/jscyril/golang_turntable/api"
)

const (
	// DefaultBars is the number of bars around the record
	DefaultBars = 64

	defaultTempo    = 120.0
	defaultEnergy   = 0.5
	defaultLoudness = 0.5

	smoothing = 0.2
)

// Option configures a Visualizer
type Option func(*Visualizer)

// WithRandom replaces the jitter source, which must return values in [0,1)
func WithRandom(fn func() float64) Option {
	return func(v *Visualizer) { v.random = fn }
}

// Visualizer holds smoothed bar values in [0,1]
type Visualizer struct {
	mu      sync.Mutex
	bars    int
	values  []float64
	targets []float64
	active  bool

	spectrum api.SpectrumSource
	trackID  string

	tempo     float64
	energy    float64
	loudness  float64
	beatPhase float64
	beatSpeed float64

	random func() float64
}

// New creates a stopped visualizer. bars <= 0 uses DefaultBars.
func New(bars int, opts ...Option) *Visualizer {
	if bars <= 0 {
		bars = DefaultBars
	}
	v := &Visualizer{
		bars:      bars,
		values:    make([]float64, bars),
		targets:   make([]float64, bars),
		tempo:     defaultTempo,
		energy:    defaultEnergy,
		loudness:  defaultLoudness,
		beatSpeed: 0.1,
		random:    rand.Float64,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Bars returns the number of bars
func (v *Visualizer) Bars() int {
	return v.bars
}

// ConnectSpectrum drives the bars from a live spectrum. A nil source
// disconnects.
func (v *Visualizer) ConnectSpectrum(src api.SpectrumSource) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.spectrum = src
}

// Disconnect falls back to tempo-driven bars
func (v *Visualizer) Disconnect() {
	v.ConnectSpectrum(nil)
}

// Live reports whether a spectrum is connected
func (v *Visualizer) Live() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.spectrum != nil
}

// UpdateFeatures sets the tempo, energy and loudness used when no
// spectrum is connected. Zero values fall back to defaults.
func (v *Visualizer) UpdateFeatures(f *api.AudioFeatures) {
	if f == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.applyFeatures(f)
}

// SetTrack records the track whose features are expected next
func (v *Visualizer) SetTrack(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.trackID = id
}

// UpdateFeaturesFor applies f only while id is still the current track
// and reports whether it did
func (v *Visualizer) UpdateFeaturesFor(id string, f *api.AudioFeatures) bool {
	if f == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if id != v.trackID {
		return false
	}
	v.applyFeatures(f)
	return true
}

func (v *Visualizer) applyFeatures(f *api.AudioFeatures) {
	v.tempo = orDefault(f.Tempo, defaultTempo)
	v.energy = orDefault(f.Energy, defaultEnergy)
	v.loudness = orDefault(math.Min(1, math.Max(0, (f.Loudness+60)/60)), defaultLoudness)
	v.beatSpeed = v.tempo / 60 * 0.05
}

// Features returns the current tempo, energy and loudness
func (v *Visualizer) Features() (tempo, energy, loudness float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tempo, v.energy, v.loudness
}

// Start begins animating
func (v *Visualizer) Start() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = true
}

// Stop halts animation and drops every bar to zero
func (v *Visualizer) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = false
	clear(v.values)
	clear(v.targets)
}

// Active reports whether the visualizer is animating
func (v *Visualizer) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

// Tick advances one frame and returns the bar values. While stopped the
// bars stay at zero.
func (v *Visualizer) Tick() []float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.active {
		if v.spectrum != nil {
			v.spectrumTargets(v.spectrum.Spectrum(v.bars))
		} else {
			v.pulseTargets()
		}
		for i := range v.values {
			v.values[i] += (v.targets[i] - v.values[i]) * smoothing
		}
	}

	out := make([]float64, v.bars)
	copy(out, v.values)
	return out
}

// Values returns the bar values without advancing
func (v *Visualizer) Values() []float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]float64, v.bars)
	copy(out, v.values)
	return out
}

func (v *Visualizer) spectrumTargets(bands []float64) {
	for i := range v.targets {
		value := 0.0
		if i < len(bands) {
			value = math.Pow(math.Max(0, bands[i]), 0.7)
		}
		if i < v.bars/4 {
			value *= 1.3
		}
		v.targets[i] = math.Min(1, value)
	}
}

func (v *Visualizer) pulseTargets() {
	v.beatPhase += v.beatSpeed

	for i := range v.targets {
		fi := float64(i)
		wave1 := math.Sin(v.beatPhase+fi*0.2)*0.5 + 0.5
		wave2 := math.Sin(v.beatPhase*1.5+fi*0.15)*0.3 + 0.3
		wave3 := math.Sin(v.beatPhase*2+fi*0.1)*0.2 + 0.2

		value := (wave1 + wave2 + wave3) / 3
		value *= v.energy
		value *= 0.8 + v.random()*0.4

		switch {
		case i < v.bars/4:
			value *= 1.2
		case i > v.bars*3/4:
			value *= 0.9
		}
		v.targets[i] = value
	}
}

func orDefault(v, def float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return def
	}
	return v
}
