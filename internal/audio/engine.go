// Package audio is the local-file playback backend. A single goroutine owns
// the decoder pipeline and applies transport commands in order.
package audio

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/pkg/events"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

// Ensure Engine implements the backend capabilities at compile time
var (
	_ api.Backend        = (*Engine)(nil)
	_ api.SpectrumSource = (*Engine)(nil)
)

// DefaultVolume is the level a new engine starts at
const DefaultVolume = 0.5

type commandType int

const (
	cmdPlay commandType = iota
	cmdPause
	cmdResume
	cmdStop
	cmdSeek
	cmdVolume
	cmdEnded
)

type command struct {
	typ    commandType
	track  *api.Track
	ms     int64
	level  float64
	playID uint64
	reply  chan error
}

// Engine plays local files through an Output and taps the mixed signal
// for the visualizer
type Engine struct {
	bus    *events.EventBus
	out    Output
	logger *log.Logger

	commands chan command
	done     chan struct{}
	stopOnce sync.Once
	started  bool

	mu          sync.RWMutex
	state       api.PlaybackState
	volumeLevel float64
	streamer    beep.StreamSeekCloser
	ctrl        *beep.Ctrl
	volume      *effects.Volume
	sampleRate  beep.SampleRate
	playID      uint64

	tap *Tap
}

// NewEngine creates an engine that publishes on bus and plays into out.
// A nil out uses the system speaker.
func NewEngine(bus *events.EventBus, out Output, logger *log.Logger) *Engine {
	if out == nil {
		out = NewSpeakerOutput()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{
		bus:         bus,
		out:         out,
		logger:      logger,
		commands:    make(chan command, 16),
		done:        make(chan struct{}),
		volumeLevel: DefaultVolume,
		tap:         NewTap(beep.Silence(-1), FFTSize),
	}
}

// Start runs the command loop until ctx is canceled or Close is called
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	go e.run(ctx)
}

// Mode implements api.Backend
func (e *Engine) Mode() api.Mode {
	return api.ModeLocal
}

// PlayTrack stops whatever is playing and starts track
func (e *Engine) PlayTrack(ctx context.Context, track *api.Track) error {
	if track == nil {
		return playerrors.ErrTrackNotFound
	}
	return e.send(ctx, command{typ: cmdPlay, track: track})
}

// Resume continues a paused track. Safe with nothing loaded.
func (e *Engine) Resume(ctx context.Context) error {
	return e.send(ctx, command{typ: cmdResume})
}

// Pause pauses playback. Safe with nothing loaded.
func (e *Engine) Pause(ctx context.Context) error {
	return e.send(ctx, command{typ: cmdPause})
}

// Stop unloads the current track
func (e *Engine) Stop(ctx context.Context) error {
	return e.send(ctx, command{typ: cmdStop})
}

// Seek jumps to positionMs, clamped to the track
func (e *Engine) Seek(ctx context.Context, positionMs int64) error {
	return e.send(ctx, command{typ: cmdSeek, ms: positionMs})
}

// SetVolume sets the output level, clamped to [0,1]
func (e *Engine) SetVolume(ctx context.Context, level float64) error {
	return e.send(ctx, command{typ: cmdVolume, level: clampUnit(level)})
}

// Volume returns the current output level
func (e *Engine) Volume() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.volumeLevel
}

// Position returns the playback position in milliseconds, 0 if unknown
func (e *Engine) Position() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.positionLocked()
}

// Duration returns the loaded track's length in milliseconds, 0 if unknown
func (e *Engine) Duration() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.DurationMs
}

// State returns a copy of the current playback state
func (e *Engine) State() api.PlaybackState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

// Spectrum returns bands magnitudes in [0,1] from the most recent output
func (e *Engine) Spectrum(bands int) []float64 {
	e.mu.RLock()
	tap := e.tap
	e.mu.RUnlock()
	return Spectrum(tap.Samples(FFTSize), bands)
}

// Close stops playback and the command loop
func (e *Engine) Close() error {
	e.stopOnce.Do(func() {
		close(e.done)
		e.stopPlayback()
	})
	return nil
}

func (e *Engine) send(ctx context.Context, cmd command) error {
	select {
	case <-e.done:
		return playerrors.ErrBackendNotReady
	default:
	}

	cmd.reply = make(chan error, 1)
	select {
	case e.commands <- cmd:
	case <-e.done:
		return playerrors.ErrBackendNotReady
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-e.done:
		return playerrors.ErrBackendNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue delivers an internal command without waiting for it
func (e *Engine) enqueue(cmd command) {
	select {
	case e.commands <- cmd:
	case <-e.done:
	}
}

// run is the main command processing loop
func (e *Engine) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			e.Close()
			return
		case <-e.done:
			return

		case cmd := <-e.commands:
			err := e.apply(cmd)
			if cmd.reply != nil {
				cmd.reply <- err
			}
		}
	}
}

func (e *Engine) apply(cmd command) error {
	switch cmd.typ {
	case cmdPlay:
		if err := e.playTrack(cmd.track); err != nil {
			e.logger.Warn("local playback failed", "track", cmd.track.Name, "err", err)
			return err
		}

	case cmdPause:
		if !e.setPaused(true) {
			return nil
		}

	case cmdResume:
		if !e.setPaused(false) {
			return nil
		}

	case cmdStop:
		e.stopPlayback()

	case cmdSeek:
		e.seekTo(cmd.ms)

	case cmdVolume:
		e.mu.Lock()
		e.volumeLevel = cmd.level
		if e.volume != nil {
			e.out.Lock()
			applyVolume(e.volume, cmd.level)
			e.out.Unlock()
		}
		e.mu.Unlock()
		return nil

	case cmdEnded:
		e.mu.Lock()
		if cmd.playID != e.playID || e.streamer == nil {
			e.mu.Unlock()
			return nil
		}
		// The track stays loaded for display; playing it again needs cmdPlay
		e.streamer.Close()
		e.streamer = nil
		e.ctrl = nil
		e.volume = nil
		e.tap.Reset()
		e.state.IsPlaying = false
		e.state.PositionMs = e.state.DurationMs
		e.mu.Unlock()

		e.publishState()
		e.bus.Publish(api.Event{Type: api.EventTrackEnded, Source: api.ModeLocal})
		return nil
	}

	e.publishState()
	return nil
}

// playTrack loads and starts playing a track
func (e *Engine) playTrack(track *api.Track) error {
	e.stopPlayback()

	streamer, format, err := OpenFile(track.FilePath)
	if err != nil {
		return playerrors.NewPlayerError("open", track.ID, err)
	}

	if err := e.out.Init(format.SampleRate); err != nil {
		streamer.Close()
		return playerrors.NewPlayerError("speaker_init", track.ID, err)
	}

	e.mu.Lock()
	e.playID++
	id := e.playID
	e.streamer = streamer
	e.sampleRate = format.SampleRate
	e.ctrl = &beep.Ctrl{Streamer: streamer}
	e.volume = &effects.Volume{Streamer: e.ctrl, Base: 2}
	applyVolume(e.volume, e.volumeLevel)
	e.tap = NewTap(e.volume, FFTSize)

	t := *track
	e.state = api.PlaybackState{
		IsPlaying:  true,
		Track:      &t,
		DurationMs: format.SampleRate.D(streamer.Len()).Milliseconds(),
	}
	tap := e.tap
	e.mu.Unlock()

	e.out.Play(beep.Seq(tap, beep.Callback(func() {
		// Runs on the output goroutine; hand off to the loop
		go e.enqueue(command{typ: cmdEnded, playID: id})
	})))

	e.logger.Info("playing local track", "name", track.Name, "path", track.FilePath)
	return nil
}

func (e *Engine) setPaused(paused bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return false
	}
	e.out.Lock()
	e.ctrl.Paused = paused
	e.out.Unlock()
	e.state.IsPlaying = !paused
	e.state.PositionMs = e.positionLocked()
	return true
}

// stopPlayback stops the current playback
func (e *Engine) stopPlayback() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.out.Clear()
	if e.streamer != nil {
		e.streamer.Close()
		e.streamer = nil
	}
	e.ctrl = nil
	e.volume = nil
	e.tap.Reset()
	e.state.IsPlaying = false
	e.state.PositionMs = 0
}

// seekTo seeks to a specific position
func (e *Engine) seekTo(ms int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return
	}
	e.out.Lock()
	n := e.sampleRate.N(msToDuration(ms))
	if n < 0 {
		n = 0
	}
	if l := e.streamer.Len(); l > 0 && n >= l {
		n = l - 1
	}
	if err := e.streamer.Seek(n); err != nil {
		e.logger.Warn("seek failed", "err", err)
	}
	e.out.Unlock()
	e.state.PositionMs = e.positionLocked()
}

func (e *Engine) positionLocked() int64 {
	if e.streamer == nil {
		return e.state.PositionMs
	}
	e.out.Lock()
	pos := e.streamer.Position()
	e.out.Unlock()
	return e.sampleRate.D(pos).Milliseconds()
}

func (e *Engine) snapshotLocked() api.PlaybackState {
	state := e.state
	if e.state.Track != nil {
		t := *e.state.Track
		state.Track = &t
	}
	if e.streamer != nil {
		state.PositionMs = e.positionLocked()
	}
	return state
}

func (e *Engine) publishState() {
	e.bus.Publish(api.Event{
		Type:    api.EventStateChange,
		Source:  api.ModeLocal,
		Payload: e.State(),
	})
}
