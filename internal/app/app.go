// Package app wires the tonearm, the playback backends and the display
// together. Every method runs on the UI event loop; backend calls are
// queued on the mode coordinator, in order per backend, and report
// failures back through the event bus.
package app

import (
	"context"
	"errors"
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/internal/mode"
	"github.com/jscyril/golang_turntable/internal/tonearm"
	"github.com/jscyril/golang_turntable/internal/visualizer"
	"github.com/jscyril/golang_turntable/pkg/events"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller's logger
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithAuthExpired registers fn to discard the session when the streaming
// service rejects the token
func WithAuthExpired(fn func()) Option {
	return func(c *Controller) { c.onAuthExpired = fn }
}

// WithVolume sets the initial volume
func WithVolume(level float64) Option {
	return func(c *Controller) { c.volume = level }
}

// Controller reacts to tonearm, coordinator and backend events
type Controller struct {
	arm       *tonearm.Controller
	modes     *mode.Coordinator
	viz       *visualizer.Visualizer
	presenter api.Presenter
	bus       *events.EventBus
	logger    *log.Logger

	onAuthExpired func()

	ctx          context.Context
	currentIndex int
	playing      bool
	// ended is set when the current track ran out, so landing on it again
	// replays it instead of resuming
	ended  bool
	volume float64

	armSubs []events.Subscription
	busSubs []events.Subscription
}

// New creates a controller and subscribes it to arm and coordinator events
func New(arm *tonearm.Controller, modes *mode.Coordinator, viz *visualizer.Visualizer, presenter api.Presenter, bus *events.EventBus, opts ...Option) *Controller {
	c := &Controller{
		arm:          arm,
		modes:        modes,
		viz:          viz,
		presenter:    presenter,
		bus:          bus,
		ctx:          context.Background(),
		currentIndex: -1,
		volume:       0.5,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}

	c.armSubs = append(c.armSubs,
		arm.OnTrackChange(c.handleTrackChange),
		arm.OnArmDrop(c.handleArmDrop),
		arm.OnArmLift(c.handleArmLift),
	)
	c.busSubs = append(c.busSubs,
		bus.On(api.EventModeChange, c.handleModeChange),
		bus.On(api.EventPlaylistChange, c.handleModeChange),
	)
	return c
}

// Start pushes the active playlist to the arm and display and applies the
// initial volume. ctx bounds every backend call.
func (c *Controller) Start(ctx context.Context) {
	c.ctx = ctx
	c.handlePlaylistChange(c.tracks())
	c.SetVolume(c.volume)
}

// CurrentIndex returns the index of the track being played, or -1
func (c *Controller) CurrentIndex() int {
	return c.currentIndex
}

// Playing reports the last playback state seen from the active backend
func (c *Controller) Playing() bool {
	return c.playing
}

// Volume returns the last volume requested
func (c *Controller) Volume() float64 {
	return c.volume
}

// Mode returns the active mode
func (c *Controller) Mode() api.Mode {
	return c.modes.Current()
}

// HandleEvent consumes an event published by a backend goroutine. Events
// from the inactive backend are dropped, except authorization failures.
func (c *Controller) HandleEvent(e api.Event) {
	if e.Type == api.EventError {
		payload, _ := e.Payload.(api.ErrorEvent)
		if e.Source != c.modes.Current() && !playerrors.IsAuthError(payload.Err) {
			c.logger.Debug("dropping error from inactive backend", "source", e.Source, "op", payload.Op)
			return
		}
		c.handleError(payload.Op, payload.Err)
		return
	}

	if e.Source != c.modes.Current() {
		return
	}
	switch e.Type {
	case api.EventStateChange:
		if state, ok := e.Payload.(api.PlaybackState); ok {
			c.handleStateChange(state)
		}
	case api.EventTrackEnded:
		c.handleTrackEnd()
	}
}

// SwitchMode changes the active backend
func (c *Controller) SwitchMode(m api.Mode) {
	if err := c.modes.SwitchMode(c.ctx, m); err != nil {
		c.handleError("switch mode", err)
	}
}

// PlaylistLoaded re-pushes m's playlist when m is active
func (c *Controller) PlaylistLoaded(m api.Mode) {
	if m == c.modes.Current() {
		c.modes.RefreshPlaylist()
	}
}

// TogglePlayPause pauses when playing and plays otherwise
func (c *Controller) TogglePlayPause() {
	if c.playing {
		c.Pause()
		return
	}
	c.Play()
}

// Play resumes the current track, or drops the arm on the first track
// when it is off the record
func (c *Controller) Play() {
	if !c.arm.OnRecord() || c.currentIndex < 0 {
		c.arm.MoveToTrack(0)
		return
	}
	c.run("resume", func(ctx context.Context, b api.Backend) error { return b.Resume(ctx) })
}

// Pause pauses the active backend
func (c *Controller) Pause() {
	c.run("pause", func(ctx context.Context, b api.Backend) error { return b.Pause(ctx) })
}

// Stop stops the active backend
func (c *Controller) Stop() {
	c.run("stop", func(ctx context.Context, b api.Backend) error { return b.Stop(ctx) })
}

// NextTrack moves the arm to the following track, wrapping to the first
func (c *Controller) NextTrack() {
	n := c.trackCount()
	if n == 0 {
		return
	}
	c.arm.MoveToTrack((c.currentIndex + 1) % n)
}

// PreviousTrack moves the arm to the preceding track, wrapping to the last
func (c *Controller) PreviousTrack() {
	n := c.trackCount()
	if n == 0 {
		return
	}
	prev := c.currentIndex - 1
	if prev < 0 {
		prev = n - 1
	}
	c.arm.MoveToTrack(prev)
}

// MoveToTrack sends the arm to index
func (c *Controller) MoveToTrack(index int) {
	c.arm.MoveToTrack(index)
}

// LiftArm returns the arm to rest
func (c *Controller) LiftArm() {
	c.arm.LiftArm()
}

// SetVolume sets the active backend's volume, clamped to [0,1]
func (c *Controller) SetVolume(level float64) {
	c.volume = math.Max(0, math.Min(1, level))
	level = c.volume
	c.run("volume", func(ctx context.Context, b api.Backend) error { return b.SetVolume(ctx, level) })
}

// AdjustVolume changes the volume by delta
func (c *Controller) AdjustVolume(delta float64) {
	c.SetVolume(c.volume + delta)
}

// Seek moves within the current track by delta milliseconds
func (c *Controller) Seek(deltaMs int64) {
	b := c.modes.Active()
	if b == nil || c.currentIndex < 0 {
		return
	}
	target := b.Position() + deltaMs
	if target < 0 {
		target = 0
	}
	c.run("seek", func(ctx context.Context, b api.Backend) error { return b.Seek(ctx, target) })
}

// UpdateProgress reads the active backend's position into the progress
// bar. Called on a fixed cadence; does nothing while paused.
func (c *Controller) UpdateProgress() {
	if !c.playing {
		return
	}
	b := c.modes.Active()
	if b == nil {
		return
	}
	pos, dur := b.Position(), b.Duration()
	if dur <= 0 {
		return
	}
	c.presenter.SetProgress(float64(pos)/float64(dur)*100, pos, dur)
}

// Close unsubscribes the controller, lets queued backend work finish and
// releases both backends
func (c *Controller) Close() error {
	for _, sub := range c.armSubs {
		c.arm.Off(sub)
	}
	for _, sub := range c.busSubs {
		c.bus.Off(sub)
	}
	c.armSubs, c.busSubs = nil, nil
	c.viz.Stop()
	c.modes.Close()

	var errs []error
	for _, m := range []api.Mode{api.ModeRemote, api.ModeLocal} {
		if b := c.modes.Backend(m); b != nil {
			if err := b.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) handleTrackChange(index int) {
	if index == c.currentIndex && !c.ended {
		if !c.playing {
			c.run("resume", func(ctx context.Context, b api.Backend) error { return b.Resume(ctx) })
		}
		return
	}

	m := c.modes.Current()
	playlist := c.modes.Playlist(m)
	backend := c.modes.Backend(m)
	if playlist == nil || backend == nil {
		return
	}
	track := playlist.Track(index)
	if track == nil {
		return
	}
	c.currentIndex = index
	c.ended = false
	c.logger.Info("track changed", "index", index, "track", track.Name)

	c.presenter.HighlightTrack(index)
	c.presenter.ShowAlbumArt(track)
	c.presenter.ShowTrackInfo(track)
	c.presenter.SetProgress(0, 0, track.DurationMs)

	spectrum, live := backend.(api.SpectrumSource)
	if live {
		c.viz.ConnectSpectrum(spectrum)
	} else {
		c.viz.Disconnect()
	}
	features, hasFeatures := backend.(api.FeatureSource)
	c.viz.SetTrack(track.ID)

	ctx := c.ctx
	t := *track
	c.modes.Do(m, func() {
		if err := backend.PlayTrack(ctx, &t); err != nil {
			c.publishError(backend.Mode(), "play", err)
			return
		}
		if !hasFeatures || live {
			return
		}
		f, err := features.AudioFeatures(ctx, t.ID)
		if err != nil {
			c.logger.Warn("could not load audio features", "track", t.ID, "err", err)
			return
		}
		if !c.viz.UpdateFeaturesFor(t.ID, f) {
			c.logger.Debug("dropping features of a previous track", "track", t.ID)
		}
	})
}

func (c *Controller) handleArmDrop() {
	c.logger.Debug("arm dropped")
}

func (c *Controller) handleArmLift() {
	c.logger.Debug("arm lifted")
	c.Pause()
}

func (c *Controller) handleStateChange(state api.PlaybackState) {
	c.playing = state.IsPlaying
	c.presenter.SetPlaying(state.IsPlaying)
	if state.Track != nil {
		c.presenter.ShowTrackInfo(state.Track)
	}
	c.presenter.SetSpinning(state.IsPlaying)
	if state.IsPlaying {
		c.viz.Start()
	} else {
		c.viz.Stop()
	}
}

func (c *Controller) handleTrackEnd() {
	c.logger.Debug("track ended", "index", c.currentIndex)
	c.ended = true
	c.NextTrack()
}

func (c *Controller) handleModeChange(e api.Event) {
	change, _ := e.Payload.(api.ModeChange)
	c.logger.Debug("playlist source changed", "mode", change.Current, "previous", change.Previous)
	c.Stop()
	c.viz.Disconnect()
	c.presenter.SetProgress(0, 0, 0)
	c.handlePlaylistChange(c.tracks())
}

func (c *Controller) handlePlaylistChange(tracks []api.Track) {
	c.arm.SetTracks(tracks)
	c.currentIndex = -1
	c.playing = false
	c.ended = false
	c.viz.SetTrack("")
	c.viz.Stop()
	c.presenter.SetPlaying(false)
	c.presenter.SetSpinning(false)
	c.presenter.RenderTrackList(tracks)
	c.presenter.HighlightTrack(-1)
}

// handleError applies the error policy: authorization failures discard the
// session and fall back to local playback, everything else is reported.
func (c *Controller) handleError(op string, err error) {
	if err == nil {
		return
	}
	c.logger.Error("backend error", "op", op, "err", err)

	switch {
	case playerrors.IsAuthError(err):
		if c.onAuthExpired != nil {
			c.onAuthExpired()
		}
		c.presenter.Alert("Spotify session expired. Run `turntable login` to sign in again.")
		if c.modes.Current() != api.ModeLocal && c.modes.Available(api.ModeLocal) {
			c.SwitchMode(api.ModeLocal)
		}
	case errors.Is(err, playerrors.ErrPremiumRequired):
		c.presenter.Alert("Spotify Premium is required to play tracks.")
	case errors.Is(err, playerrors.ErrEmptyPlaylist), errors.Is(err, playerrors.ErrTrackNotFound):
	default:
		c.presenter.Alert(op + " failed: " + err.Error())
	}
}

func (c *Controller) run(op string, fn func(ctx context.Context, b api.Backend) error) {
	m := c.modes.Current()
	b := c.modes.Backend(m)
	if b == nil {
		return
	}
	ctx := c.ctx
	c.modes.Do(m, func() {
		if err := fn(ctx, b); err != nil {
			c.publishError(b.Mode(), op, err)
		}
	})
}

func (c *Controller) publishError(source api.Mode, op string, err error) {
	c.bus.Publish(api.Event{
		Type:    api.EventError,
		Source:  source,
		Payload: api.ErrorEvent{Op: op, Err: err},
	})
}

func (c *Controller) tracks() []api.Track {
	if p := c.modes.ActivePlaylist(); p != nil {
		return p.Tracks()
	}
	return nil
}

func (c *Controller) trackCount() int {
	if p := c.modes.ActivePlaylist(); p != nil {
		return p.Count()
	}
	return 0
}
