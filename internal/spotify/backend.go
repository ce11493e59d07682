package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/pkg/events"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

// Ensure Backend implements the backend capabilities at compile time
var (
	_ api.Backend       = (*Backend)(nil)
	_ api.FeatureSource = (*Backend)(nil)
)

// DefaultPollInterval is how often the player state is fetched
const DefaultPollInterval = time.Second

// endWindow is how close to the end a track must have been at the last
// poll for a stop to count as the track finishing
const endWindow = 3 * time.Second

// Backend plays remote tracks on a Spotify Connect device and follows the
// device by polling
type Backend struct {
	client     *Client
	bus        *events.EventBus
	logger     *log.Logger
	deviceName string
	interval   time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	deviceID string
	state    api.PlaybackState
	polledAt time.Time
	volume   float64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// BackendOption configures a Backend
type BackendOption func(*Backend)

// WithDeviceName prefers the Connect device with this name
func WithDeviceName(name string) BackendOption {
	return func(b *Backend) { b.deviceName = name }
}

// WithPollInterval overrides DefaultPollInterval
func WithPollInterval(d time.Duration) BackendOption {
	return func(b *Backend) { b.interval = d }
}

// WithLogger sets the backend's logger
func WithLogger(l *log.Logger) BackendOption {
	return func(b *Backend) { b.logger = l }
}

// NewBackend creates a streaming backend. Init must succeed before tracks
// can be played.
func NewBackend(client *Client, bus *events.EventBus, opts ...BackendOption) *Backend {
	b := &Backend{
		client:   client,
		bus:      bus,
		interval: DefaultPollInterval,
		now:      time.Now,
		volume:   0.5,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.New(io.Discard)
	}
	return b
}

// Init picks a playback device: the configured name, else the active
// device, else the first unrestricted one. With no device available it
// returns ErrBackendUnavailable.
func (b *Backend) Init(ctx context.Context) error {
	devices, err := b.client.Devices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	device, ok := pickDevice(devices, b.deviceName)
	if !ok {
		return fmt.Errorf("%w: no Spotify Connect device found", playerrors.ErrBackendUnavailable)
	}

	b.mu.Lock()
	b.deviceID = device.ID
	if device.VolumePercent > 0 {
		b.volume = float64(device.VolumePercent) / 100
	}
	b.mu.Unlock()

	b.logger.Info("using Spotify device", "name", device.Name, "type", device.Type)
	return nil
}

// Ready reports whether Init found a device
func (b *Backend) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.deviceID != ""
}

// Start polls the device until ctx is canceled or Close is called
func (b *Backend) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	if b.cancel != nil {
		b.mu.Unlock()
		cancel()
		return
	}
	b.cancel = cancel
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.poll(ctx)
			}
		}
	}()
}

// Mode implements api.Backend
func (b *Backend) Mode() api.Mode {
	return api.ModeRemote
}

// PlayTrack starts track on the device
func (b *Backend) PlayTrack(ctx context.Context, track *api.Track) error {
	if track == nil || track.URI == "" {
		return playerrors.ErrTrackNotFound
	}
	deviceID, err := b.device()
	if err != nil {
		return err
	}

	if err := b.client.Play(ctx, deviceID, track.URI); err != nil {
		return playerrors.NewPlayerError("play", track.ID, err)
	}

	t := *track
	b.mu.Lock()
	b.state = api.PlaybackState{IsPlaying: true, Track: &t, DurationMs: track.DurationMs}
	b.polledAt = b.now()
	b.mu.Unlock()

	b.publishState()
	return nil
}

// Resume continues the loaded track
func (b *Backend) Resume(ctx context.Context) error {
	if !b.loaded() {
		return nil
	}
	deviceID, err := b.device()
	if err != nil {
		return err
	}
	if err := b.client.Play(ctx, deviceID); err != nil {
		return playerrors.NewPlayerError("resume", "", err)
	}
	b.setPlaying(true)
	return nil
}

// Pause pauses the device. A no-op when nothing is loaded.
func (b *Backend) Pause(ctx context.Context) error {
	if !b.loaded() {
		return nil
	}
	b.mu.RLock()
	playing := b.state.IsPlaying
	deviceID := b.deviceID
	b.mu.RUnlock()
	if !playing {
		return nil
	}

	if err := b.client.Pause(ctx, deviceID); err != nil {
		return playerrors.NewPlayerError("pause", "", err)
	}
	b.setPlaying(false)
	return nil
}

// Stop pauses the device and forgets the loaded track
func (b *Backend) Stop(ctx context.Context) error {
	if err := b.Pause(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	changed := b.state.Track != nil
	b.state = api.PlaybackState{}
	b.mu.Unlock()
	if changed {
		b.publishState()
	}
	return nil
}

// Seek moves playback to positionMs
func (b *Backend) Seek(ctx context.Context, positionMs int64) error {
	if !b.loaded() {
		return nil
	}
	deviceID, err := b.device()
	if err != nil {
		return err
	}
	if positionMs < 0 {
		positionMs = 0
	}
	if err := b.client.Seek(ctx, deviceID, positionMs); err != nil {
		return playerrors.NewPlayerError("seek", "", err)
	}
	b.mu.Lock()
	b.state.PositionMs = positionMs
	b.polledAt = b.now()
	b.mu.Unlock()
	return nil
}

// SetVolume sets the device volume, clamped to [0,1]
func (b *Backend) SetVolume(ctx context.Context, level float64) error {
	level = math.Max(0, math.Min(1, level))
	deviceID, err := b.device()
	if err != nil {
		return err
	}
	if err := b.client.SetVolume(ctx, deviceID, int(math.Round(level*100))); err != nil {
		return playerrors.NewPlayerError("volume", "", err)
	}
	b.mu.Lock()
	b.volume = level
	b.mu.Unlock()
	return nil
}

// Volume returns the last volume set on the device
func (b *Backend) Volume() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.volume
}

// Position estimates the playback position from the last poll
func (b *Backend) Position() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.positionLocked()
}

// Duration returns the loaded track's length
func (b *Backend) Duration() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.DurationMs
}

// State returns a copy of the playback state
func (b *Backend) State() api.PlaybackState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	state := b.state
	if b.state.Track != nil {
		t := *b.state.Track
		state.Track = &t
	}
	state.PositionMs = b.positionLocked()
	return state
}

// AudioFeatures implements api.FeatureSource
func (b *Backend) AudioFeatures(ctx context.Context, trackID string) (*api.AudioFeatures, error) {
	f, err := b.client.AudioFeatures(ctx, trackID)
	if err != nil {
		return nil, err
	}
	return &api.AudioFeatures{Tempo: f.Tempo, Energy: f.Energy, Loudness: f.Loudness}, nil
}

// Close stops polling
func (b *Backend) Close() error {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
	return nil
}

// poll refreshes the state from the device and detects a track that
// finished on its own
func (b *Backend) poll(ctx context.Context) {
	if !b.loaded() {
		return
	}

	remote, err := b.client.PlayerState(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		b.logger.Warn("poll player state", "err", err)
		b.bus.Publish(api.Event{
			Type:    api.EventError,
			Source:  api.ModeRemote,
			Payload: api.ErrorEvent{Op: "poll", Err: err},
		})
		return
	}

	b.mu.Lock()
	prev := b.state
	prevPos := b.positionLocked()
	ended := trackEnded(prev, prevPos, remote)

	changed := false
	switch {
	case ended:
		b.state.IsPlaying = false
		b.state.PositionMs = b.state.DurationMs
		changed = true
	case remote != nil && remote.Item != nil && prev.Track != nil && remote.Item.URI == prev.Track.URI:
		changed = remote.IsPlaying != prev.IsPlaying
		b.state.IsPlaying = remote.IsPlaying
		b.state.PositionMs = remote.ProgressMS
		if remote.Item.DurationMS > 0 {
			b.state.DurationMs = remote.Item.DurationMS
		}
	case remote == nil || !remote.IsPlaying:
		changed = prev.IsPlaying
		b.state.IsPlaying = false
		b.state.PositionMs = prevPos
	}
	b.polledAt = b.now()
	b.mu.Unlock()

	if changed {
		b.publishState()
	}
	if ended {
		b.logger.Debug("track finished", "track", prev.Track.Name)
		b.bus.Publish(api.Event{Type: api.EventTrackEnded, Source: api.ModeRemote})
	}
}

// trackEnded reports whether the device stopped the loaded track because
// it reached the end
func trackEnded(prev api.PlaybackState, prevPos int64, remote *PlayerState) bool {
	if !prev.IsPlaying || prev.Track == nil || prev.DurationMs <= 0 {
		return false
	}
	if time.Duration(prev.DurationMs-prevPos)*time.Millisecond > endWindow {
		return false
	}
	switch {
	case remote == nil || remote.Item == nil:
		return true
	case remote.Item.URI != prev.Track.URI:
		return true
	default:
		return !remote.IsPlaying && remote.ProgressMS == 0
	}
}

func (b *Backend) positionLocked() int64 {
	pos := b.state.PositionMs
	if b.state.IsPlaying && !b.polledAt.IsZero() {
		pos += b.now().Sub(b.polledAt).Milliseconds()
	}
	if b.state.DurationMs > 0 && pos > b.state.DurationMs {
		pos = b.state.DurationMs
	}
	return pos
}

func (b *Backend) setPlaying(playing bool) {
	b.mu.Lock()
	b.state.PositionMs = b.positionLocked()
	b.state.IsPlaying = playing
	b.polledAt = b.now()
	b.mu.Unlock()
	b.publishState()
}

func (b *Backend) loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Track != nil
}

func (b *Backend) device() (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.deviceID == "" {
		return "", playerrors.ErrBackendNotReady
	}
	return b.deviceID, nil
}

func (b *Backend) publishState() {
	b.bus.Publish(api.Event{
		Type:    api.EventStateChange,
		Source:  api.ModeRemote,
		Payload: b.State(),
	})
}

func pickDevice(devices []Device, name string) (Device, bool) {
	if name != "" {
		for _, d := range devices {
			if d.Name == name && !d.IsRestricted {
				return d, true
			}
		}
	}
	for _, d := range devices {
		if d.IsActive && !d.IsRestricted {
			return d, true
		}
	}
	for _, d := range devices {
		if !d.IsRestricted {
			return d, true
		}
	}
	return Device{}, false
}
