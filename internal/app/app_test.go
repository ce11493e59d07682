package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/internal/geometry"
	"github.com/jscyril/golang_turntable/internal/mode"
	"github.com/jscyril/golang_turntable/internal/tonearm"
	"github.com/jscyril/golang_turntable/internal/visualizer"
	"github.com/jscyril/golang_turntable/pkg/events"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

type manualScheduler struct {
	pending []*task
}

type task struct {
	fn       func()
	canceled bool
}

func (s *manualScheduler) Schedule(d time.Duration, fn func()) func() {
	t := &task{fn: fn}
	s.pending = append(s.pending, t)
	return func() { t.canceled = true }
}

func (s *manualScheduler) runAll() {
	pending := s.pending
	s.pending = nil
	for _, t := range pending {
		if !t.canceled {
			t.fn()
		}
	}
}

type fakeBackend struct {
	mode     api.Mode
	calls    []string
	played   []string
	playErr  error
	position int64
	duration int64
	volume   float64
	closed   bool
}

func (f *fakeBackend) Mode() api.Mode { return f.mode }
func (f *fakeBackend) PlayTrack(ctx context.Context, t *api.Track) error {
	f.calls = append(f.calls, "play")
	if f.playErr != nil {
		return f.playErr
	}
	f.played = append(f.played, t.ID)
	return nil
}
func (f *fakeBackend) Resume(ctx context.Context) error {
	f.calls = append(f.calls, "resume")
	return nil
}
func (f *fakeBackend) Pause(ctx context.Context) error {
	f.calls = append(f.calls, "pause")
	return nil
}
func (f *fakeBackend) Stop(ctx context.Context) error {
	f.calls = append(f.calls, "stop")
	return nil
}
func (f *fakeBackend) Seek(ctx context.Context, ms int64) error {
	f.calls = append(f.calls, fmt.Sprintf("seek:%d", ms))
	return nil
}
func (f *fakeBackend) SetVolume(ctx context.Context, v float64) error {
	f.volume = v
	return nil
}
func (f *fakeBackend) Position() int64          { return f.position }
func (f *fakeBackend) Duration() int64          { return f.duration }
func (f *fakeBackend) State() api.PlaybackState { return api.PlaybackState{} }
func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

type localBackend struct{ fakeBackend }

func (l *localBackend) Spectrum(bands int) []float64 { return make([]float64, bands) }

type remoteBackend struct {
	fakeBackend
	features   *api.AudioFeatures
	byID       map[string]*api.AudioFeatures
	featureIDs []string
}

func (r *remoteBackend) AudioFeatures(ctx context.Context, id string) (*api.AudioFeatures, error) {
	r.featureIDs = append(r.featureIDs, id)
	if r.byID != nil {
		f, ok := r.byID[id]
		if !ok {
			return nil, playerrors.ErrTrackNotFound
		}
		return f, nil
	}
	return r.features, nil
}

// slowBackend takes longer to start a track than to pause it
type slowBackend struct {
	remoteBackend
	delay   time.Duration
	playing bool
}

func (s *slowBackend) PlayTrack(ctx context.Context, t *api.Track) error {
	time.Sleep(s.delay)
	s.playing = true
	return s.fakeBackend.PlayTrack(ctx, t)
}

func (s *slowBackend) Pause(ctx context.Context) error {
	s.playing = false
	return s.fakeBackend.Pause(ctx)
}

type fakePresenter struct {
	highlighted []int
	lists       [][]api.Track
	art         []string
	info        []string
	playing     []bool
	spinning    []bool
	progress    []float64
	alerts      []string
}

func (p *fakePresenter) ShowAlbumArt(t *api.Track)     { p.art = append(p.art, t.ID) }
func (p *fakePresenter) ShowTrackInfo(t *api.Track)    { p.info = append(p.info, t.ID) }
func (p *fakePresenter) RenderTrackList(t []api.Track) { p.lists = append(p.lists, t) }
func (p *fakePresenter) HighlightTrack(i int)          { p.highlighted = append(p.highlighted, i) }
func (p *fakePresenter) SetProgress(pct float64, pos, dur int64) {
	p.progress = append(p.progress, pct)
}
func (p *fakePresenter) SetPlaying(v bool)  { p.playing = append(p.playing, v) }
func (p *fakePresenter) SetSpinning(v bool) { p.spinning = append(p.spinning, v) }
func (p *fakePresenter) Alert(msg string)   { p.alerts = append(p.alerts, msg) }

type staticPlaylist []api.Track

func (p staticPlaylist) Tracks() []api.Track { return p }
func (p staticPlaylist) Track(i int) *api.Track {
	if i < 0 || i >= len(p) {
		return nil
	}
	return &p[i]
}
func (p staticPlaylist) Count() int { return len(p) }

func tracks(prefix string, n int) staticPlaylist {
	out := make(staticPlaylist, n)
	for i := range out {
		out[i] = api.Track{ID: fmt.Sprintf("%s%d", prefix, i), Name: fmt.Sprintf("Track %d", i), DurationMs: 180000}
	}
	return out
}

type harness struct {
	ctrl      *Controller
	arm       *tonearm.Controller
	sched     *manualScheduler
	bus       *events.EventBus
	modes     *mode.Coordinator
	viz       *visualizer.Visualizer
	presenter *fakePresenter
	local     *localBackend
	remote    *remoteBackend
	expired   int
}

func newHarness(t *testing.T, initial api.Mode) *harness {
	t.Helper()
	h := &harness{
		sched:     &manualScheduler{},
		bus:       events.NewEventBus(),
		presenter: &fakePresenter{},
		local:     &localBackend{fakeBackend{mode: api.ModeLocal}},
		remote: &remoteBackend{
			fakeBackend: fakeBackend{mode: api.ModeRemote},
			features:    &api.AudioFeatures{Tempo: 140, Energy: 0.9, Loudness: -4},
		},
	}
	h.arm = tonearm.New(geometry.DefaultConfig(), h.bus, h.sched)
	h.modes = mode.NewCoordinator(initial, h.bus, nil, mode.WithExecutor(mode.Inline))
	h.modes.Register(api.ModeLocal, h.local, tracks("l", 3))
	h.modes.Register(api.ModeRemote, h.remote, tracks("r", 5))
	h.viz = visualizer.New(8)

	h.ctrl = New(h.arm, h.modes, h.viz, h.presenter, h.bus,
		WithAuthExpired(func() { h.expired++ }),
	)
	h.ctrl.Start(context.Background())
	t.Cleanup(func() { h.ctrl.Close() })
	return h
}

// newQueuedController runs backend work on the coordinator's own queues
func newQueuedController(t *testing.T, backend *slowBackend) (*Controller, *mode.Coordinator, *manualScheduler, *visualizer.Visualizer) {
	t.Helper()
	bus := events.NewEventBus()
	sched := &manualScheduler{}
	arm := tonearm.New(geometry.DefaultConfig(), bus, sched)
	modes := mode.NewCoordinator(backend.mode, bus, nil)
	modes.Register(backend.mode, backend, tracks("s", 3))
	viz := visualizer.New(8)

	ctrl := New(arm, modes, viz, &fakePresenter{}, bus)
	ctrl.Start(context.Background())
	t.Cleanup(func() {
		ctrl.Close()
		bus.Close()
	})
	return ctrl, modes, sched, viz
}

func (h *harness) moveTo(i int) {
	h.ctrl.MoveToTrack(i)
	h.sched.runAll()
}

func (h *harness) state(source api.Mode, playing bool) api.Event {
	return api.Event{Type: api.EventStateChange, Source: source, Payload: api.PlaybackState{IsPlaying: playing}}
}

func TestStartPushesPlaylist(t *testing.T) {
	h := newHarness(t, api.ModeLocal)

	require.Len(t, h.presenter.lists, 1)
	assert.Len(t, h.presenter.lists[0], 3)
	assert.Equal(t, 3, h.arm.TrackCount())
	assert.Equal(t, -1, h.ctrl.CurrentIndex())
	assert.Equal(t, 0.5, h.local.volume)
}

func TestTrackChangePlaysTrack(t *testing.T) {
	h := newHarness(t, api.ModeLocal)
	h.moveTo(1)

	assert.Equal(t, 1, h.ctrl.CurrentIndex())
	assert.Equal(t, []string{"l1"}, h.local.played)
	assert.Equal(t, []string{"l1"}, h.presenter.art)
	assert.Contains(t, h.presenter.highlighted, 1)
	assert.True(t, h.viz.Live(), "local playback drives the visualizer from the spectrum")
}

func TestRemoteTrackLoadsFeatures(t *testing.T) {
	h := newHarness(t, api.ModeRemote)
	h.moveTo(4)

	assert.Equal(t, []string{"r4"}, h.remote.played)
	assert.Equal(t, []string{"r4"}, h.remote.featureIDs)
	assert.False(t, h.viz.Live())
	tempo, energy, _ := h.viz.Features()
	assert.Equal(t, 140.0, tempo)
	assert.Equal(t, 0.9, energy)
}

func TestRedundantTrackChange(t *testing.T) {
	h := newHarness(t, api.ModeLocal)
	h.moveTo(2)
	h.ctrl.HandleEvent(h.state(api.ModeLocal, true))

	h.moveTo(2)
	assert.Equal(t, []string{"l2"}, h.local.played, "same index while playing is not reloaded")

	h.ctrl.HandleEvent(h.state(api.ModeLocal, false))
	h.local.calls = nil
	h.moveTo(2)
	assert.Equal(t, []string{"resume"}, h.local.calls, "same index while paused resumes")
}

func TestTrackEndWrapsToFirst(t *testing.T) {
	h := newHarness(t, api.ModeLocal)
	h.moveTo(2)
	require.Equal(t, 2, h.ctrl.CurrentIndex())

	h.ctrl.HandleEvent(api.Event{Type: api.EventTrackEnded, Source: api.ModeLocal})
	h.sched.runAll()

	assert.Equal(t, 0, h.ctrl.CurrentIndex())
	assert.Equal(t, 0, h.arm.CurrentTrackIndex())
	assert.Equal(t, []string{"l2", "l0"}, h.local.played)
}

func TestTrackEndOnSingleTrackReplays(t *testing.T) {
	h := newHarness(t, api.ModeLocal)
	h.modes.Register(api.ModeLocal, h.local, tracks("l", 1))
	h.ctrl.Start(context.Background())

	h.moveTo(0)
	h.ctrl.HandleEvent(h.state(api.ModeLocal, true))
	h.local.calls = nil

	h.ctrl.HandleEvent(h.state(api.ModeLocal, false))
	h.ctrl.HandleEvent(api.Event{Type: api.EventTrackEnded, Source: api.ModeLocal})
	h.sched.runAll()

	assert.Equal(t, []string{"play"}, h.local.calls, "the ended track is played again, not resumed")
	assert.Equal(t, []string{"l0", "l0"}, h.local.played)

	h.local.calls = nil
	h.moveTo(0)
	assert.Equal(t, []string{"resume"}, h.local.calls, "replaying clears the ended flag")
}

func TestTrackEndAdvances(t *testing.T) {
	h := newHarness(t, api.ModeRemote)
	h.moveTo(1)

	h.ctrl.HandleEvent(api.Event{Type: api.EventTrackEnded, Source: api.ModeRemote})
	h.sched.runAll()
	assert.Equal(t, 2, h.ctrl.CurrentIndex())
}

func TestSlowPlayDoesNotOvertakePause(t *testing.T) {
	slow := &slowBackend{
		remoteBackend: remoteBackend{fakeBackend: fakeBackend{mode: api.ModeLocal}},
		delay:         30 * time.Millisecond,
	}
	ctrl, modes, sched, _ := newQueuedController(t, slow)

	ctrl.MoveToTrack(1)
	sched.runAll()
	ctrl.LiftArm()
	modes.Sync()

	assert.Equal(t, []string{"play", "pause"}, slow.calls)
	assert.False(t, slow.playing)
}

func TestFeaturesOfSkippedTrackDropped(t *testing.T) {
	slow := &slowBackend{
		remoteBackend: remoteBackend{
			fakeBackend: fakeBackend{mode: api.ModeRemote},
			byID:        map[string]*api.AudioFeatures{"s1": {Tempo: 60, Energy: 0.2}},
		},
		delay: 30 * time.Millisecond,
	}
	ctrl, modes, sched, viz := newQueuedController(t, slow)

	ctrl.MoveToTrack(1)
	sched.runAll()
	ctrl.MoveToTrack(2)
	sched.runAll()
	modes.Sync()

	assert.Equal(t, []string{"s1", "s2"}, slow.played)
	assert.Equal(t, []string{"s1", "s2"}, slow.featureIDs)
	tempo, energy, _ := viz.Features()
	assert.Equal(t, 120.0, tempo, "features of the skipped track are not applied")
	assert.Equal(t, 0.5, energy)
}

func TestEventsFromInactiveBackendIgnored(t *testing.T) {
	h := newHarness(t, api.ModeLocal)
	h.moveTo(0)

	h.ctrl.HandleEvent(h.state(api.ModeRemote, true))
	assert.False(t, h.ctrl.Playing())

	h.ctrl.HandleEvent(api.Event{Type: api.EventTrackEnded, Source: api.ModeRemote})
	assert.Empty(t, h.sched.pending)
}

func TestStateChangeDrivesDisplay(t *testing.T) {
	h := newHarness(t, api.ModeLocal)

	h.ctrl.HandleEvent(h.state(api.ModeLocal, true))
	assert.True(t, h.ctrl.Playing())
	assert.True(t, h.viz.Active())
	assert.Equal(t, true, h.presenter.spinning[len(h.presenter.spinning)-1])

	h.ctrl.HandleEvent(h.state(api.ModeLocal, false))
	assert.False(t, h.viz.Active())
	assert.Equal(t, false, h.presenter.playing[len(h.presenter.playing)-1])
}

func TestArmLiftPauses(t *testing.T) {
	h := newHarness(t, api.ModeLocal)
	h.moveTo(0)
	h.local.calls = nil

	h.ctrl.LiftArm()
	assert.Equal(t, []string{"pause"}, h.local.calls)
	assert.False(t, h.arm.OnRecord())
}

func TestPlayDropsArmWhenOffRecord(t *testing.T) {
	h := newHarness(t, api.ModeLocal)

	h.ctrl.TogglePlayPause()
	assert.True(t, h.arm.Moving())
	h.sched.runAll()
	assert.Equal(t, []string{"l0"}, h.local.played)

	h.local.calls = nil
	h.ctrl.HandleEvent(h.state(api.ModeLocal, true))
	h.ctrl.TogglePlayPause()
	assert.Equal(t, []string{"pause"}, h.local.calls)

	h.ctrl.HandleEvent(h.state(api.ModeLocal, false))
	h.ctrl.TogglePlayPause()
	assert.Equal(t, []string{"pause", "resume"}, h.local.calls)
}

func TestNextPreviousWrap(t *testing.T) {
	h := newHarness(t, api.ModeLocal)

	h.ctrl.PreviousTrack()
	h.sched.runAll()
	assert.Equal(t, 2, h.ctrl.CurrentIndex(), "previous with no track wraps to the last")

	h.ctrl.NextTrack()
	h.sched.runAll()
	assert.Equal(t, 0, h.ctrl.CurrentIndex())

	h.ctrl.PreviousTrack()
	h.sched.runAll()
	assert.Equal(t, 2, h.ctrl.CurrentIndex())
}

func TestModeChangeRepushesPlaylist(t *testing.T) {
	h := newHarness(t, api.ModeLocal)
	h.moveTo(1)
	h.ctrl.HandleEvent(h.state(api.ModeLocal, true))
	h.local.calls = nil

	h.ctrl.SwitchMode(api.ModeRemote)

	assert.Equal(t, []string{"pause"}, h.local.calls)
	assert.Equal(t, []string{"stop"}, h.remote.calls)
	assert.Equal(t, api.ModeRemote, h.ctrl.Mode())
	assert.Equal(t, -1, h.ctrl.CurrentIndex())
	assert.False(t, h.ctrl.Playing())
	assert.Equal(t, 5, h.arm.TrackCount())
	assert.Len(t, h.presenter.lists[len(h.presenter.lists)-1], 5)
}

func TestPlaylistLoadedOnlyForActiveMode(t *testing.T) {
	h := newHarness(t, api.ModeLocal)
	lists := len(h.presenter.lists)

	h.ctrl.PlaylistLoaded(api.ModeRemote)
	assert.Len(t, h.presenter.lists, lists)

	h.ctrl.PlaylistLoaded(api.ModeLocal)
	assert.Len(t, h.presenter.lists, lists+1)
}

func TestPlayErrorBecomesAlert(t *testing.T) {
	h := newHarness(t, api.ModeLocal)
	errs := h.bus.Subscribe(api.EventError)
	h.local.playErr = playerrors.ErrInvalidFormat

	h.moveTo(0)

	e := <-errs
	h.ctrl.HandleEvent(e)
	require.Len(t, h.presenter.alerts, 1)
	assert.Contains(t, h.presenter.alerts[0], "play failed")
}

func TestAuthErrorFallsBackToLocal(t *testing.T) {
	h := newHarness(t, api.ModeRemote)

	h.ctrl.HandleEvent(api.Event{
		Type:    api.EventError,
		Source:  api.ModeRemote,
		Payload: api.ErrorEvent{Op: "poll", Err: playerrors.ErrTokenExpired},
	})

	assert.Equal(t, 1, h.expired)
	assert.Equal(t, api.ModeLocal, h.ctrl.Mode())
	require.NotEmpty(t, h.presenter.alerts)
	assert.Contains(t, h.presenter.alerts[0], "turntable login")
}

func TestPremiumRequiredAlert(t *testing.T) {
	h := newHarness(t, api.ModeRemote)

	h.ctrl.HandleEvent(api.Event{
		Type:    api.EventError,
		Source:  api.ModeRemote,
		Payload: api.ErrorEvent{Op: "play", Err: playerrors.NewPlayerError("play", "r0", playerrors.ErrPremiumRequired)},
	})

	assert.Equal(t, api.ModeRemote, h.ctrl.Mode())
	require.Len(t, h.presenter.alerts, 1)
	assert.Contains(t, h.presenter.alerts[0], "Premium")
}

func TestErrorFromInactiveBackendDropped(t *testing.T) {
	h := newHarness(t, api.ModeLocal)

	h.ctrl.HandleEvent(api.Event{
		Type:    api.EventError,
		Source:  api.ModeRemote,
		Payload: api.ErrorEvent{Op: "poll", Err: &playerrors.APIError{Status: 500}},
	})
	assert.Empty(t, h.presenter.alerts)
}

func TestUpdateProgress(t *testing.T) {
	h := newHarness(t, api.ModeLocal)
	h.local.position, h.local.duration = 30000, 120000

	h.ctrl.UpdateProgress()
	assert.Empty(t, h.presenter.progress, "no progress while paused")

	h.ctrl.HandleEvent(h.state(api.ModeLocal, true))
	h.ctrl.UpdateProgress()
	require.NotEmpty(t, h.presenter.progress)
	assert.Equal(t, 25.0, h.presenter.progress[len(h.presenter.progress)-1])
}

func TestVolumeAndSeek(t *testing.T) {
	h := newHarness(t, api.ModeLocal)

	h.ctrl.SetVolume(1.4)
	assert.Equal(t, 1.0, h.local.volume)
	h.ctrl.AdjustVolume(-0.25)
	assert.Equal(t, 0.75, h.ctrl.Volume())
	assert.Equal(t, 0.75, h.local.volume)

	h.ctrl.Seek(5000)
	assert.NotContains(t, h.local.calls, "seek:5000", "seek needs a current track")

	h.moveTo(0)
	h.local.position = 2000
	h.ctrl.Seek(-5000)
	assert.Contains(t, h.local.calls, "seek:0")
}

func TestCloseReleasesBackends(t *testing.T) {
	h := newHarness(t, api.ModeLocal)
	require.NoError(t, h.ctrl.Close())

	assert.True(t, h.local.closed)
	assert.True(t, h.remote.closed)

	h.moveTo(0)
	assert.Empty(t, h.local.played, "closed controller no longer reacts to the arm")
}
