package mode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/pkg/events"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

// fakeBackend appends its calls to a log shared with the event handlers
type fakeBackend struct {
	mode     api.Mode
	log      *[]string
	playing  bool
	pauseErr error
}

func (f *fakeBackend) Mode() api.Mode { return f.mode }
func (f *fakeBackend) PlayTrack(ctx context.Context, t *api.Track) error {
	f.playing = true
	return nil
}
func (f *fakeBackend) Resume(ctx context.Context) error { return nil }
func (f *fakeBackend) Pause(ctx context.Context) error {
	*f.log = append(*f.log, "pause:"+f.mode.String())
	f.playing = false
	return f.pauseErr
}
func (f *fakeBackend) Stop(ctx context.Context) error                { return nil }
func (f *fakeBackend) Seek(ctx context.Context, ms int64) error      { return nil }
func (f *fakeBackend) SetVolume(ctx context.Context, v float64) error { return nil }
func (f *fakeBackend) Position() int64                               { return 0 }
func (f *fakeBackend) Duration() int64                               { return 0 }
func (f *fakeBackend) State() api.PlaybackState {
	return api.PlaybackState{IsPlaying: f.playing}
}
func (f *fakeBackend) Close() error { return nil }

type staticPlaylist []api.Track

func (p staticPlaylist) Tracks() []api.Track { return p }
func (p staticPlaylist) Track(i int) *api.Track {
	if i < 0 || i >= len(p) {
		return nil
	}
	return &p[i]
}
func (p staticPlaylist) Count() int { return len(p) }

func setup(t *testing.T) (*Coordinator, *fakeBackend, *fakeBackend, *events.EventBus, *[]string) {
	t.Helper()
	var calls []string
	bus := events.NewEventBus()
	remote := &fakeBackend{mode: api.ModeRemote, log: &calls}
	local := &fakeBackend{mode: api.ModeLocal, log: &calls}

	c := NewCoordinator(api.ModeRemote, bus, nil, WithExecutor(Inline))
	c.Register(api.ModeRemote, remote, staticPlaylist{{ID: "r1"}})
	c.Register(api.ModeLocal, local, staticPlaylist{{ID: "l1"}, {ID: "l2"}})
	return c, remote, local, bus, &calls
}

func TestSwitchPausesBeforeModeChange(t *testing.T) {
	c, remote, _, bus, calls := setup(t)
	remote.playing = true

	var got []api.ModeChange
	bus.On(api.EventModeChange, func(e api.Event) {
		*calls = append(*calls, "modeChange")
		got = append(got, e.Payload.(api.ModeChange))
	})

	require.NoError(t, c.SwitchMode(context.Background(), api.ModeLocal))

	assert.Equal(t, []string{"pause:remote", "modeChange"}, *calls)
	assert.Equal(t, []api.ModeChange{{Current: api.ModeLocal, Previous: api.ModeRemote}}, got)
	assert.False(t, remote.State().IsPlaying)
	assert.Equal(t, api.ModeLocal, c.Current())
	assert.Equal(t, 2, c.ActivePlaylist().Count())
}

func TestSwitchToSameModeIsNoop(t *testing.T) {
	c, _, _, bus, calls := setup(t)
	fired := 0
	bus.On(api.EventModeChange, func(api.Event) { fired++ })

	require.NoError(t, c.SwitchMode(context.Background(), api.ModeRemote))
	assert.Zero(t, fired)
	assert.Empty(t, *calls)
}

func TestSwitchToMissingBackend(t *testing.T) {
	c, _, _, _, calls := setup(t)
	c.Unregister(api.ModeLocal)

	err := c.SwitchMode(context.Background(), api.ModeLocal)
	assert.ErrorIs(t, err, playerrors.ErrBackendUnavailable)
	assert.Equal(t, api.ModeRemote, c.Current())
	assert.Empty(t, *calls, "nothing is paused when the switch is refused")
	assert.False(t, c.Available(api.ModeLocal))
	assert.Nil(t, c.Playlist(api.ModeLocal))
}

func TestPauseFailureDoesNotBlockSwitch(t *testing.T) {
	c, remote, _, bus, _ := setup(t)
	remote.pauseErr = errors.New("device gone")
	fired := 0
	bus.On(api.EventModeChange, func(api.Event) { fired++ })

	require.NoError(t, c.SwitchMode(context.Background(), api.ModeLocal))
	assert.Equal(t, 1, fired)
	assert.Same(t, c.Backend(api.ModeLocal), c.Active())
}

func TestRefreshPlaylist(t *testing.T) {
	c, _, _, bus, _ := setup(t)
	var got []api.Event
	bus.On(api.EventPlaylistChange, func(e api.Event) { got = append(got, e) })

	c.RefreshPlaylist()
	require.Len(t, got, 1)
	assert.Equal(t, api.ModeRemote, got[0].Source)
	assert.Equal(t, api.ModeChange{Current: api.ModeRemote, Previous: api.ModeRemote}, got[0].Payload)
}

// blockingBackend holds Pause until release is closed
type blockingBackend struct {
	fakeBackend
	mu      sync.Mutex
	calls   []string
	release chan struct{}
}

func (b *blockingBackend) PlayTrack(ctx context.Context, t *api.Track) error {
	time.Sleep(20 * time.Millisecond)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "play:"+t.ID)
	return nil
}

func (b *blockingBackend) Pause(ctx context.Context) error {
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "pause")
	return nil
}

func (b *blockingBackend) recorded() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func TestSwitchQueuesPauseBehindPendingWork(t *testing.T) {
	bus := events.NewEventBus()
	remote := &blockingBackend{fakeBackend: fakeBackend{mode: api.ModeRemote}, release: make(chan struct{})}
	local := &fakeBackend{mode: api.ModeLocal, log: new([]string)}

	c := NewCoordinator(api.ModeRemote, bus, nil)
	t.Cleanup(c.Close)
	c.Register(api.ModeRemote, remote, staticPlaylist{{ID: "r1"}})
	c.Register(api.ModeLocal, local, staticPlaylist{{ID: "l1"}})
	release := sync.OnceFunc(func() { close(remote.release) })
	t.Cleanup(release)

	fired := make(chan struct{}, 1)
	bus.On(api.EventModeChange, func(api.Event) { fired <- struct{}{} })

	ctx := context.Background()
	require.True(t, c.Do(api.ModeRemote, func() { _ = remote.PlayTrack(ctx, &api.Track{ID: "r1"}) }))
	errc := make(chan error, 1)
	go func() { errc <- c.SwitchMode(ctx, api.ModeLocal) }()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("switch waited for the outgoing backend")
	}
	assert.Len(t, fired, 1)
	assert.Equal(t, api.ModeLocal, c.Current())

	release()
	c.Sync()
	assert.Equal(t, []string{"play:r1", "pause"}, remote.recorded())
}

func TestDoWithoutBackend(t *testing.T) {
	c := NewCoordinator(api.ModeLocal, nil, nil)
	t.Cleanup(c.Close)

	ran := false
	assert.False(t, c.Do(api.ModeLocal, func() { ran = true }))
	assert.False(t, ran)
}

func TestSerialRunsInOrder(t *testing.T) {
	s := NewSerial()

	var got []int
	for i := range 50 {
		s.Do(func() { got = append(got, i) })
	}
	s.Sync()
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}

	s.Do(func() { got = append(got, 50) })
	s.Close()
	assert.Len(t, got, 51, "Close runs what was already queued")

	s.Do(func() { got = append(got, 99) })
	s.Sync()
	assert.Len(t, got, 51, "tasks after Close are dropped")
}
