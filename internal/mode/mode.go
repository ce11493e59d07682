// Package mode tracks which playback backend is active and announces
// switches between them.
package mode

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/pkg/events"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

// Option configures a Coordinator
type Option func(*Coordinator)

// WithExecutor runs every backend's tasks on exec instead of a serial
// queue per backend
func WithExecutor(exec Executor) Option {
	return func(c *Coordinator) { c.shared = exec }
}

// Coordinator owns the active mode and the backend, playlist and command
// queue behind each mode
type Coordinator struct {
	bus    *events.EventBus
	logger *log.Logger
	shared Executor

	mu        sync.RWMutex
	current   api.Mode
	backends  map[api.Mode]api.Backend
	playlists map[api.Mode]api.PlaylistSource
	queues    map[api.Mode]Executor
}

// NewCoordinator starts in initial with no backends registered
func NewCoordinator(initial api.Mode, bus *events.EventBus, logger *log.Logger, opts ...Option) *Coordinator {
	if bus == nil {
		bus = events.NewEventBus()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Coordinator{
		bus:       bus,
		logger:    logger,
		current:   initial,
		backends:  make(map[api.Mode]api.Backend),
		playlists: make(map[api.Mode]api.PlaylistSource),
		queues:    make(map[api.Mode]Executor),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register attaches the backend and playlist serving m
func (c *Coordinator) Register(m api.Mode, backend api.Backend, playlist api.PlaylistSource) {
	c.mu.Lock()
	old := c.queues[m]
	c.backends[m] = backend
	c.playlists[m] = playlist
	if c.shared != nil {
		c.queues[m] = c.shared
	} else {
		c.queues[m] = NewSerial()
	}
	c.mu.Unlock()

	if old != nil && old != c.shared {
		old.Close()
	}
}

// Unregister detaches m, used when a backend fails to initialize
func (c *Coordinator) Unregister(m api.Mode) {
	c.mu.Lock()
	q := c.queues[m]
	delete(c.backends, m)
	delete(c.playlists, m)
	delete(c.queues, m)
	c.mu.Unlock()

	if q != nil && q != c.shared {
		q.Close()
	}
}

// Do queues task behind the work already sent to m's backend. It reports
// false when m has no backend.
func (c *Coordinator) Do(m api.Mode, task func()) bool {
	c.mu.RLock()
	q := c.queues[m]
	c.mu.RUnlock()
	if q == nil {
		return false
	}
	q.Do(task)
	return true
}

// Sync waits until every backend task queued so far has run
func (c *Coordinator) Sync() {
	for _, q := range c.executors() {
		q.Sync()
	}
}

// Close runs the queued backend tasks and stops the queues. The backends
// themselves stay open.
func (c *Coordinator) Close() {
	for _, q := range c.executors() {
		q.Close()
	}
}

func (c *Coordinator) executors() []Executor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Executor
	if c.shared != nil {
		out = append(out, c.shared)
	}
	for _, q := range c.queues {
		if q != c.shared {
			out = append(out, q)
		}
	}
	return out
}

// Current returns the active mode
func (c *Coordinator) Current() api.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Available reports whether m has a backend
func (c *Coordinator) Available(m api.Mode) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.backends[m]
	return ok
}

// Backend returns the backend for m, or nil
func (c *Coordinator) Backend(m api.Mode) api.Backend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backends[m]
}

// Playlist returns the playlist for m, or nil
func (c *Coordinator) Playlist(m api.Mode) api.PlaylistSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playlists[m]
}

// Active returns the backend of the active mode, or nil
func (c *Coordinator) Active() api.Backend {
	return c.Backend(c.Current())
}

// ActivePlaylist returns the playlist of the active mode, or nil
func (c *Coordinator) ActivePlaylist() api.PlaylistSource {
	return c.Playlist(c.Current())
}

// SwitchMode makes next the active mode. A pause for the outgoing backend
// is queued behind its pending work before modeChange is emitted; the
// switch does not wait for it. Switching to the active mode does nothing.
func (c *Coordinator) SwitchMode(ctx context.Context, next api.Mode) error {
	c.mu.Lock()
	previous := c.current
	if next == previous {
		c.mu.Unlock()
		return nil
	}
	if _, ok := c.backends[next]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", playerrors.ErrBackendUnavailable, next)
	}
	outgoing := c.backends[previous]
	queue := c.queues[previous]
	c.current = next
	c.mu.Unlock()

	if outgoing != nil && queue != nil {
		queue.Do(func() {
			if err := outgoing.Pause(ctx); err != nil {
				c.logger.Warn("pause outgoing backend", "mode", previous, "err", err)
			}
		})
	}

	c.logger.Info("switched mode", "from", previous, "to", next)
	c.bus.Emit(api.Event{
		Type:    api.EventModeChange,
		Source:  next,
		Payload: api.ModeChange{Current: next, Previous: previous},
	})
	return nil
}

// RefreshPlaylist tells listeners the active mode's playlist changed
func (c *Coordinator) RefreshPlaylist() {
	current := c.Current()
	c.bus.Emit(api.Event{
		Type:    api.EventPlaylistChange,
		Source:  current,
		Payload: api.ModeChange{Current: current, Previous: current},
	})
}
