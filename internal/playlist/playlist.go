// Package playlist holds the track sequences shown on the record: a
// wrap-around Queue and the Manager that fills it from the streaming
// service's playlists.
package playlist

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/internal/spotify"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

const (
	// MaxTracks caps how many tracks of a playlist go on the record
	MaxTracks = 12

	// DefaultPlaylistID is loaded at startup when none is configured
	DefaultPlaylistID = "37i9dQZF1DXcBWIGoYBM5M"
)

// Fetcher is the slice of the Web API client the manager needs
type Fetcher interface {
	Playlist(ctx context.Context, playlistID string) (*spotify.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string, limit int) ([]api.Track, error)
	UserPlaylists(ctx context.Context, limit, offset int) (*spotify.PaginatedPlaylists, error)
}

// Summary describes one of the user's playlists
type Summary struct {
	ID         string
	Name       string
	Owner      string
	TrackCount int
}

// Manager loads remote playlists into a Queue
type Manager struct {
	fetcher   Fetcher
	queue     *Queue
	maxTracks int
	logger    *log.Logger

	mu        sync.RWMutex
	name      string
	id        string
	playlists []Summary
}

// NewManager creates a manager filling queue. maxTracks <= 0 uses MaxTracks.
func NewManager(fetcher Fetcher, queue *Queue, maxTracks int, logger *log.Logger) *Manager {
	if maxTracks <= 0 {
		maxTracks = MaxTracks
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{
		fetcher:   fetcher,
		queue:     queue,
		maxTracks: maxTracks,
		logger:    logger,
	}
}

// Queue returns the sequence the manager fills
func (m *Manager) Queue() *Queue {
	return m.queue
}

// Current returns the loaded playlist's ID and name
func (m *Manager) Current() (id, name string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id, m.name
}

// LoadByID loads a playlist whose name is not known yet
func (m *Manager) LoadByID(ctx context.Context, playlistID string) ([]api.Track, error) {
	if playlistID == "" {
		playlistID = DefaultPlaylistID
	}
	p, err := m.fetcher.Playlist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("get playlist %s: %w", playlistID, err)
	}
	return m.Load(ctx, p.ID, p.Name)
}

// Load replaces the queue with the first tracks of a playlist. An empty
// playlist leaves the queue untouched and returns ErrEmptyPlaylist.
func (m *Manager) Load(ctx context.Context, playlistID, name string) ([]api.Track, error) {
	tracks, err := m.fetcher.PlaylistTracks(ctx, playlistID, m.maxTracks)
	if err != nil {
		return nil, fmt.Errorf("get playlist tracks %s: %w", playlistID, err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", playerrors.ErrEmptyPlaylist, name)
	}
	if len(tracks) > m.maxTracks {
		tracks = tracks[:m.maxTracks]
	}

	m.queue.Set(tracks)
	m.mu.Lock()
	m.id = playlistID
	m.name = name
	m.mu.Unlock()

	m.logger.Info("loaded playlist", "name", name, "tracks", len(tracks))
	return tracks, nil
}

// UserPlaylists lists the user's playlists, following pagination. The
// result is cached until refresh is set.
func (m *Manager) UserPlaylists(ctx context.Context, refresh bool) ([]Summary, error) {
	m.mu.RLock()
	cached := m.playlists
	m.mu.RUnlock()
	if cached != nil && !refresh {
		return cached, nil
	}

	var all []Summary
	const pageSize = 50
	for offset := 0; ; offset += pageSize {
		page, err := m.fetcher.UserPlaylists(ctx, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list playlists: %w", err)
		}
		for _, p := range page.Items {
			all = append(all, Summary{
				ID:         p.ID,
				Name:       p.Name,
				Owner:      p.Owner.DisplayName,
				TrackCount: p.Tracks.Total,
			})
		}
		if page.Next == nil || len(page.Items) == 0 {
			break
		}
	}
	if all == nil {
		all = []Summary{}
	}

	m.mu.Lock()
	m.playlists = all
	m.mu.Unlock()
	return all, nil
}

// Filter returns the playlists whose name contains query, ignoring case
func Filter(playlists []Summary, query string) []Summary {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return playlists
	}
	var out []Summary
	for _, p := range playlists {
		if strings.Contains(strings.ToLower(p.Name), query) {
			out = append(out, p)
		}
	}
	return out
}
