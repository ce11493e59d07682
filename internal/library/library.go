// Package library holds the local playlist: audio files loaded from disk
// with their tag metadata.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jscyril/golang_turntable/api"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

var _ api.PlaylistSource = (*Library)(nil)

// Library is the ordered list of local tracks
type Library struct {
	tracks  []api.Track
	scanner *Scanner
	logger  *log.Logger
	mu      sync.RWMutex
}

// NewLibrary creates an empty library
func NewLibrary(logger *log.Logger) *Library {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Library{
		scanner: NewScanner(4),
		logger:  logger,
	}
}

// Load appends the audio files named by paths, walking directories. It
// returns the tracks added; per-file failures are logged and joined into
// the error while the readable files still load.
func (l *Library) Load(ctx context.Context, paths ...string) ([]api.Track, error) {
	files, errs := l.scanner.Expand(ctx, paths)
	tracks, readErrs := l.scanner.ReadFiles(ctx, files)
	errs = append(errs, readErrs...)

	for _, err := range errs {
		l.logger.Warn("skipping file", "err", err)
	}

	l.mu.Lock()
	l.tracks = append(l.tracks, tracks...)
	l.mu.Unlock()

	l.logger.Info("loaded local tracks", "added", len(tracks), "total", l.Count())
	if len(tracks) == 0 && len(errs) == 0 {
		return nil, fmt.Errorf("%w: no audio files in %s", playerrors.ErrEmptyPlaylist, strings.Join(paths, ", "))
	}
	return tracks, errors.Join(errs...)
}

// Tracks returns a copy of the loaded tracks in order
func (l *Library) Tracks() []api.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]api.Track, len(l.tracks))
	copy(out, l.tracks)
	return out
}

// Track returns the track at index, or nil when out of range
func (l *Library) Track(index int) *api.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 || index >= len(l.tracks) {
		return nil
	}
	t := l.tracks[index]
	return &t
}

// Count returns the number of loaded tracks
func (l *Library) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tracks)
}

// Remove deletes the track at index and returns it
func (l *Library) Remove(index int) (api.Track, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.tracks) {
		return api.Track{}, playerrors.ErrTrackNotFound
	}
	removed := l.tracks[index]
	l.tracks = append(l.tracks[:index:index], l.tracks[index+1:]...)
	return removed, nil
}

// Clear removes all tracks
func (l *Library) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tracks = nil
}

// Search returns the indices of tracks whose name, artist or album
// contains query, ignoring case
func (l *Library) Search(query string) []int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	var matches []int
	for i, t := range l.tracks {
		if query == "" ||
			strings.Contains(strings.ToLower(t.Name), query) ||
			strings.Contains(strings.ToLower(t.Artist), query) ||
			strings.Contains(strings.ToLower(t.Album), query) {
			matches = append(matches, i)
		}
	}
	return matches
}
