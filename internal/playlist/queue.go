package playlist

import (
	"sync"

	"github.com/jscyril/golang_turntable/api"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

var _ api.PlaylistSource = (*Queue)(nil)

// Queue is an ordered, wrap-around track sequence with a cursor. The
// cursor is -1 when nothing is selected.
type Queue struct {
	tracks []api.Track
	index  int
	mu     sync.RWMutex
}

// NewQueue creates a new empty queue
func NewQueue() *Queue {
	return &Queue{index: -1}
}

// Set replaces the tracks and clears the cursor
func (q *Queue) Set(tracks []api.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = make([]api.Track, len(tracks))
	copy(q.tracks, tracks)
	q.index = -1
}

// Clear removes all tracks
func (q *Queue) Clear() {
	q.Set(nil)
}

// Tracks returns a copy of the tracks in order
func (q *Queue) Tracks() []api.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]api.Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Track returns the track at index, or nil when out of range
func (q *Queue) Track(index int) *api.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	t := q.tracks[index]
	return &t
}

// Count returns the number of tracks
func (q *Queue) Count() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tracks)
}

// Current returns the selected track, or nil
func (q *Queue) Current() *api.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.index < 0 || q.index >= len(q.tracks) {
		return nil
	}
	t := q.tracks[q.index]
	return &t
}

// Index returns the cursor
func (q *Queue) Index() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.index
}

// JumpTo moves the cursor to index
func (q *Queue) JumpTo(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return playerrors.ErrTrackNotFound
	}
	q.index = index
	return nil
}

// NextIndex is the index after the cursor, wrapping to 0. With no cursor
// it is 0; with no tracks it is -1.
func (q *Queue) NextIndex() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	n := len(q.tracks)
	if n == 0 {
		return -1
	}
	if q.index < 0 {
		return 0
	}
	return (q.index + 1) % n
}

// PreviousIndex is the index before the cursor, wrapping to the last
// track. With no cursor it is 0; with no tracks it is -1.
func (q *Queue) PreviousIndex() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	n := len(q.tracks)
	if n == 0 {
		return -1
	}
	if q.index < 0 {
		return 0
	}
	return (q.index - 1 + n) % n
}

// Remove deletes the track at index, keeping the cursor on the same track.
// Removing the selected track clears the cursor.
func (q *Queue) Remove(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return playerrors.ErrTrackNotFound
	}
	q.tracks = append(q.tracks[:index:index], q.tracks[index+1:]...)

	switch {
	case q.index == index:
		q.index = -1
	case q.index > index:
		q.index--
	}
	return nil
}
