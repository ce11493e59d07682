package api

import (
	"context"
	"fmt"
	"time"
)

// Track is a single playable item. Tracks are not modified after they are
// built; a playlist is an ordered slice of them.
type Track struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMs int64  `json:"duration_ms"`
	ImageURL   string `json:"image_url,omitempty"`
	CoverArt   []byte `json:"-"`
	URI        string `json:"uri,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
	IsLocal    bool   `json:"is_local"`
}

// Duration returns the track length as a time.Duration
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMs) * time.Millisecond
}

// PlayableRef returns the backend-specific reference used to start playback
func (t Track) PlayableRef() string {
	if t.IsLocal {
		return t.FilePath
	}
	return t.URI
}

// HasArtwork reports whether the track carries any album art
func (t Track) HasArtwork() bool {
	return t.ImageURL != "" || len(t.CoverArt) > 0
}

// Mode selects which playback backend is active
type Mode int

const (
	ModeRemote Mode = iota
	ModeLocal
)

func (m Mode) String() string {
	switch m {
	case ModeRemote:
		return "remote"
	case ModeLocal:
		return "local"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a mode name into a Mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case "remote", "spotify":
		return ModeRemote, nil
	case "local":
		return ModeLocal, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// PlaybackState is the snapshot a backend produces on every transport change
type PlaybackState struct {
	IsPlaying  bool   `json:"is_playing"`
	Track      *Track `json:"track,omitempty"`
	PositionMs int64  `json:"position_ms"`
	DurationMs int64  `json:"duration_ms"`
}

// Progress returns the playback position as a percentage in [0,100]
func (s PlaybackState) Progress() float64 {
	if s.DurationMs <= 0 {
		return 0
	}
	p := float64(s.PositionMs) / float64(s.DurationMs) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// EventType names an event carried by the event bus
type EventType string

const (
	// Tonearm events
	EventTrackChange EventType = "track_change"
	EventArmDrop     EventType = "arm_drop"
	EventArmLift     EventType = "arm_lift"

	// Backend events
	EventStateChange EventType = "state_change"
	EventTrackEnded  EventType = "track_ended"
	EventError       EventType = "error"

	// Coordinator events
	EventModeChange     EventType = "mode_change"
	EventPlaylistChange EventType = "playlist_change"
)

// Event is the envelope published on the bus. Source identifies the backend
// that produced a backend event.
type Event struct {
	Type    EventType
	Source  Mode
	Payload any
}

// TrackChange is the payload of EventTrackChange
type TrackChange struct {
	Index int
}

// ModeChange is the payload of EventModeChange
type ModeChange struct {
	Current  Mode
	Previous Mode
}

// ErrorEvent is the payload of EventError
type ErrorEvent struct {
	Op  string
	Err error
}

// Backend is the playback capability shared by the streaming and local
// players. Implementations must not panic on transport calls made while
// nothing is loaded.
type Backend interface {
	Mode() Mode
	PlayTrack(ctx context.Context, track *Track) error
	Resume(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	Seek(ctx context.Context, positionMs int64) error
	SetVolume(ctx context.Context, level float64) error
	Position() int64
	Duration() int64
	State() PlaybackState
	Close() error
}

// SpectrumSource is a live frequency-domain tap over the audio output
type SpectrumSource interface {
	Spectrum(bands int) []float64
}

// AudioFeatures are precomputed descriptors of a remote track
type AudioFeatures struct {
	Tempo    float64 `json:"tempo"`
	Energy   float64 `json:"energy"`
	Loudness float64 `json:"loudness"`
}

// FeatureSource fetches audio features out of band
type FeatureSource interface {
	AudioFeatures(ctx context.Context, trackID string) (*AudioFeatures, error)
}

// PlaylistSource is an ordered track sequence
type PlaylistSource interface {
	Tracks() []Track
	Track(index int) *Track
	Count() int
}

// Presenter receives one-way display updates
type Presenter interface {
	ShowAlbumArt(track *Track)
	ShowTrackInfo(track *Track)
	RenderTrackList(tracks []Track)
	HighlightTrack(index int)
	SetProgress(percent float64, positionMs, durationMs int64)
	SetPlaying(playing bool)
	SetSpinning(spinning bool)
	Alert(message string)
}

// FormatDuration formats milliseconds as M:SS
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
