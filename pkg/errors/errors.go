package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrTrackNotFound      = errors.New("track not found")
	ErrPlaylistNotFound   = errors.New("playlist not found")
	ErrEmptyPlaylist      = errors.New("playlist has no tracks")
	ErrInvalidFormat      = errors.New("unsupported audio format")
	ErrPlaybackFailed     = errors.New("playback failed")
	ErrBackendNotReady    = errors.New("playback backend not ready")
	ErrBackendUnavailable = errors.New("playback backend unavailable")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrTokenExpired       = errors.New("access token expired")
	ErrPremiumRequired    = errors.New("streaming playback requires a premium account")
	ErrInvalidGeometry    = errors.New("invalid turntable geometry")
)

// PlayerError wraps errors with additional context
type PlayerError struct {
	Op    string // Operation that failed
	Track string // Track ID if applicable
	Err   error  // Underlying error
}

func (e *PlayerError) Error() string {
	if e.Track != "" {
		return fmt.Sprintf("%s failed for track %s: %v", e.Op, e.Track, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PlayerError) Unwrap() error {
	return e.Err
}

// NewPlayerError creates a new PlayerError
func NewPlayerError(op, track string, err error) *PlayerError {
	return &PlayerError{Op: op, Track: track, Err: err}
}

// ScanError represents an error while loading a local file
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan error at %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response from the streaming service
type APIError struct {
	Status int
	Path   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status %d for %s", e.Status, e.Path)
}

// IsAuthError reports whether err means the session must be discarded
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrTokenExpired)
}
