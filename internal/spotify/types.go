package spotify

import "github.com/jscyril/golang_turntable/api"

// Web API response types, trimmed to the fields the player reads.
// https://developer.spotify.com/documentation/web-api/reference/

// User is the current user's profile
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Product     string `json:"product"` // premium, free, etc.
}

// Image is an artwork resource
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist is a simplified artist
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album is a simplified album
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track is a full track object
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMS int64    `json:"duration_ms"`
	URI        string   `json:"uri"`
}

// PlaylistItem is a track within a playlist. Track is nil for items the
// service can no longer resolve.
type PlaylistItem struct {
	AddedAt string `json:"added_at"`
	Track   *Track `json:"track"`
}

// PlaylistTracks is one page of playlist items
type PlaylistTracks struct {
	Items []PlaylistItem `json:"items"`
	Total int            `json:"total"`
	Next  *string        `json:"next"`
}

// Playable converts up to limit items to tracks, skipping items with no
// playable track. A limit of zero or less keeps every item.
func (p PlaylistTracks) Playable(limit int) []api.Track {
	tracks := make([]api.Track, 0, len(p.Items))
	for _, item := range p.Items {
		if item.Track == nil || item.Track.URI == "" {
			continue
		}
		tracks = append(tracks, ConvertTrack(item.Track))
		if limit > 0 && len(tracks) == limit {
			break
		}
	}
	return tracks
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type trackCount struct {
	Total int `json:"total"`
}

// SimplePlaylist is a playlist as it appears in listings
type SimplePlaylist struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Owner       owner      `json:"owner"`
	Tracks      trackCount `json:"tracks"`
	Images      []Image    `json:"images"`
}

// Playlist is a full playlist with its first page of items
type Playlist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       owner          `json:"owner"`
	Tracks      PlaylistTracks `json:"tracks"`
	Images      []Image        `json:"images"`
}

// PaginatedPlaylists is one page of the user's playlists
type PaginatedPlaylists struct {
	Items  []SimplePlaylist `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Next   *string          `json:"next"`
}

// Device is a Spotify Connect playback target
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	IsRestricted  bool   `json:"is_restricted"`
	VolumePercent int    `json:"volume_percent"`
}

type deviceList struct {
	Devices []Device `json:"devices"`
}

// PlayerState is the response of GET /me/player
type PlayerState struct {
	Device     Device `json:"device"`
	IsPlaying  bool   `json:"is_playing"`
	ProgressMS int64  `json:"progress_ms"`
	Item       *Track `json:"item"`
}

// AudioFeatures are the service's precomputed track descriptors
type AudioFeatures struct {
	ID       string  `json:"id"`
	Tempo    float64 `json:"tempo"`
	Energy   float64 `json:"energy"`
	Loudness float64 `json:"loudness"`
}

type playRequest struct {
	URIs       []string `json:"uris,omitempty"`
	PositionMS int64    `json:"position_ms,omitempty"`
}
