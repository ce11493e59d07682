// Package spotify is the streaming playback backend: a Web API client and a
// Backend that drives a Spotify Connect device through it.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/jscyril/golang_turntable/api"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

const (
	// DefaultBaseURL is the Web API root
	DefaultBaseURL = "https://api.spotify.com/v1"

	unknownArtist = "Unknown Artist"
)

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL points the client at another API root
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets the transport the oauth2 client wraps
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.base = hc }
}

// WithRateLimit caps requests per second
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithUnauthorized registers fn to run when the API rejects the token
func WithUnauthorized(fn func()) ClientOption {
	return func(c *Client) { c.onUnauthorized = fn }
}

// Client calls the Spotify Web API with a bearer token pulled from src on
// every request
type Client struct {
	baseURL        string
	base           *http.Client
	httpClient     *http.Client
	limiter        *rate.Limiter
	onUnauthorized func()
}

// NewClient creates a client authenticated by src
func NewClient(src oauth2.TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		base:    http.DefaultClient,
		limiter: rate.NewLimiter(rate.Limit(10), 5),
	}
	for _, opt := range opts {
		opt(c)
	}

	transport := c.base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	c.httpClient = &http.Client{
		Transport: &oauth2.Transport{Source: src, Base: transport},
		Timeout:   c.base.Timeout,
	}
	return c
}

// doRequest performs an authenticated request and decodes a JSON result
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return playerrors.ErrTokenExpired
	case resp.StatusCode == http.StatusForbidden:
		return playerrors.ErrPremiumRequired
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &playerrors.APIError{Status: resp.StatusCode, Path: endpoint}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CurrentUser retrieves the authenticated user's profile
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPlaylists retrieves one page of the user's playlists
func (c *Client) UserPlaylists(ctx context.Context, limit, offset int) (*PaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)
	var page PaginatedPlaylists
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Playlist retrieves a playlist by ID
func (c *Client) Playlist(ctx context.Context, playlistID string) (*Playlist, error) {
	var playlist Playlist
	if err := c.doRequest(ctx, http.MethodGet, "/playlists/"+url.PathEscape(playlistID), nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// PlaylistTracks returns up to limit playable tracks of a playlist. Items
// the service cannot resolve are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string, limit int) ([]api.Track, error) {
	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(min(limit, 100))
	}

	var page PlaylistTracks
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	return page.Playable(limit), nil
}

// AudioFeatures retrieves tempo, energy and loudness for a track
func (c *Client) AudioFeatures(ctx context.Context, trackID string) (*AudioFeatures, error) {
	var features AudioFeatures
	if err := c.doRequest(ctx, http.MethodGet, "/audio-features/"+url.PathEscape(trackID), nil, &features); err != nil {
		return nil, err
	}
	return &features, nil
}

// Devices lists the user's Connect devices
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var list deviceList
	if err := c.doRequest(ctx, http.MethodGet, "/me/player/devices", nil, &list); err != nil {
		return nil, err
	}
	return list.Devices, nil
}

// PlayerState returns the current playback state, or nil when nothing is
// playing anywhere
func (c *Client) PlayerState(ctx context.Context) (*PlayerState, error) {
	var state PlayerState
	if err := c.doRequest(ctx, http.MethodGet, "/me/player", nil, &state); err != nil {
		return nil, err
	}
	if state.Item == nil && state.Device.ID == "" {
		return nil, nil
	}
	return &state, nil
}

// Play starts uris on deviceID. Empty uris resumes the current context.
func (c *Client) Play(ctx context.Context, deviceID string, uris ...string) error {
	var body any
	if len(uris) > 0 {
		body = playRequest{URIs: uris}
	}
	return c.doRequest(ctx, http.MethodPut, "/me/player/play"+deviceQuery(deviceID, nil), body, nil)
}

// Pause pauses playback on deviceID
func (c *Client) Pause(ctx context.Context, deviceID string) error {
	return c.doRequest(ctx, http.MethodPut, "/me/player/pause"+deviceQuery(deviceID, nil), nil, nil)
}

// Seek moves playback on deviceID to positionMs
func (c *Client) Seek(ctx context.Context, deviceID string, positionMs int64) error {
	q := url.Values{"position_ms": {strconv.FormatInt(positionMs, 10)}}
	return c.doRequest(ctx, http.MethodPut, "/me/player/seek"+deviceQuery(deviceID, q), nil, nil)
}

// SetVolume sets deviceID's volume in percent
func (c *Client) SetVolume(ctx context.Context, deviceID string, percent int) error {
	q := url.Values{"volume_percent": {strconv.Itoa(percent)}}
	return c.doRequest(ctx, http.MethodPut, "/me/player/volume"+deviceQuery(deviceID, q), nil, nil)
}

// ConvertTrack maps a Web API track onto the player's track type
func ConvertTrack(t *Track) api.Track {
	artist := unknownArtist
	if len(t.Artists) > 0 && t.Artists[0].Name != "" {
		artist = t.Artists[0].Name
	}
	image := ""
	if len(t.Album.Images) > 0 {
		image = t.Album.Images[0].URL
	}
	return api.Track{
		ID:         t.ID,
		Name:       t.Name,
		Artist:     artist,
		Album:      t.Album.Name,
		DurationMs: t.DurationMS,
		ImageURL:   image,
		URI:        t.URI,
	}
}

func deviceQuery(deviceID string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
