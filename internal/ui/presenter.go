package ui

import (
	"time"

	"github.com/jscyril/golang_turntable/api"
)

// alertTTL is how long an alert stays on screen
const alertTTL = 6 * time.Second

var _ api.Presenter = (*Display)(nil)

// Alert is a message shown to the user
type Alert struct {
	Message string
	At      time.Time
}

// Display collects what the controller wants on screen. It is written and
// read on the UI loop only.
type Display struct {
	Tracks    []api.Track
	// Revision changes every time the track list is replaced
	Revision  int
	Highlight int
	Track     *api.Track
	Artwork   *api.Track

	Percent    float64
	PositionMs int64
	DurationMs int64

	Playing  bool
	Spinning bool

	alerts []Alert
	now    func() time.Time
}

// NewDisplay creates an empty display
func NewDisplay() *Display {
	return &Display{Highlight: -1, now: time.Now}
}

// ShowAlbumArt implements api.Presenter
func (d *Display) ShowAlbumArt(track *api.Track) {
	d.Artwork = copyTrack(track)
}

// ShowTrackInfo implements api.Presenter
func (d *Display) ShowTrackInfo(track *api.Track) {
	d.Track = copyTrack(track)
}

// RenderTrackList implements api.Presenter. A new list clears the track
// info and artwork.
func (d *Display) RenderTrackList(tracks []api.Track) {
	d.Tracks = append([]api.Track(nil), tracks...)
	d.Revision++
	d.Highlight = -1
	d.Track = nil
	d.Artwork = nil
}

// HighlightTrack implements api.Presenter
func (d *Display) HighlightTrack(index int) {
	if index < 0 || index >= len(d.Tracks) {
		index = -1
	}
	d.Highlight = index
}

// SetProgress implements api.Presenter
func (d *Display) SetProgress(percent float64, positionMs, durationMs int64) {
	d.Percent = percent
	d.PositionMs = positionMs
	d.DurationMs = durationMs
}

// SetPlaying implements api.Presenter
func (d *Display) SetPlaying(playing bool) {
	d.Playing = playing
}

// SetSpinning implements api.Presenter
func (d *Display) SetSpinning(spinning bool) {
	d.Spinning = spinning
}

// Alert implements api.Presenter
func (d *Display) Alert(message string) {
	d.alerts = append(d.alerts, Alert{Message: message, At: d.now()})
}

// Alerts returns the alerts still on screen, oldest first, and forgets
// expired ones
func (d *Display) Alerts() []Alert {
	cutoff := d.now().Add(-alertTTL)
	live := d.alerts[:0]
	for _, a := range d.alerts {
		if a.At.After(cutoff) {
			live = append(live, a)
		}
	}
	d.alerts = live
	return append([]Alert(nil), live...)
}

// DismissAlerts clears every alert
func (d *Display) DismissAlerts() {
	d.alerts = nil
}

func copyTrack(track *api.Track) *api.Track {
	if track == nil {
		return nil
	}
	t := *track
	return &t
}
