package playlist

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/internal/spotify"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

func makeTracks(n int) []api.Track {
	tracks := make([]api.Track, n)
	for i := range tracks {
		tracks[i] = api.Track{ID: fmt.Sprintf("t%d", i), Name: fmt.Sprintf("Track %d", i), URI: fmt.Sprintf("spotify:track:t%d", i)}
	}
	return tracks
}

type fakeFetcher struct {
	playlists map[string]*spotify.Playlist
	tracks    map[string][]api.Track
	pages     []*spotify.PaginatedPlaylists
	err       error
	gotLimit  int
	pageCalls int
}

func (f *fakeFetcher) Playlist(ctx context.Context, id string) (*spotify.Playlist, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.playlists[id]
	if !ok {
		return nil, playerrors.ErrPlaylistNotFound
	}
	return p, nil
}

func (f *fakeFetcher) PlaylistTracks(ctx context.Context, id string, limit int) ([]api.Track, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.gotLimit = limit
	return f.tracks[id], nil
}

func (f *fakeFetcher) UserPlaylists(ctx context.Context, limit, offset int) (*spotify.PaginatedPlaylists, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[f.pageCalls]
	f.pageCalls++
	return page, nil
}

func TestQueueWrap(t *testing.T) {
	q := NewQueue()
	if q.NextIndex() != -1 || q.PreviousIndex() != -1 {
		t.Error("empty queue should have no next/previous")
	}

	q.Set(makeTracks(3))
	if q.Index() != -1 || q.Current() != nil {
		t.Error("Set should clear the cursor")
	}
	if q.NextIndex() != 0 || q.PreviousIndex() != 0 {
		t.Error("no cursor should start at 0")
	}

	tests := []struct {
		at       int
		next     int
		previous int
	}{
		{0, 1, 2},
		{1, 2, 0},
		{2, 0, 1},
	}
	for _, tt := range tests {
		if err := q.JumpTo(tt.at); err != nil {
			t.Fatal(err)
		}
		if got := q.NextIndex(); got != tt.next {
			t.Errorf("at %d: NextIndex = %d, want %d", tt.at, got, tt.next)
		}
		if got := q.PreviousIndex(); got != tt.previous {
			t.Errorf("at %d: PreviousIndex = %d, want %d", tt.at, got, tt.previous)
		}
	}

	if err := q.JumpTo(3); !errors.Is(err, playerrors.ErrTrackNotFound) {
		t.Errorf("JumpTo out of range: %v", err)
	}
}

func TestQueueRemoveKeepsCursor(t *testing.T) {
	q := NewQueue()
	q.Set(makeTracks(4))
	q.JumpTo(2)

	if err := q.Remove(0); err != nil {
		t.Fatal(err)
	}
	if q.Index() != 1 || q.Current().ID != "t2" {
		t.Errorf("cursor should follow t2, got index %d", q.Index())
	}

	if err := q.Remove(1); err != nil {
		t.Fatal(err)
	}
	if q.Index() != -1 {
		t.Errorf("removing the selected track should clear the cursor, got %d", q.Index())
	}
	if q.Count() != 2 {
		t.Errorf("Count = %d, want 2", q.Count())
	}
	if q.Track(5) != nil {
		t.Error("expected nil for out of range track")
	}
}

func TestManagerLoad(t *testing.T) {
	f := &fakeFetcher{
		playlists: map[string]*spotify.Playlist{
			DefaultPlaylistID: {ID: DefaultPlaylistID, Name: "Today's Top Hits"},
		},
		tracks: map[string][]api.Track{
			DefaultPlaylistID: makeTracks(20),
			"empty":           nil,
		},
	}
	q := NewQueue()
	m := NewManager(f, q, 0, nil)

	tracks, err := m.LoadByID(context.Background(), "")
	if err != nil {
		t.Fatalf("LoadByID: %v", err)
	}
	if len(tracks) != MaxTracks || q.Count() != MaxTracks {
		t.Errorf("expected %d tracks, got %d (queue %d)", MaxTracks, len(tracks), q.Count())
	}
	if f.gotLimit != MaxTracks {
		t.Errorf("limit = %d, want %d", f.gotLimit, MaxTracks)
	}
	if id, name := m.Current(); id != DefaultPlaylistID || name != "Today's Top Hits" {
		t.Errorf("Current = %s %q", id, name)
	}

	_, err = m.Load(context.Background(), "empty", "Nothing")
	if !errors.Is(err, playerrors.ErrEmptyPlaylist) {
		t.Errorf("expected ErrEmptyPlaylist, got %v", err)
	}
	if q.Count() != MaxTracks {
		t.Error("empty playlist must not replace the queue")
	}
	if _, name := m.Current(); name != "Today's Top Hits" {
		t.Errorf("current playlist changed to %q", name)
	}
}

func TestManagerLoadError(t *testing.T) {
	f := &fakeFetcher{err: playerrors.ErrTokenExpired}
	m := NewManager(f, NewQueue(), 5, nil)

	if _, err := m.LoadByID(context.Background(), "x"); !errors.Is(err, playerrors.ErrTokenExpired) {
		t.Errorf("expected wrapped ErrTokenExpired, got %v", err)
	}
}

func TestUserPlaylistsPaginatesAndCaches(t *testing.T) {
	next := "more"
	page1 := &spotify.PaginatedPlaylists{Next: &next}
	page1.Items = append(page1.Items, spotify.SimplePlaylist{ID: "a", Name: "Jazz Classics"})
	page2 := &spotify.PaginatedPlaylists{}
	page2.Items = append(page2.Items, spotify.SimplePlaylist{ID: "b", Name: "Morning Jazz"}, spotify.SimplePlaylist{ID: "c", Name: "Punk"})

	f := &fakeFetcher{pages: []*spotify.PaginatedPlaylists{page1, page2}}
	m := NewManager(f, NewQueue(), 0, nil)

	all, err := m.UserPlaylists(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d playlists, want 3", len(all))
	}

	if _, err := m.UserPlaylists(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if f.pageCalls != 2 {
		t.Errorf("expected cached listing, fetched %d pages", f.pageCalls)
	}

	jazz := Filter(all, "JAZZ")
	if len(jazz) != 2 || jazz[0].ID != "a" || jazz[1].ID != "b" {
		t.Errorf("Filter(JAZZ) = %+v", jazz)
	}
	if len(Filter(all, "  ")) != 3 {
		t.Error("blank query should keep everything")
	}
	if Filter(all, "opera") != nil {
		t.Error("expected no matches")
	}
}
