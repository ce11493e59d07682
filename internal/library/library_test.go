package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"

	"github.com/jscyril/golang_turntable/api"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

func writeWAV(t *testing.T, path string, d time.Duration) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	rate := beep.SampleRate(22050)
	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, beep.Silence(rate.N(d)), format); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMetadataReaderDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Side A.wav")
	writeWAV(t, path, time.Second)

	track, err := NewMetadataReader().Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if track.Name != "Side A" {
		t.Errorf("Name = %q, want file name without extension", track.Name)
	}
	if track.Artist != unknownArtist || track.Album != unknownAlbum {
		t.Errorf("Artist/Album = %q/%q", track.Artist, track.Album)
	}
	if !track.IsLocal || track.FilePath != path {
		t.Errorf("expected local track at %s, got %+v", path, track)
	}
	if track.ID == "" {
		t.Error("expected generated ID")
	}
	if track.DurationMs < 990 || track.DurationMs > 1010 {
		t.Errorf("DurationMs = %d, want ~1000", track.DurationMs)
	}
}

func TestMetadataReaderMissingFile(t *testing.T) {
	if _, err := NewMetadataReader().Read("/does/not/exist.mp3"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOrdersAndSkips(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "album", "02.wav"), 100*time.Millisecond)
	writeWAV(t, filepath.Join(dir, "album", "01.wav"), 100*time.Millisecond)
	single := filepath.Join(dir, "single.wav")
	writeWAV(t, single, 100*time.Millisecond)
	notes := filepath.Join(dir, "album", "notes.txt")
	if err := os.WriteFile(notes, []byte("liner notes"), 0644); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary(nil)
	added, err := lib.Load(context.Background(), single, filepath.Join(dir, "album"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []string{"single", "01", "02"}
	if len(added) != len(want) {
		t.Fatalf("added %d tracks, want %d", len(added), len(want))
	}
	for i, name := range want {
		if added[i].Name != name {
			t.Errorf("track %d = %q, want %q", i, added[i].Name, name)
		}
	}
	if lib.Count() != 3 {
		t.Errorf("Count = %d", lib.Count())
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.wav")
	writeWAV(t, good, 50*time.Millisecond)
	bad := filepath.Join(dir, "cover.jpg")
	if err := os.WriteFile(bad, []byte{0xff, 0xd8}, 0644); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary(nil)
	added, err := lib.Load(context.Background(), good, bad)
	if !errors.Is(err, playerrors.ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
	if len(added) != 1 {
		t.Errorf("readable files should still load, got %d", len(added))
	}

	empty := t.TempDir()
	if _, err := NewLibrary(nil).Load(context.Background(), empty); !errors.Is(err, playerrors.ErrEmptyPlaylist) {
		t.Errorf("expected ErrEmptyPlaylist for empty dir, got %v", err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.wav", "b.wav", "c.wav"} {
		writeWAV(t, filepath.Join(dir, name), 50*time.Millisecond)
	}

	lib := NewLibrary(nil)
	if _, err := lib.Load(context.Background(), dir); err != nil {
		t.Fatal(err)
	}

	removed, err := lib.Remove(1)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed.Name != "b" {
		t.Errorf("removed %q, want b", removed.Name)
	}
	if got := lib.Track(1); got == nil || got.Name != "c" {
		t.Errorf("Track(1) after remove = %+v", got)
	}
	if _, err := lib.Remove(5); !errors.Is(err, playerrors.ErrTrackNotFound) {
		t.Errorf("expected ErrTrackNotFound, got %v", err)
	}
	if lib.Track(-1) != nil {
		t.Error("expected nil for negative index")
	}

	lib.Clear()
	if lib.Count() != 0 || len(lib.Tracks()) != 0 {
		t.Error("expected empty library after Clear")
	}
}

func TestSearch(t *testing.T) {
	lib := NewLibrary(nil)
	lib.tracks = append(lib.tracks,
		trackNamed("Blue Monday", "New Order"),
		trackNamed("So What", "Miles Davis"),
		trackNamed("Blue in Green", "Miles Davis"),
	)

	tests := []struct {
		query string
		want  []int
	}{
		{"blue", []int{0, 2}},
		{"MILES", []int{1, 2}},
		{"", []int{0, 1, 2}},
		{"zzz", nil},
	}
	for _, tt := range tests {
		got := lib.Search(tt.query)
		if len(got) != len(tt.want) {
			t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
				break
			}
		}
	}
}

func trackNamed(name, artist string) api.Track {
	return api.Track{ID: name, Name: name, Artist: artist, Album: unknownAlbum, IsLocal: true}
}
