package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/google/uuid"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/internal/audio"
)

const (
	unknownArtist = "Unknown Artist"
	unknownAlbum  = "Unknown Album"
)

// MetadataReader builds tracks from audio files
type MetadataReader struct {
	probe func(path string) (int64, error)
}

// NewMetadataReader creates a reader that measures durations by decoding
// the stream header
func NewMetadataReader() *MetadataReader {
	return &MetadataReader{probe: audio.ProbeDuration}
}

// Read extracts tags, embedded artwork and duration. Files without tags
// still load, titled after the file name.
func (r *MetadataReader) Read(filePath string) (*api.Track, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	track := &api.Track{
		ID:       uuid.NewString(),
		Name:     titleFromPath(filePath),
		Artist:   unknownArtist,
		Album:    unknownAlbum,
		FilePath: filePath,
		IsLocal:  true,
	}

	if metadata, err := tag.ReadFrom(file); err == nil {
		track.Name = getOrDefault(metadata.Title(), track.Name)
		track.Artist = getOrDefault(metadata.Artist(), unknownArtist)
		track.Album = getOrDefault(metadata.Album(), unknownAlbum)
		if picture := metadata.Picture(); picture != nil && len(picture.Data) > 0 {
			track.CoverArt = picture.Data
		}
	}

	if r.probe != nil {
		if ms, err := r.probe(filePath); err == nil {
			track.DurationMs = ms
		}
	}

	return track, nil
}

// titleFromPath is the file name without its extension
func titleFromPath(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func getOrDefault(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}
