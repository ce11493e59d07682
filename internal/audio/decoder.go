package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"

	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

// SupportedFormats returns the file extensions the local backend can play
func SupportedFormats() []string {
	return []string{".mp3", ".wav", ".flac"}
}

// IsSupported checks a path's extension against SupportedFormats
func IsSupported(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// Decode picks a decoder from the extension of name
func Decode(r io.ReadSeekCloser, name string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(name))

	switch ext {
	case ".mp3":
		return mp3.Decode(r)
	case ".wav":
		return wav.Decode(r)
	case ".flac":
		return flac.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", playerrors.ErrInvalidFormat, ext)
	}
}

// OpenFile opens and decodes an audio file. The returned streamer owns
// the file and closes it.
func OpenFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	if !IsSupported(path) {
		return nil, beep.Format{}, fmt.Errorf("%w: %s", playerrors.ErrInvalidFormat, filepath.Ext(path))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	streamer, format, err := Decode(file, path)
	if err != nil {
		file.Close()
		return nil, beep.Format{}, err
	}
	return streamer, format, nil
}

// ProbeDuration decodes just enough of a file to report its length in
// milliseconds
func ProbeDuration(path string) (int64, error) {
	streamer, format, err := OpenFile(path)
	if err != nil {
		return 0, err
	}
	defer streamer.Close()

	if streamer.Len() <= 0 {
		return 0, nil
	}
	return format.SampleRate.D(streamer.Len()).Milliseconds(), nil
}
