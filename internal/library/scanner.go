package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/internal/audio"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

// Scanner reads audio files concurrently using a worker pool
type Scanner struct {
	workers    int
	metaReader *MetadataReader
}

// NewScanner creates a new file scanner
func NewScanner(workers int) *Scanner {
	if workers <= 0 {
		workers = 4
	}
	return &Scanner{
		workers:    workers,
		metaReader: NewMetadataReader(),
	}
}

// result carries a track with the position of its file in the input
type result struct {
	index int
	track *api.Track
}

// Expand turns paths into the audio files they name. Directories are
// walked and their files sorted; unsupported files are skipped.
func (s *Scanner) Expand(ctx context.Context, paths []string) ([]string, []error) {
	var (
		files []string
		errs  []error
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return files, append(errs, err)
		}

		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, &playerrors.ScanError{Path: path, Err: err})
			continue
		}
		if !info.IsDir() {
			if audio.IsSupported(path) {
				files = append(files, path)
			} else {
				errs = append(errs, &playerrors.ScanError{Path: path, Err: playerrors.ErrInvalidFormat})
			}
			continue
		}

		var found []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				errs = append(errs, &playerrors.ScanError{Path: p, Err: err})
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if !d.IsDir() && audio.IsSupported(p) {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			errs = append(errs, &playerrors.ScanError{Path: path, Err: err})
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, errs
}

// ReadFiles reads every file with the worker pool. Tracks come back in
// the order of files; files that fail are reported and left out.
func (s *Scanner) ReadFiles(ctx context.Context, files []string) ([]api.Track, []error) {
	jobs := make(chan int)
	results := make(chan result, len(files))
	errCh := make(chan error, len(files))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				track, err := s.metaReader.Read(files[idx])
				if err != nil {
					errCh <- &playerrors.ScanError{Path: files[idx], Err: err}
					continue
				}
				results <- result{index: idx, track: track}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range files {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(results)
	close(errCh)

	collected := make([]result, 0, len(files))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	tracks := make([]api.Track, len(collected))
	for i, r := range collected {
		tracks[i] = *r.track
	}

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return tracks, errs
}
