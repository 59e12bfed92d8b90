package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileSource serves image files from a directory in name order, cycling back
// to the first file after the last. Used by the watch command for testing a
// pipeline without a camera, and by tests.
type FileSource struct {
	dir string

	mu       sync.Mutex
	acquired bool
	files    []string
	next     int
	seq      uint64
}

// NewFileSource creates a source over the images in dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// Acquire lists the image files in the directory.
func (s *FileSource) Acquire(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !isImageFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(s.dir, e.Name()))
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no image files in %s", ErrCaptureUnavailable, s.dir)
	}
	sort.Strings(files)

	s.mu.Lock()
	s.files = files
	s.next = 0
	s.acquired = true
	s.mu.Unlock()
	return nil
}

// Frame reads the next file in the cycle.
func (s *FileSource) Frame(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	if !s.acquired {
		s.mu.Unlock()
		return Frame{}, ErrCaptureUnavailable
	}
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read frame file: %w", err)
	}
	return Frame{Seq: seq, Timestamp: time.Now(), Data: data}, nil
}

// Release marks the source as closed. Idempotent.
func (s *FileSource) Release() error {
	s.mu.Lock()
	s.acquired = false
	s.mu.Unlock()
	return nil
}
