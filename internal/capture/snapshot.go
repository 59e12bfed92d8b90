package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// SnapshotSource pulls JPEG stills from an IP camera's HTTP snapshot endpoint.
// Most network cameras expose one (e.g. /snapshot.jpg); one GET per decision
// cycle keeps the camera side simple and avoids a streaming decoder.
type SnapshotSource struct {
	url    string
	client *http.Client

	mu       sync.Mutex
	acquired bool
	seq      uint64
}

// NewSnapshotSource creates a source for the given snapshot URL.
func NewSnapshotSource(url string) *SnapshotSource {
	return &SnapshotSource{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Acquire verifies the camera is reachable by fetching one frame.
func (s *SnapshotSource) Acquire(ctx context.Context) error {
	if s.url == "" {
		return fmt.Errorf("%w: no camera URL configured", ErrCaptureUnavailable)
	}
	if _, err := s.fetch(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	s.mu.Lock()
	s.acquired = true
	s.mu.Unlock()
	return nil
}

// Frame fetches the next still from the camera.
func (s *SnapshotSource) Frame(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	acquired := s.acquired
	s.mu.Unlock()
	if !acquired {
		return Frame{}, ErrCaptureUnavailable
	}

	data, err := s.fetch(ctx)
	if err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	return Frame{Seq: seq, Timestamp: time.Now(), Data: data}, nil
}

// Release marks the source as closed. Idempotent.
func (s *SnapshotSource) Release() error {
	s.mu.Lock()
	s.acquired = false
	s.mu.Unlock()
	return nil
}

func (s *SnapshotSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("snapshot returned empty body")
	}
	return data, nil
}
