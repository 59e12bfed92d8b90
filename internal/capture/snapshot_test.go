package capture

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestSnapshotSourceFetchesFrames(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpegbytes"))
	}))
	defer srv.Close()

	s := NewSnapshotSource(srv.URL)
	ctx := context.Background()

	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	frame, err := s.Frame(ctx)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if string(frame.Data) != "jpegbytes" {
		t.Errorf("frame data = %q", frame.Data)
	}
	if frame.Seq != 1 {
		t.Errorf("Seq = %d; want 1", frame.Seq)
	}

	// Acquire fetched once to verify reachability, Frame once more.
	if hits.Load() != 2 {
		t.Errorf("camera hit %d times; want 2", hits.Load())
	}
}

func TestSnapshotSourceAcquireUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewSnapshotSource(srv.URL)
	if err := s.Acquire(context.Background()); !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("Acquire = %v; want ErrCaptureUnavailable", err)
	}
}

func TestSnapshotSourceEmptyURL(t *testing.T) {
	s := NewSnapshotSource("")
	if err := s.Acquire(context.Background()); !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("Acquire = %v; want ErrCaptureUnavailable", err)
	}
}

func TestSnapshotSourceFrameBeforeAcquire(t *testing.T) {
	s := NewSnapshotSource("http://example.invalid/snapshot.jpg")
	if _, err := s.Frame(context.Background()); !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("Frame before Acquire = %v; want ErrCaptureUnavailable", err)
	}
}

func TestSnapshotSourceFrameErrorAfterAcquire(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "gone", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := NewSnapshotSource(srv.URL)
	ctx := context.Background()
	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	fail.Store(true)
	if _, err := s.Frame(ctx); err == nil {
		t.Error("Frame succeeded against a failing camera")
	}
}
