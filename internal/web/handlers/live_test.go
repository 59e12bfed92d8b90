package handlers

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JIVTESH28/facewatch/internal/capture"
	"github.com/JIVTESH28/facewatch/internal/embedding"
	"github.com/JIVTESH28/facewatch/internal/recognizer"
	"github.com/JIVTESH28/facewatch/internal/render"
)

// liveFixture wires a session over a directory frame source and a mock
// embedding service.
func liveFixture(t *testing.T, withFrames bool) (*LiveHandler, *recognizer.Session) {
	t.Helper()

	dir := t.TempDir()
	if withFrames {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16)), nil); err != nil {
			t.Fatalf("failed to encode frame: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "frame.jpg"), buf.Bytes(), 0o644); err != nil {
			t.Fatalf("failed to write frame: %v", err)
		}
	}

	embedder, closeSrv := mockEmbedder(t, embedding.Face{
		Embedding: []float32{1, 0, 0},
		DetScore:  0.9,
		Dim:       3,
	})
	t.Cleanup(closeSrv)

	session := recognizer.NewSession(
		capture.NewFileSource(dir),
		embedder,
		testGallery(t),
		render.DefaultPalette(),
		recognizer.Options{Threshold: 0.6, Interval: 2 * time.Millisecond},
	)
	t.Cleanup(func() { session.Stop() })

	return NewLiveHandler(session), session
}

func TestLiveStateBeforeStart(t *testing.T) {
	h, _ := liveFixture(t, true)

	recorder := httptest.NewRecorder()
	h.State(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/live/state", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", recorder.Code)
	}

	var state recognizer.State
	decodeJSON(t, recorder, &state)
	if state.Active {
		t.Error("session reports active before start")
	}
}

func TestLiveStartAndStop(t *testing.T) {
	h, session := liveFixture(t, true)

	recorder := httptest.NewRecorder()
	h.Start(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/live/start", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("start status = %d; want 200: %s", recorder.Code, recorder.Body.String())
	}

	var status statusResponse
	decodeJSON(t, recorder, &status)
	if status.Status != string(recognizer.StatusRunning) || status.Generation != 1 {
		t.Errorf("start response = %+v; want running generation 1", status)
	}

	// A duplicate start is a no-op.
	recorder = httptest.NewRecorder()
	h.Start(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/live/start", nil))
	decodeJSON(t, recorder, &status)
	if status.Generation != 1 {
		t.Errorf("duplicate start bumped generation to %d", status.Generation)
	}

	recorder = httptest.NewRecorder()
	h.Stop(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/live/stop", nil))
	decodeJSON(t, recorder, &status)
	if status.Status != string(recognizer.StatusStopped) {
		t.Errorf("stop status = %q; want stopped", status.Status)
	}
	if session.Status() != recognizer.StatusStopped {
		t.Errorf("session status = %q after stop", session.Status())
	}
}

func TestLiveStartUnavailableSource(t *testing.T) {
	h, _ := liveFixture(t, false) // empty frame directory

	recorder := httptest.NewRecorder()
	h.Start(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/live/start", nil))

	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d; want 503: %s", recorder.Code, recorder.Body.String())
	}
}

func TestLiveStartWithOptions(t *testing.T) {
	h, _ := liveFixture(t, true)

	req := jsonRequest(t, http.MethodPost, "/api/v1/live/start", startRequest{Threshold: 0.8, IntervalMs: 5})
	recorder := httptest.NewRecorder()

	h.Start(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200: %s", recorder.Code, recorder.Body.String())
	}
}

func TestLiveFrameNotFound(t *testing.T) {
	h, _ := liveFixture(t, true)

	recorder := httptest.NewRecorder()
	h.Frame(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/live/frame", nil))

	if recorder.Code != http.StatusNotFound {
		t.Errorf("status = %d; want 404 before any frame", recorder.Code)
	}
}

func TestLiveFrameAfterDecision(t *testing.T) {
	h, session := liveFixture(t, true)

	events := session.AddListener()
	defer session.RemoveListener(events)

	recorder := httptest.NewRecorder()
	h.Start(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/live/start", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("start failed: %s", recorder.Body.String())
	}

	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a decision")
	}

	recorder = httptest.NewRecorder()
	h.Frame(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/live/frame", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("frame status = %d; want 200", recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q; want image/jpeg", ct)
	}
	if _, err := jpeg.Decode(bytes.NewReader(recorder.Body.Bytes())); err != nil {
		t.Errorf("frame is not valid JPEG: %v", err)
	}
}

func TestLiveClear(t *testing.T) {
	h, session := liveFixture(t, true)

	events := session.AddListener()
	defer session.RemoveListener(events)

	recorder := httptest.NewRecorder()
	h.Start(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/live/start", nil))
	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a decision")
	}
	session.Stop()

	recorder = httptest.NewRecorder()
	h.Clear(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/live/clear", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("clear status = %d; want 200", recorder.Code)
	}

	if session.Latest().Decision != nil {
		t.Error("clear left the decision behind")
	}
}

func TestLiveEventsSendsInitialState(t *testing.T) {
	h, _ := liveFixture(t, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // return right after the catch-up event

	req := httptest.NewRequest(http.MethodGet, "/api/v1/live/events", nil).WithContext(ctx)
	recorder := httptest.NewRecorder()

	h.Events(recorder, req)

	if ct := recorder.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q; want text/event-stream", ct)
	}
	body := recorder.Body.String()
	if !strings.HasPrefix(body, "event: state\n") {
		t.Errorf("stream does not open with the state event: %q", body)
	}
	if !strings.Contains(body, "data: ") {
		t.Errorf("stream is missing the data line: %q", body)
	}
}
