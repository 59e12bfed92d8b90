package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JIVTESH28/facewatch/internal/capture"
	"github.com/JIVTESH28/facewatch/internal/config"
	"github.com/JIVTESH28/facewatch/internal/embedding"
	"github.com/JIVTESH28/facewatch/internal/gallery"
	"github.com/JIVTESH28/facewatch/internal/recognizer"
	"github.com/JIVTESH28/facewatch/internal/render"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	gal := gallery.New(3)
	if _, err := gal.Insert(gallery.EnrolledIdentity{ID: "jane", Name: "Jane", Embedding: []float32{1, 0, 0}}); err != nil {
		t.Fatalf("failed to seed gallery: %v", err)
	}

	embedder := embedding.NewClient("http://localhost:0", 3)
	palette := render.DefaultPalette()
	session := recognizer.NewSession(
		capture.NewFileSource(t.TempDir()),
		embedder,
		gal,
		palette,
		recognizer.Options{Threshold: 0.6, Interval: 10 * time.Millisecond},
	)

	return NewServer(&config.Config{}, 0, "127.0.0.1", Deps{
		Gallery:  gal,
		Embedder: embedder,
		Session:  session,
		Palette:  palette,
	})
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t)

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("health status = %d; want 200", recorder.Code)
	}
}

func TestRoutesAreWired(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/v1/identities", http.StatusOK},
		{http.MethodGet, "/api/v1/identities/jane", http.StatusOK},
		{http.MethodGet, "/api/v1/identities/ghost", http.StatusNotFound},
		{http.MethodGet, "/api/v1/live/state", http.StatusOK},
		{http.MethodGet, "/api/v1/live/frame", http.StatusNotFound},
		{http.MethodPost, "/api/v1/ask", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/nothing-here", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			var req *http.Request
			if tc.method == http.MethodPost {
				req = httptest.NewRequest(tc.method, tc.path, nil)
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tc.method, tc.path, nil)
			}

			recorder := httptest.NewRecorder()
			s.Router().ServeHTTP(recorder, req)

			if recorder.Code != tc.status {
				t.Errorf("status = %d; want %d: %s", recorder.Code, tc.status, recorder.Body.String())
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/identities", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("preflight status = %d; want 200", recorder.Code)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q; want the localhost origin", got)
	}
}

func TestListIdentitiesThroughRouter(t *testing.T) {
	s := newTestServer(t)

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/identities", nil))

	var result struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if result.Count != 1 {
		t.Errorf("count = %d; want 1", result.Count)
	}
}
