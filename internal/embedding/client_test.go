package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func embedServer(t *testing.T, resp faceResponse, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/embed/face" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("request is not multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestExtractFacePicksBestDetection(t *testing.T) {
	srv := embedServer(t, faceResponse{
		FacesCount: 2,
		Faces: []Face{
			{Embedding: []float32{0, 1}, DetScore: 0.55, Dim: 2},
			{Embedding: []float32{1, 0}, DetScore: 0.97, Dim: 2},
		},
		Model: "test-model",
	}, http.StatusOK)
	defer srv.Close()

	c := NewClient(srv.URL, 2)
	face, err := c.ExtractFace(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("ExtractFace failed: %v", err)
	}
	if face.DetScore != 0.97 {
		t.Errorf("DetScore = %f; want the strongest detection 0.97", face.DetScore)
	}
	if face.Embedding[0] != 1 {
		t.Error("wrong face selected")
	}
}

func TestExtractFaceNoFace(t *testing.T) {
	srv := embedServer(t, faceResponse{FacesCount: 0}, http.StatusOK)
	defer srv.Close()

	c := NewClient(srv.URL, 2)
	if _, err := c.ExtractFace(context.Background(), []byte("12345678")); !errors.Is(err, ErrNoFace) {
		t.Errorf("err = %v; want ErrNoFace", err)
	}
}

func TestExtractFaceDimensionMismatch(t *testing.T) {
	srv := embedServer(t, faceResponse{
		FacesCount: 1,
		Faces:      []Face{{Embedding: []float32{1, 0, 0}, DetScore: 0.9, Dim: 3}},
	}, http.StatusOK)
	defer srv.Close()

	c := NewClient(srv.URL, 2)
	_, err := c.ExtractFace(context.Background(), []byte("12345678"))
	if err == nil || errors.Is(err, ErrNoFace) {
		t.Errorf("err = %v; want a dimension error", err)
	}
}

func TestExtractFaceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2)
	if _, err := c.ExtractFace(context.Background(), []byte("12345678")); err == nil {
		t.Error("expected an error on HTTP 500")
	}
}

func TestNewClientDefaultURL(t *testing.T) {
	c := NewClient("", 128)
	if c.baseURL != defaultEmbeddingURL {
		t.Errorf("baseURL = %q; want %q", c.baseURL, defaultEmbeddingURL)
	}
	if c.Dim() != 128 {
		t.Errorf("Dim = %d; want 128", c.Dim())
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0, 0}, "image/gif"},
		{"unknown", []byte("plain text"), "application/octet-stream"},
		{"too short", []byte{0xFF}, "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectMIMEType(tc.data); got != tc.expected {
				t.Errorf("detectMIMEType = %q; want %q", got, tc.expected)
			}
		})
	}
}
