package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/JIVTESH28/facewatch/internal/embedding"
	"github.com/JIVTESH28/facewatch/internal/gallery"
)

// testGallery builds a gallery with a couple of enrolled identities.
func testGallery(t *testing.T) *gallery.Gallery {
	t.Helper()
	g := gallery.New(3)
	for _, rec := range []gallery.EnrolledIdentity{
		{ID: "jane", Name: "Jane Doe", Embedding: []float32{1, 0, 0}},
		{ID: "bob", Name: "Bob", Embedding: []float32{0, 1, 0}},
	} {
		if _, err := g.Insert(rec); err != nil {
			t.Fatalf("failed to seed gallery: %v", err)
		}
	}
	return g
}

// mockEmbedder stands in for the embedding service; every request yields the
// given faces.
func mockEmbedder(t *testing.T, faces ...embedding.Face) (*embedding.Client, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"faces_count": len(faces),
			"faces":       faces,
			"model":       "test-model",
		})
	}))
	return embedding.NewClient(srv.URL, 3), srv.Close
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartImageRequest builds a multipart request carrying an image file and
// extra form fields.
func multipartImageRequest(t *testing.T, path string, imageData []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", "probe.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(imageData)); err != nil {
		t.Fatalf("failed to write image data: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field %s: %v", key, err)
		}
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// decodeJSON unmarshals a recorder body into out.
func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", rec.Body.String(), err)
	}
}
