package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JIVTESH28/facewatch/internal/ai"
	"github.com/JIVTESH28/facewatch/internal/constants"
)

type fakeProvider struct {
	answer  string
	err     error
	entries []ai.LogEntry
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Answer(ctx context.Context, question string, entries []ai.LogEntry) (string, error) {
	f.entries = entries
	return f.answer, f.err
}

func TestAsk(t *testing.T) {
	provider := &fakeProvider{answer: "Jane was enrolled first."}
	h := NewAskHandler(testGallery(t), provider)

	req := jsonRequest(t, http.MethodPost, "/api/v1/ask", askRequest{Question: "who came first?"})
	recorder := httptest.NewRecorder()

	h.Ask(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200: %s", recorder.Code, recorder.Body.String())
	}

	var result askResponse
	decodeJSON(t, recorder, &result)
	if result.Answer != "Jane was enrolled first." || result.Provider != "fake" {
		t.Errorf("response = %+v", result)
	}
	// The provider sees the whole enrollment log.
	if len(provider.entries) != 2 {
		t.Errorf("provider got %d entries; want 2", len(provider.entries))
	}
}

func TestAskWithoutProvider(t *testing.T) {
	h := NewAskHandler(testGallery(t), nil)

	req := jsonRequest(t, http.MethodPost, "/api/v1/ask", askRequest{Question: "anyone home?"})
	recorder := httptest.NewRecorder()

	h.Ask(recorder, req)

	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d; want 503", recorder.Code)
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	h := NewAskHandler(testGallery(t), &fakeProvider{})

	req := jsonRequest(t, http.MethodPost, "/api/v1/ask", askRequest{Question: "   "})
	recorder := httptest.NewRecorder()

	h.Ask(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", recorder.Code)
	}
}

func TestAskRejectsOversizedQuestion(t *testing.T) {
	h := NewAskHandler(testGallery(t), &fakeProvider{})

	req := jsonRequest(t, http.MethodPost, "/api/v1/ask", askRequest{
		Question: strings.Repeat("x", constants.MaxQuestionLength+1),
	})
	recorder := httptest.NewRecorder()

	h.Ask(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", recorder.Code)
	}
}

func TestAskProviderFailure(t *testing.T) {
	h := NewAskHandler(testGallery(t), &fakeProvider{err: errors.New("quota exceeded")})

	req := jsonRequest(t, http.MethodPost, "/api/v1/ask", askRequest{Question: "who?"})
	recorder := httptest.NewRecorder()

	h.Ask(recorder, req)

	if recorder.Code != http.StatusBadGateway {
		t.Errorf("status = %d; want 502", recorder.Code)
	}
}
