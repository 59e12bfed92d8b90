package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/JIVTESH28/facewatch/internal/capture"
	"github.com/JIVTESH28/facewatch/internal/recognizer"
)

// LiveHandler controls the live recognition session.
type LiveHandler struct {
	session *recognizer.Session
}

// NewLiveHandler creates a new live session handler.
func NewLiveHandler(session *recognizer.Session) *LiveHandler {
	return &LiveHandler{session: session}
}

// startRequest optionally overrides the session defaults for one run.
type startRequest struct {
	Threshold  float64 `json:"threshold,omitempty"`
	IntervalMs int     `json:"interval_ms,omitempty"`
}

// statusResponse reports the session lifecycle status.
type statusResponse struct {
	Status     string `json:"status"`
	Generation uint64 `json:"generation"`
}

// Start launches the recognition loop. Starting an already-running session
// is a no-op that reports the current status.
func (h *LiveHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
	}

	opts := recognizer.Options{
		Threshold: req.Threshold,
		Interval:  time.Duration(req.IntervalMs) * time.Millisecond,
	}

	// The loop outlives the request, so it must not inherit its context.
	status, err := h.session.Start(context.Background(), opts)
	if err != nil {
		if errors.Is(err, capture.ErrCaptureUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "capture source unavailable")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, statusResponse{
		Status:     string(status),
		Generation: h.session.Generation(),
	})
}

// Stop halts the recognition loop, preserving the last published state.
func (h *LiveHandler) Stop(w http.ResponseWriter, r *http.Request) {
	status := h.session.Stop()
	respondJSON(w, http.StatusOK, statusResponse{
		Status:     string(status),
		Generation: h.session.Generation(),
	})
}

// Clear resets the published decision and frame without touching the loop.
func (h *LiveHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.session.Clear()
	respondJSON(w, http.StatusOK, statusResponse{
		Status:     string(h.session.Status()),
		Generation: h.session.Generation(),
	})
}

// State returns the latest published session state.
func (h *LiveHandler) State(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Latest())
}

// Frame serves the latest annotated frame as JPEG.
func (h *LiveHandler) Frame(w http.ResponseWriter, r *http.Request) {
	state := h.session.Latest()
	if state == nil || len(state.Frame) == 0 {
		respondError(w, http.StatusNotFound, "no frame available")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, bytes.NewReader(state.Frame))
}

// sendSSEEvent writes a single SSE event and flushes it to the client.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}

// Events streams published decisions over SSE until the client disconnects.
// The first event is the current state so late subscribers catch up.
func (h *LiveHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventCh := h.session.AddListener()
	defer h.session.RemoveListener(eventCh)

	sendSSEEvent(w, flusher, "state", h.session.Latest())

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "decision", event)
		}
	}
}
