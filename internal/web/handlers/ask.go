package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/JIVTESH28/facewatch/internal/ai"
	"github.com/JIVTESH28/facewatch/internal/constants"
	"github.com/JIVTESH28/facewatch/internal/gallery"
)

// AskHandler answers natural-language questions about the enrollment log.
type AskHandler struct {
	gallery  *gallery.Gallery
	provider ai.Provider
}

// NewAskHandler creates a new ask handler. A nil provider disables the
// endpoint.
func NewAskHandler(gal *gallery.Gallery, provider ai.Provider) *AskHandler {
	return &AskHandler{
		gallery:  gal,
		provider: provider,
	}
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer   string `json:"answer"`
	Provider string `json:"provider"`
}

// Ask sends the question and the current enrollment log to the configured
// AI provider.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		respondError(w, http.StatusServiceUnavailable, "question answering is not configured")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if len(question) > constants.MaxQuestionLength {
		respondError(w, http.StatusBadRequest, "question too long")
		return
	}

	entries := ai.EntriesFromRecords(h.gallery.Snapshot())
	answer, err := h.provider.Answer(r.Context(), question, entries)
	if err != nil {
		log.Printf("Failed to answer question via %s: %v", h.provider.Name(), err)
		respondError(w, http.StatusBadGateway, "failed to answer question")
		return
	}

	respondJSON(w, http.StatusOK, askResponse{
		Answer:   answer,
		Provider: h.provider.Name(),
	})
}
