package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/JIVTESH28/facewatch/internal/embedding"
	"github.com/JIVTESH28/facewatch/internal/gallery"
	"github.com/JIVTESH28/facewatch/internal/matcher"
	"github.com/JIVTESH28/facewatch/internal/render"
)

// MatchHandler handles single-shot identity matching.
type MatchHandler struct {
	gallery          *gallery.Gallery
	embedder         *embedding.Client
	palette          render.Palette
	defaultThreshold float64
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(gal *gallery.Gallery, embedder *embedding.Client, palette render.Palette, defaultThreshold float64) *MatchHandler {
	return &MatchHandler{
		gallery:          gal,
		embedder:         embedder,
		palette:          palette,
		defaultThreshold: defaultThreshold,
	}
}

// matchRequest is the JSON body for embedding-based matching.
type matchRequest struct {
	Embedding []float32 `json:"embedding"`
	Threshold *float64  `json:"threshold,omitempty"`
}

// matchResponse pairs the match decision with its presentation.
type matchResponse struct {
	Decision matcher.Decision `json:"decision"`
	Label    string           `json:"label"`
	Tier     string           `json:"tier"`
	Color    string           `json:"color"`
}

func (h *MatchHandler) respond(w http.ResponseWriter, dec matcher.Decision) {
	tier := h.palette.TierFor(dec.Score)
	respondJSON(w, http.StatusOK, matchResponse{
		Decision: dec,
		Label:    render.Label(dec),
		Tier:     tier.Name,
		Color:    render.HexColor(tier.Color),
	})
}

// Match compares a probe against the gallery and returns the decision.
// Accepts either a JSON body with a precomputed embedding, or a multipart
// form with an image (and optional "threshold" field).
func (h *MatchHandler) Match(w http.ResponseWriter, r *http.Request) {
	threshold := h.defaultThreshold

	var query []float32
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var req matchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		if len(req.Embedding) == 0 {
			respondError(w, http.StatusBadRequest, "embedding is required")
			return
		}
		if req.Threshold != nil {
			threshold = *req.Threshold
		}
		query = req.Embedding
	} else {
		imageData, err := readImageUpload(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if v := r.FormValue("threshold"); v != "" {
			t, err := strconv.ParseFloat(v, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid threshold")
				return
			}
			threshold = t
		}

		face, err := h.embedder.ExtractFace(r.Context(), imageData)
		if err != nil {
			if errors.Is(err, embedding.ErrNoFace) {
				h.respond(w, matcher.Decision{
					ThresholdUsed: threshold,
					Reason:        matcher.ReasonNoFace,
				})
				return
			}
			log.Printf("Failed to extract face embedding: %v", err)
			respondError(w, http.StatusBadGateway, "embedding service failed")
			return
		}
		query = face.Embedding
	}

	dec := matcher.Match(query, h.gallery.Snapshot(), threshold)
	h.respond(w, dec)
}
