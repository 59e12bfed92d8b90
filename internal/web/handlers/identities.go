package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JIVTESH28/facewatch/internal/constants"
	"github.com/JIVTESH28/facewatch/internal/embedding"
	"github.com/JIVTESH28/facewatch/internal/gallery"
	"github.com/JIVTESH28/facewatch/internal/storage/postgres"
)

// IdentitiesHandler handles enrollment and gallery browsing endpoints.
type IdentitiesHandler struct {
	gallery     *gallery.Gallery
	embedder    *embedding.Client
	repo        *postgres.IdentityRepository
	galleryPath string
}

// NewIdentitiesHandler creates a new identities handler. The repository and
// gallery path are optional mirrors; a nil repo or empty path disables them.
func NewIdentitiesHandler(gal *gallery.Gallery, embedder *embedding.Client, repo *postgres.IdentityRepository, galleryPath string) *IdentitiesHandler {
	return &IdentitiesHandler{
		gallery:     gal,
		embedder:    embedder,
		repo:        repo,
		galleryPath: galleryPath,
	}
}

// identityView is the API shape of an enrolled identity.
type identityView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Dim        int       `json:"dim"`
	EnrolledAt time.Time `json:"enrolled_at"`

	Embedding []float32 `json:"embedding,omitempty"`
}

func viewOf(rec gallery.EnrolledIdentity, withEmbedding bool) identityView {
	v := identityView{
		ID:         rec.ID,
		Name:       rec.Name,
		Dim:        len(rec.Embedding),
		EnrolledAt: rec.EnrolledAt,
	}
	if withEmbedding {
		v.Embedding = rec.Embedding
	}
	return v
}

// mirror pushes the current gallery to the optional persistence backends.
// The in-memory gallery stays authoritative; mirror failures are logged.
func (h *IdentitiesHandler) mirror(ctx context.Context, rec *gallery.EnrolledIdentity) {
	if h.repo != nil && rec != nil {
		if err := h.repo.Save(ctx, *rec); err != nil {
			log.Printf("Failed to mirror identity %s to database: %v", sanitizeForLog(rec.ID), err)
		}
	}
	if h.galleryPath != "" {
		if err := h.gallery.SaveTo(h.galleryPath); err != nil {
			log.Printf("Failed to save gallery file: %v", err)
		}
	}
}

// enrollRequest is the JSON body for embedding-based enrollment.
type enrollRequest struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Embedding []float32 `json:"embedding"`
}

// Enroll adds an identity to the gallery. Accepts either a JSON body with a
// precomputed embedding, or a multipart form with an image that is run
// through the embedding service.
func (h *IdentitiesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var rec gallery.EnrolledIdentity

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var req enrollRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		rec = gallery.EnrolledIdentity{
			ID:        req.ID,
			Name:      req.Name,
			Embedding: req.Embedding,
		}
	} else {
		imageData, err := readImageUpload(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		face, err := h.embedder.ExtractFace(r.Context(), imageData)
		if err != nil {
			if errors.Is(err, embedding.ErrNoFace) {
				respondError(w, http.StatusUnprocessableEntity, "no face detected in image")
				return
			}
			log.Printf("Failed to extract face embedding: %v", err)
			respondError(w, http.StatusBadGateway, "embedding service failed")
			return
		}

		rec = gallery.EnrolledIdentity{
			ID:        r.FormValue("id"),
			Name:      r.FormValue("name"),
			Embedding: face.Embedding,
		}
	}

	if rec.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	saved, err := h.gallery.Insert(rec)
	if err != nil {
		if errors.Is(err, gallery.ErrDimensionMismatch) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to enroll identity")
		return
	}
	h.mirror(r.Context(), &saved)

	log.Printf("Enrolled identity %s (gallery size %d)", sanitizeForLog(saved.Name), h.gallery.Count())
	respondJSON(w, http.StatusCreated, viewOf(saved, false))
}

// List returns all enrolled identities without embeddings.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	records := h.gallery.Snapshot()
	views := make([]identityView, 0, len(records))
	for _, rec := range records {
		views = append(views, viewOf(rec, false))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"identities": views,
		"count":      len(views),
		"dim":        h.gallery.Dim(),
	})
}

// Get returns a single identity, embedding included.
func (h *IdentitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := h.gallery.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	respondJSON(w, http.StatusOK, viewOf(rec, true))
}

// Reset removes every enrolled identity.
func (h *IdentitiesHandler) Reset(w http.ResponseWriter, r *http.Request) {
	removed := h.gallery.RemoveAll()

	if h.repo != nil {
		if _, err := h.repo.DeleteAll(r.Context()); err != nil {
			log.Printf("Failed to clear identities in database: %v", err)
		}
	}
	if h.galleryPath != "" {
		if err := h.gallery.SaveTo(h.galleryPath); err != nil {
			log.Printf("Failed to save gallery file: %v", err)
		}
	}

	log.Printf("Cleared gallery (%d identities removed)", removed)
	respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// similarRequest asks for the nearest enrolled identities, either to an
// existing identity or to a raw embedding.
type similarRequest struct {
	ID        string    `json:"id,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

type neighborView struct {
	Identity identityView `json:"identity"`
	Score    float64      `json:"score"`
}

// Similar returns the closest enrolled identities to a query embedding.
func (h *IdentitiesHandler) Similar(w http.ResponseWriter, r *http.Request) {
	var req similarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	query := req.Embedding
	if req.ID != "" {
		rec, ok := h.gallery.Get(req.ID)
		if !ok {
			respondError(w, http.StatusNotFound, "identity not found")
			return
		}
		query = rec.Embedding
	}
	if len(query) == 0 {
		respondError(w, http.StatusBadRequest, "id or embedding is required")
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = constants.DefaultSimilarLimit
	}
	if limit > constants.MaxSimilarLimit {
		limit = constants.MaxSimilarLimit
	}

	neighbors := h.gallery.FindSimilar(query, limit)
	views := make([]neighborView, 0, len(neighbors))
	for _, n := range neighbors {
		views = append(views, neighborView{
			Identity: viewOf(n.Identity, false),
			Score:    n.Score,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"neighbors": views})
}
