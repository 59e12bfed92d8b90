package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JIVTESH28/facewatch/internal/constants"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// readImageUpload pulls the "image" file out of a multipart form and returns
// its bytes. The caller gets a user-facing error message on failure.
func readImageUpload(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, errors.New("failed to parse multipart form")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, errors.New("image file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %s", header.Filename)
	}
	if len(data) > constants.MaxUploadSize {
		return nil, errors.New("image file too large")
	}
	if len(data) == 0 {
		return nil, errors.New("image file is empty")
	}
	return data, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
