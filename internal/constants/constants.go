// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Upload constants
const (
	// MaxUploadSize is the maximum image upload size in bytes (32MB)
	MaxUploadSize = 32 << 20
)

// Similarity search constants
const (
	// DefaultSimilarLimit is the default number of neighbors returned by
	// similarity browsing
	DefaultSimilarLimit = 5

	// MaxSimilarLimit caps how many neighbors a single request may ask for
	MaxSimilarLimit = 16
)

// Question answering constants
const (
	// MaxQuestionLength is the maximum accepted question length in bytes
	MaxQuestionLength = 2000
)
