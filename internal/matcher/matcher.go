package matcher

import (
	"math"

	"github.com/JIVTESH28/facewatch/internal/gallery"
)

// Reason explains why a decision came out the way it did.
type Reason string

// Reason codes attached to every decision.
const (
	ReasonOK             Reason = "ok"
	ReasonBelowThreshold Reason = "below_threshold"
	ReasonEmptyGallery   Reason = "empty_gallery"
	ReasonNoFace         Reason = "no_face"
	ReasonCaptureFailed  Reason = "capture_failed"
)

// Decision is the result of matching a query embedding against the gallery.
// Matched implies Score >= ThresholdUsed; identity fields are set only on a match.
type Decision struct {
	Matched       bool    `json:"matched"`
	IdentityID    string  `json:"identity_id,omitempty"`
	Name          string  `json:"name,omitempty"`
	Score         float64 `json:"score"`
	ThresholdUsed float64 `json:"threshold_used"`
	Reason        Reason  `json:"reason"`
}

// CosineSimilarity computes the cosine similarity between two embedding vectors.
// Returns a value between -1 and 1, where 1 means identical.
// Mismatched lengths, empty vectors, and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// comparable reports whether two vectors can be meaningfully compared:
// same non-zero length and both with non-zero magnitude.
func comparable(a, b []float32) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	var normA, normB float64
	for i := range a {
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	return normA != 0 && normB != 0
}

// clamp01 clips a similarity to the [0,1] reporting range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Match scores the query against every candidate using cosine similarity and
// applies the acceptance threshold. The best-scoring candidate wins; exact
// ties go to the earliest candidate in iteration order. An empty gallery
// yields Matched=false with Score 0. Candidates with zero-magnitude or
// mismatched embeddings are excluded from comparison.
//
// Match never fails and never mutates its inputs.
func Match(query []float32, candidates []gallery.EnrolledIdentity, threshold float64) Decision {
	if len(candidates) == 0 {
		return Decision{
			Score:         0,
			ThresholdUsed: threshold,
			Reason:        ReasonEmptyGallery,
		}
	}

	bestIdx := -1
	bestScore := 0.0
	for i := range candidates {
		if !comparable(query, candidates[i].Embedding) {
			continue
		}
		score := CosineSimilarity(query, candidates[i].Embedding)
		if bestIdx == -1 || score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}

	if bestIdx == -1 {
		// Nothing comparable in the gallery.
		return Decision{
			Score:         0,
			ThresholdUsed: threshold,
			Reason:        ReasonBelowThreshold,
		}
	}

	score := clamp01(bestScore)
	if score >= threshold {
		return Decision{
			Matched:       true,
			IdentityID:    candidates[bestIdx].ID,
			Name:          candidates[bestIdx].Name,
			Score:         score,
			ThresholdUsed: threshold,
			Reason:        ReasonOK,
		}
	}

	return Decision{
		Score:         score,
		ThresholdUsed: threshold,
		Reason:        ReasonBelowThreshold,
	}
}
