package gallery

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDimensionMismatch is returned when an embedding's length does not match
// the gallery dimension. The offending record is never stored.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// EnrolledIdentity is one enrolled (identity, embedding) record.
// Records are immutable once inserted; re-enrollment replaces the whole record.
type EnrolledIdentity struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Embedding  []float32 `json:"embedding,omitempty"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// Gallery is the in-memory set of enrolled identities available for matching.
// It is safe for concurrent use. Insertion order is preserved so the matcher
// can break ties deterministically. Persistence is the caller's concern: the
// gallery never talks to the external store itself.
type Gallery struct {
	mu      sync.RWMutex
	dim     int
	records []EnrolledIdentity
	byID    map[string]int
	index   *NeighborIndex
}

// New creates an empty gallery for embeddings of the given dimension.
func New(dim int) *Gallery {
	return &Gallery{
		dim:  dim,
		byID: make(map[string]int),
	}
}

// Dim returns the embedding dimension enforced on insertion.
func (g *Gallery) Dim() int {
	return g.dim
}

// Insert appends a record, or atomically replaces an existing record with the
// same ID in place (insertion position preserved). A record whose embedding
// length differs from the gallery dimension is rejected and never stored.
// Missing ID and EnrolledAt fields are filled in; the stored record is
// returned.
func (g *Gallery) Insert(rec EnrolledIdentity) (EnrolledIdentity, error) {
	if len(rec.Embedding) != g.dim {
		return EnrolledIdentity{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(rec.Embedding), g.dim)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.EnrolledAt.IsZero() {
		rec.EnrolledAt = time.Now()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if i, ok := g.byID[rec.ID]; ok {
		g.records[i] = rec
	} else {
		g.byID[rec.ID] = len(g.records)
		g.records = append(g.records, rec)
	}
	if g.index != nil {
		g.index.Add(rec)
	}
	return rec, nil
}

// Snapshot returns a point-in-time copy of all records in insertion order.
// The copy is safe to iterate while inserts and resets proceed concurrently.
func (g *Gallery) Snapshot() []EnrolledIdentity {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]EnrolledIdentity, len(g.records))
	copy(out, g.records)
	return out
}

// Get returns the record with the given ID.
func (g *Gallery) Get(id string) (EnrolledIdentity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	i, ok := g.byID[id]
	if !ok {
		return EnrolledIdentity{}, false
	}
	return g.records[i], true
}

// FindByName returns all records whose name matches after normalization
// (lowercase, no diacritics, dashes as spaces). Names are not unique, so
// multiple records may be returned.
func (g *Gallery) FindByName(name string) []EnrolledIdentity {
	want := NormalizeName(name)

	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []EnrolledIdentity
	for i := range g.records {
		if NormalizeName(g.records[i].Name) == want {
			out = append(out, g.records[i])
		}
	}
	return out
}

// RemoveAll clears every record and returns the count removed. Used only by
// the administrative reset operation.
func (g *Gallery) RemoveAll() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := len(g.records)
	g.records = nil
	g.byID = make(map[string]int)
	if g.index != nil {
		g.index.Reset()
	}
	return n
}

// Count returns the number of enrolled records.
func (g *Gallery) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}
