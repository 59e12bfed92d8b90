package gallery

import (
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// maxNeighbors is the HNSW M parameter (max neighbors per graph node).
const maxNeighbors = 16

// Neighbor is one result of a similarity search over the gallery.
type Neighbor struct {
	Identity EnrolledIdentity `json:"identity"`
	Score    float64          `json:"score"`
}

// NeighborIndex wraps an HNSW graph over gallery records for fast top-k
// neighbor lookup on the enrollment-browsing surface. The live matching path
// never uses it; exhaustive scoring there keeps decisions deterministic.
type NeighborIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[string]
	byID  map[string]EnrolledIdentity
}

// NewNeighborIndex creates an empty index.
func NewNeighborIndex() *NeighborIndex {
	return &NeighborIndex{byID: make(map[string]EnrolledIdentity)}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors) // standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return g
}

// Build replaces the index contents with the given records.
func (n *NeighborIndex) Build(records []EnrolledIdentity) {
	n.mu.Lock()
	defer n.mu.Unlock()

	g := newGraph()
	n.byID = make(map[string]EnrolledIdentity, len(records))
	for i := range records {
		rec := records[i]
		if len(rec.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(rec.ID, rec.Embedding))
		n.byID[rec.ID] = rec
	}
	n.graph = g
}

// Add inserts or replaces a single record in the index.
func (n *NeighborIndex) Add(rec EnrolledIdentity) {
	if len(rec.Embedding) == 0 {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.graph == nil {
		n.graph = newGraph()
	}
	n.graph.Add(hnsw.MakeNode(rec.ID, rec.Embedding))
	n.byID[rec.ID] = rec
}

// Search returns up to k nearest records with their similarity scores.
func (n *NeighborIndex) Search(query []float32, k int) []Neighbor {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.graph == nil || k <= 0 {
		return nil
	}

	nodes := n.graph.Search(query, k)
	out := make([]Neighbor, 0, len(nodes))
	for _, node := range nodes {
		rec, ok := n.byID[node.Key]
		if !ok {
			// Node survived in the graph after a reset; skip it.
			continue
		}
		out = append(out, Neighbor{
			Identity: rec,
			Score:    1 - float64(hnsw.CosineDistance(query, node.Value)),
		})
	}
	return out
}

// Reset drops all index contents.
func (n *NeighborIndex) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.graph = nil
	n.byID = make(map[string]EnrolledIdentity)
}

// Count returns the number of indexed records.
func (n *NeighborIndex) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.byID)
}

// EnableIndex builds a neighbor index over the current records and keeps it
// in sync with subsequent inserts and resets.
func (g *Gallery) EnableIndex() {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := NewNeighborIndex()
	idx.Build(g.records)
	g.index = idx
}

// FindSimilar returns up to k records most similar to the query embedding.
// Uses the neighbor index when enabled, otherwise scans all records.
func (g *Gallery) FindSimilar(query []float32, k int) []Neighbor {
	g.mu.RLock()
	idx := g.index
	g.mu.RUnlock()

	if idx != nil {
		return idx.Search(query, k)
	}

	// Exhaustive fallback for small galleries.
	records := g.Snapshot()
	out := make([]Neighbor, 0, len(records))
	for i := range records {
		if len(records[i].Embedding) != len(query) || len(query) == 0 {
			continue
		}
		out = append(out, Neighbor{
			Identity: records[i],
			Score:    1 - float64(hnsw.CosineDistance(query, records[i].Embedding)),
		})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
