package match

import (
	"sync"

	"github.com/coder/hnsw"
)

const galleryMaxNeighbors = 16

// Gallery is an in-memory HNSW index over every enrolled embedding. It
// shortlists candidates for the unfiltered (demo) recognition path; the
// shortlist is always re-scored exactly by the Matcher, so the index
// only bounds work, never decides a match.
type Gallery struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[int64]
	idToUser   map[int64]string
	candidates map[string]Candidate
}

// NewGallery creates an empty gallery.
func NewGallery() *Gallery {
	return &Gallery{
		idToUser:   make(map[int64]string),
		candidates: make(map[string]Candidate),
	}
}

// Rebuild replaces the index contents with the given candidate set.
func (g *Gallery) Rebuild(candidates []Candidate) {
	graph := hnsw.NewGraph[int64]()
	graph.M = galleryMaxNeighbors
	graph.Ml = 1.0 / float64(galleryMaxNeighbors)
	graph.Distance = hnsw.CosineDistance

	idToUser := make(map[int64]string)
	byUser := make(map[string]Candidate, len(candidates))

	var id int64
	for _, c := range candidates {
		byUser[c.UserID] = c
		for _, emb := range c.Embeddings {
			if len(emb) == 0 {
				continue
			}
			graph.Add(hnsw.MakeNode(id, emb))
			idToUser[id] = c.UserID
			id++
		}
	}

	g.mu.Lock()
	g.graph = graph
	g.idToUser = idToUser
	g.candidates = byUser
	g.mu.Unlock()
}

// Shortlist returns up to k distinct identities nearest the probe, with
// their full embedding sets for exact re-scoring.
func (g *Gallery) Shortlist(probe []float32, k int) []Candidate {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.graph == nil || len(g.idToUser) == 0 {
		return nil
	}

	// Over-fetch: several nodes can belong to one identity.
	nodes := g.graph.Search(probe, k*2)
	out := make([]Candidate, 0, k)
	seen := make(map[string]bool, k)
	for _, n := range nodes {
		uid, ok := g.idToUser[n.Key]
		if !ok || seen[uid] {
			continue
		}
		seen[uid] = true
		out = append(out, g.candidates[uid])
		if len(out) == k {
			break
		}
	}
	return out
}

// Len returns the number of indexed identities.
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.candidates)
}
