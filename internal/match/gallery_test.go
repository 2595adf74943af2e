package match

import "testing"

func TestGalleryShortlistDedupesByIdentity(t *testing.T) {
	g := NewGallery()
	g.Rebuild([]Candidate{
		{UserID: "a", Embeddings: [][]float32{vec(1, 0, 0), vec(0.99, 0.1, 0)}},
		{UserID: "b", Embeddings: [][]float32{vec(0, 1, 0)}},
		{UserID: "c", Embeddings: [][]float32{vec(0, 0, 1)}},
	})

	if g.Len() != 3 {
		t.Fatalf("Len = %d, want 3", g.Len())
	}

	got := g.Shortlist(vec(1, 0.01, 0), 2)
	if len(got) != 2 {
		t.Fatalf("shortlist returned %d candidates, want 2", len(got))
	}
	seen := map[string]bool{}
	for _, c := range got {
		if seen[c.UserID] {
			t.Fatalf("identity %s listed twice", c.UserID)
		}
		seen[c.UserID] = true
	}
	if !seen["a"] {
		t.Fatal("nearest identity missing from shortlist")
	}
	// Full embedding set must come back for exact re-scoring.
	for _, c := range got {
		if c.UserID == "a" && len(c.Embeddings) != 2 {
			t.Fatalf("candidate a has %d embeddings, want 2", len(c.Embeddings))
		}
	}
}

func TestGalleryEmpty(t *testing.T) {
	g := NewGallery()
	if got := g.Shortlist(vec(1, 0, 0), 5); got != nil {
		t.Fatalf("empty gallery shortlist = %v, want nil", got)
	}
	if g.Len() != 0 {
		t.Fatalf("Len = %d, want 0", g.Len())
	}
}

func TestGalleryRebuildReplaces(t *testing.T) {
	g := NewGallery()
	g.Rebuild([]Candidate{{UserID: "old", Embeddings: [][]float32{vec(1, 0, 0)}}})
	g.Rebuild([]Candidate{{UserID: "new", Embeddings: [][]float32{vec(1, 0, 0)}}})

	got := g.Shortlist(vec(1, 0, 0), 5)
	if len(got) != 1 || got[0].UserID != "new" {
		t.Fatalf("shortlist after rebuild = %+v, want only new", got)
	}
}
