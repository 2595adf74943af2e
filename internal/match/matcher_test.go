package match

import (
	"math"
	"testing"
)

func vec(vals ...float32) []float32 { return vals }

func TestCosineDistance(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", vec(1, 0, 0), vec(1, 0, 0), 0},
		{"orthogonal", vec(1, 0), vec(0, 1), 1},
		{"opposite", vec(1, 0), vec(-1, 0), 2},
		{"mismatched dims", vec(1, 0), vec(1, 0, 0), 2},
		{"zero vector", vec(0, 0), vec(1, 0), 2},
		{"empty", nil, nil, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineDistance(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("CosineDistance = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCosineDistanceScaleInvariant(t *testing.T) {
	a := vec(0.3, 0.7, 0.1)
	b := vec(0.6, 1.4, 0.2) // a scaled by 2
	if d := CosineDistance(a, b); math.Abs(d) > 1e-9 {
		t.Fatalf("scaled copies should have zero distance, got %v", d)
	}
}

func TestBestPicksClosestUnderThreshold(t *testing.T) {
	m := Matcher{Threshold: 0.4}
	probe := vec(1, 0)
	candidates := []Candidate{
		{UserID: "near", Name: "Near", Embeddings: [][]float32{vec(0.99, 0.14)}}, // ~0.01
		{UserID: "far", Name: "Far", Embeddings: [][]float32{vec(0, 1)}},         // 1.0
	}

	res, dist := m.Best(probe, candidates)
	if res == nil {
		t.Fatal("expected a match")
	}
	if res.UserID != "near" {
		t.Fatalf("matched %s, want near", res.UserID)
	}
	if dist > m.Threshold {
		t.Fatalf("accepted distance %v above threshold", dist)
	}
}

func TestBestRejectsOverThreshold(t *testing.T) {
	m := Matcher{Threshold: 0.4}
	candidates := []Candidate{
		{UserID: "far", Embeddings: [][]float32{vec(0, 1)}}, // distance 1.0 from probe
	}
	res, dist := m.Best(vec(1, 0), candidates)
	if res != nil {
		t.Fatalf("matched %s at distance %v, want no match", res.UserID, dist)
	}
	if math.Abs(dist-1.0) > 1e-9 {
		t.Fatalf("reported distance %v, want 1.0", dist)
	}
}

func TestBestEmptyCandidates(t *testing.T) {
	m := Matcher{Threshold: 0.6}
	res, dist := m.Best(vec(1, 0), nil)
	if res != nil {
		t.Fatal("match against empty population")
	}
	if !math.IsInf(dist, 1) {
		t.Fatalf("distance = %v, want +Inf", dist)
	}
}

func TestBestScoresMinimumAcrossEmbeddings(t *testing.T) {
	// One bad capture must not hurt an identity whose other captures
	// are close.
	m := Matcher{Threshold: 0.6}
	probe := vec(1, 0)
	candidates := []Candidate{
		{UserID: "multi", Embeddings: [][]float32{
			vec(0, 1),    // distance 1.0
			vec(1, 0.05), // ~0.001
		}},
		{UserID: "single", Embeddings: [][]float32{vec(0.9, 0.44)}}, // ~0.1
	}

	res, _ := m.Best(probe, candidates)
	if res == nil || res.UserID != "multi" {
		t.Fatalf("got %+v, want multi via its best capture", res)
	}
}

func TestBestTieFailsSafe(t *testing.T) {
	m := Matcher{Threshold: 0.6}
	probe := vec(1, 0)
	candidates := []Candidate{
		{UserID: "a", Embeddings: [][]float32{vec(1, 0.1)}},
		{UserID: "b", Embeddings: [][]float32{vec(1, 0.1)}},
	}

	res, dist := m.Best(probe, candidates)
	if res != nil {
		t.Fatalf("ambiguous probe matched %s", res.UserID)
	}
	if math.IsInf(dist, 1) {
		t.Fatal("tie should still report the observed distance")
	}
}

func TestBestSkipsCandidatesWithoutEmbeddings(t *testing.T) {
	m := Matcher{Threshold: 0.6}
	candidates := []Candidate{
		{UserID: "hollow"},
		{UserID: "real", Embeddings: [][]float32{vec(1, 0)}},
	}
	res, _ := m.Best(vec(1, 0), candidates)
	if res == nil || res.UserID != "real" {
		t.Fatalf("got %+v, want real", res)
	}
}

func TestBestThresholdMonotonicity(t *testing.T) {
	// If a probe matches at threshold t, it must match at any t' > t.
	probe := vec(1, 0.2)
	candidates := []Candidate{
		{UserID: "x", Embeddings: [][]float32{vec(1, 0)}},
	}

	strict := Matcher{Threshold: 0.02}
	loose := Matcher{Threshold: 0.5}

	if res, _ := strict.Best(probe, candidates); res == nil {
		t.Fatal("expected match under strict threshold")
	}
	if res, _ := loose.Best(probe, candidates); res == nil {
		t.Fatal("match must survive a looser threshold")
	}
}
