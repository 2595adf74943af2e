// Package match selects the best enrolled identity for a probe
// embedding. Scoring is exact: an identity's score is the minimum
// cosine distance across all of its stored embeddings (one per capture
// direction), and the globally best identity wins if it clears the
// threshold.
package match

import "math"

// Candidate is an enrolled identity offered to the matcher.
type Candidate struct {
	UserID     string
	Name       string
	Embeddings [][]float32
}

// Result is an accepted match.
type Result struct {
	UserID   string
	Name     string
	Distance float64
}

// Epsilon bounds the distance gap below which two identities are
// considered indistinguishable. An ambiguous best is reported as
// no-match rather than guessed.
const Epsilon = 1e-9

// Matcher holds the tunable accept threshold. The threshold is fixed
// per deployment, never derived per request.
type Matcher struct {
	Threshold float64
}

// Best returns the winning candidate and its distance, or nil when
// nothing clears the threshold, the candidate set is empty, or the top
// two identities tie within Epsilon. The second return is the minimum
// distance observed (Inf when there were no scorable candidates).
func (m Matcher) Best(probe []float32, candidates []Candidate) (*Result, float64) {
	best := math.Inf(1)
	second := math.Inf(1)
	var winner *Candidate

	for i := range candidates {
		c := &candidates[i]
		score := math.Inf(1)
		for _, emb := range c.Embeddings {
			if d := CosineDistance(probe, emb); d < score {
				score = d
			}
		}
		if math.IsInf(score, 1) {
			continue // no stored embeddings
		}
		switch {
		case score < best:
			second = best
			best = score
			winner = c
		case score < second:
			second = score
		}
	}

	if winner == nil || best > m.Threshold {
		return nil, best
	}
	if second-best < Epsilon {
		// Two identities are equidistant; fail safe.
		return nil, best
	}
	return &Result{UserID: winner.UserID, Name: winner.Name, Distance: best}, best
}
