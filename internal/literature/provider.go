// Package literature holds the adapters for external literature search
// providers. Each adapter encapsulates one provider's request shape and
// response decoding; timeouts, retries, and failure tolerance live in the
// evidence aggregator.
package literature

import "math"

const (
	// minSimilarity is the floor for rank-derived similarity, so even the
	// last result of a page keeps a nonzero semantic signal.
	minSimilarity = 0.1

	minConsensus = 0.3
	maxConsensus = 0.95
)

// rankSimilarity derives a similarity score from a result's position within
// the provider's relevance-ordered page: the first result scores 1.0 and the
// score decays linearly to the floor.
func rankSimilarity(index, limit int) float64 {
	if limit <= 0 {
		return minSimilarity
	}
	s := 1.0 - float64(index)/float64(limit)
	if s < minSimilarity {
		return minSimilarity
	}
	return s
}

// ConsensusFromCitations maps a citation count onto [0.3, 0.95] on a log
// scale (50 citations ≈ 0.5, 5000 ≈ 0.95). Zero or unknown counts get the
// floor.
func ConsensusFromCitations(citationCount int) float64 {
	if citationCount <= 0 {
		return minConsensus
	}
	score := minConsensus + math.Log10(float64(citationCount))/math.Log10(10000)*0.65
	if score < minConsensus {
		return minConsensus
	}
	if score > maxConsensus {
		return maxConsensus
	}
	return score
}
