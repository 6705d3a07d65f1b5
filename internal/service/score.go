package service

import (
	"sort"

	"github.com/nomoreanxious/calibra/internal/domain"
)

const (
	defaultSimilarityWeight = 0.6
	defaultAuthorityWeight  = 0.4
)

// HybridSearchWeights controls the blend of semantic similarity and
// consensus/authority when ranking literature results. Callers that need a
// [0,1] final score must keep the weights summing to at most 1.
type HybridSearchWeights struct {
	Similarity float64 `json:"similarity"`
	Authority  float64 `json:"authority"`
}

func DefaultHybridWeights() HybridSearchWeights {
	return HybridSearchWeights{Similarity: defaultSimilarityWeight, Authority: defaultAuthorityWeight}
}

// HybridScore combines a similarity score and a consensus score into one
// ranking value. A nil consensus is treated as zero, never as unknown.
func HybridScore(similarity float64, consensus *float64, w HybridSearchWeights) float64 {
	c := 0.0
	if consensus != nil {
		c = *consensus
	}
	return similarity*w.Similarity + c*w.Authority
}

// OrderAndLimit sorts results by final score descending and truncates to
// matchCount. Ties break on ID ascending so ordering is deterministic
// regardless of provider arrival order.
func OrderAndLimit(results []domain.LiteratureResult, matchCount int) []domain.LiteratureResult {
	if len(results) == 0 {
		return []domain.LiteratureResult{}
	}

	out := make([]domain.LiteratureResult, len(results))
	copy(out, results)

	sort.Slice(out, func(i, j int) bool {
		if out[i].FinalScore != out[j].FinalScore {
			return out[i].FinalScore > out[j].FinalScore
		}
		return out[i].ID < out[j].ID
	})

	if matchCount >= 0 && len(out) > matchCount {
		out = out[:matchCount]
	}
	return out
}
