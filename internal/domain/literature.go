package domain

// LiteratureResult is one candidate paper from a search provider.
// SimilarityScore and Consensus are provider-reported signals; FinalScore is
// computed by the hybrid score calculator before ranking.
type LiteratureResult struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract,omitempty"`
	Year            *int     `json:"year,omitempty"`
	CitationCount   int      `json:"citation_count"`
	SimilarityScore float64  `json:"similarity_score"`
	Consensus       *float64 `json:"consensus,omitempty"`
	FinalScore      float64  `json:"final_score"`
	URL             string   `json:"url"`
	Source          string   `json:"source"`
}

// PaperRefs converts ranked results into the citation subset persisted on a
// belief session.
func PaperRefs(results []LiteratureResult) []PaperRef {
	refs := make([]PaperRef, 0, len(results))
	for _, r := range results {
		refs = append(refs, PaperRef{
			ID:             r.ID,
			Title:          r.Title,
			RelevanceScore: r.FinalScore,
			URL:            r.URL,
		})
	}
	return refs
}
