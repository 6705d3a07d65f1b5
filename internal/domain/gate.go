package domain

// Classification is the outcome of the content relevance gate. A rejection is
// a valid classification, not an error.
type Classification struct {
	IsHealthRelated   bool     `json:"is_health_related"`
	BlockedReason     string   `json:"blocked_reason,omitempty"`
	MatchedKeywords   []string `json:"matched_keywords,omitempty"`
	SuggestedResponse string   `json:"suggested_response,omitempty"`
}

// BlockedCategory maps a rejection category to its keyword list. Category
// order matters: the first category with a match sets BlockedReason.
type BlockedCategory struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}
