package handlers

import (
	"net/http"

	"github.com/nomoreanxious/calibra/internal/api/middleware"
	"github.com/nomoreanxious/calibra/internal/domain"
	"github.com/nomoreanxious/calibra/internal/service"
)

type SearchHandler struct {
	aggregator *service.EvidenceAggregator
	gate       *service.RelevanceGate
}

func NewSearchHandler(aggregator *service.EvidenceAggregator, gate *service.RelevanceGate) *SearchHandler {
	return &SearchHandler{aggregator: aggregator, gate: gate}
}

type searchResponse struct {
	Results           []domain.LiteratureResult `json:"results"`
	Blocked           bool                      `json:"blocked"`
	SuggestedResponse string                    `json:"suggested_response,omitempty"`
}

// Search runs a literature search without creating a belief session. An empty
// result set is a normal answer, not an error.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	cls := h.gate.Classify(query)
	if !cls.IsHealthRelated {
		writeJSON(w, http.StatusOK, searchResponse{
			Results:           []domain.LiteratureResult{},
			Blocked:           true,
			SuggestedResponse: cls.SuggestedResponse,
		})
		return
	}

	results := h.aggregator.Search(r.Context(), query)
	if results == nil {
		results = []domain.LiteratureResult{}
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}
