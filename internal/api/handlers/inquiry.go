package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nomoreanxious/calibra/internal/api/middleware"
	"github.com/nomoreanxious/calibra/internal/domain"
	"github.com/nomoreanxious/calibra/internal/service"
)

type InquiryHandler struct {
	svc *service.InquiryService
}

func NewInquiryHandler(svc *service.InquiryService) *InquiryHandler {
	return &InquiryHandler{svc: svc}
}

type dataPointRequest struct {
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type nextInquiryRequest struct {
	RecentData map[string]dataPointRequest `json:"recent_data,omitempty"`
	Goals      []domain.PhaseGoal          `json:"goals,omitempty"`
	Language   string                      `json:"language,omitempty"`
}

type nextInquiryResponse struct {
	Inquiry *domain.InquiryRecord  `json:"inquiry,omitempty"`
	Options []domain.InquiryOption `json:"options,omitempty"`
}

func (h *InquiryHandler) Next(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req nextInquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	recentData := make(map[string]domain.DataPoint, len(req.RecentData))
	for field, dp := range req.RecentData {
		recentData[field] = domain.DataPoint{Value: dp.Value, Timestamp: dp.Timestamp}
	}

	result, err := h.svc.NextInquiry(r.Context(), user.ID, recentData, req.Goals, req.Language)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate inquiry")
		return
	}

	if result == nil {
		writeJSON(w, http.StatusOK, nextInquiryResponse{})
		return
	}

	writeJSON(w, http.StatusOK, nextInquiryResponse{
		Inquiry: result.Record,
		Options: result.Options,
	})
}

type inquiryResponseRequest struct {
	Response string `json:"response"`
	Language string `json:"language,omitempty"`
}

type inquiryResponseResponse struct {
	Success  bool                  `json:"success"`
	Inquiry  *domain.InquiryRecord `json:"inquiry"`
	Message  string                `json:"message"`
	Evidence *domain.Evidence      `json:"evidence,omitempty"`
}

func (h *InquiryHandler) Respond(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid inquiry id")
		return
	}

	var req inquiryResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Respond(r.Context(), user.ID, id, req.Response, req.Language)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyResponse):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "inquiry not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to record response")
		}
		return
	}

	writeJSON(w, http.StatusOK, inquiryResponseResponse{
		Success:  true,
		Inquiry:  result.Record,
		Message:  result.Message,
		Evidence: result.Evidence,
	})
}
