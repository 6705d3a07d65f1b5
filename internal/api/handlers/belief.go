package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nomoreanxious/calibra/internal/api/middleware"
	"github.com/nomoreanxious/calibra/internal/domain"
	"github.com/nomoreanxious/calibra/internal/service"
)

type BeliefHandler struct {
	svc *service.BeliefService
}

func NewBeliefHandler(svc *service.BeliefService) *BeliefHandler {
	return &BeliefHandler{svc: svc}
}

type evidenceRequest struct {
	Type            string  `json:"type"`
	Value           string  `json:"value,omitempty"`
	Weight          float64 `json:"weight,omitempty"`
	ActionType      string  `json:"action_type,omitempty"`
	DurationMinutes int     `json:"duration_minutes,omitempty"`
}

type calibrateRequest struct {
	BeliefText string            `json:"belief_text"`
	PriorValue int               `json:"prior_value"`
	Evidence   []evidenceRequest `json:"evidence,omitempty"`
}

type calibrateResponse struct {
	Session            *domain.BeliefSession `json:"session,omitempty"`
	ExaggerationFactor float64               `json:"exaggeration_factor"`
	Blocked            bool                  `json:"blocked"`
	BlockedReason      string                `json:"blocked_reason,omitempty"`
	SuggestedResponse  string                `json:"suggested_response,omitempty"`
}

func (h *BeliefHandler) Calibrate(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req calibrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	evidence, err := toEvidence(req.Evidence)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Calibrate(r.Context(), user.ID, req.PriorValue, req.BeliefText, evidence)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPriorOutOfRange),
			errors.Is(err, service.ErrInvalidEvidence):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to calibrate belief")
		}
		return
	}

	if !result.Classification.IsHealthRelated {
		writeJSON(w, http.StatusOK, calibrateResponse{
			Blocked:           true,
			BlockedReason:     result.Classification.BlockedReason,
			SuggestedResponse: result.Classification.SuggestedResponse,
		})
		return
	}

	writeJSON(w, http.StatusCreated, calibrateResponse{
		Session:            result.Session,
		ExaggerationFactor: result.Session.ExaggerationFactor(),
	})
}

func (h *BeliefHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.svc.GetByID(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *BeliefHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessions, err := h.svc.ListByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []domain.BeliefSession{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

type appendEvidenceRequest struct {
	Evidence evidenceRequest `json:"evidence"`
}

func (h *BeliefHandler) AppendEvidence(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req appendEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	evidence, err := toEvidence([]evidenceRequest{req.Evidence})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.svc.Update(r.Context(), user.ID, id, evidence[0])
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEvidence):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update session")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session":             session,
		"exaggeration_factor": session.ExaggerationFactor(),
	})
}

func toEvidence(reqs []evidenceRequest) ([]domain.Evidence, error) {
	evidence := make([]domain.Evidence, 0, len(reqs))
	for _, er := range reqs {
		if !domain.ValidEvidenceType(er.Type) {
			return nil, errors.New("invalid evidence type: " + er.Type)
		}

		var ev domain.Evidence
		switch domain.EvidenceType(er.Type) {
		case domain.EvidenceBehavioral:
			ev = domain.NewActionEvidence(er.ActionType, er.Value, er.DurationMinutes)
			if er.Weight > 0 {
				ev.Weight = er.Weight
			}
		default:
			ev = domain.Evidence{
				Type:   domain.EvidenceType(er.Type),
				Value:  er.Value,
				Weight: er.Weight,
			}
		}
		evidence = append(evidence, ev)
	}
	return evidence, nil
}
