package service

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/nomoreanxious/calibra/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrPriorOutOfRange = errors.New("prior value must be between 0 and 100")
	ErrInvalidEvidence = errors.New("invalid evidence type")
)

const (
	// Fallback weight for evidence items that arrive without one.
	fallbackEvidenceWeight = 0.1

	// Duration past which a completed action earns a stronger correction.
	durationThresholdMinutes = 10
	durationScale            = 1.5

	// Correction magnitude bounds. The engine only ever reduces fear; the
	// cap keeps a single stack from zeroing a belief outright.
	minCorrection = -20
	maxCorrection = -1

	defaultActionCorrection = -2
)

// actionCorrections is the per-action base correction table.
var actionCorrections = map[string]float64{
	"breathing_exercise": -5,
	"meditation":         -8,
	"exercise":           -10,
	"sleep_improvement":  -7,
	"hydration":          -3,
}

// CalibrationResult is the outcome of one calibration request. When the gate
// rejects the belief text, Session is nil and Classification carries the
// decline; rejection is a valid outcome, not an error.
type CalibrationResult struct {
	Session        *domain.BeliefSession
	Classification domain.Classification
	Papers         []domain.LiteratureResult
}

// BeliefService computes calibrated posterior beliefs from a user-stated
// prior and a weighted evidence stack, and owns the append-only evidence
// history of each session.
type BeliefService struct {
	store      domain.BeliefSessionStore
	aggregator *EvidenceAggregator
	gate       *RelevanceGate
	logger     *zap.Logger
}

func NewBeliefService(store domain.BeliefSessionStore, aggregator *EvidenceAggregator, gate *RelevanceGate, logger *zap.Logger) *BeliefService {
	return &BeliefService{
		store:      store,
		aggregator: aggregator,
		gate:       gate,
		logger:     logger,
	}
}

// Calibrate runs the full pipeline for a new belief session: relevance gate,
// literature retrieval, evidence fold-in, posterior computation, persistence.
func (s *BeliefService) Calibrate(ctx context.Context, userID uuid.UUID, prior int, beliefText string, evidence []domain.Evidence) (*CalibrationResult, error) {
	if prior < 0 || prior > 100 {
		return nil, ErrPriorOutOfRange
	}

	for _, ev := range evidence {
		if !domain.ValidEvidenceType(string(ev.Type)) {
			return nil, ErrInvalidEvidence
		}
	}

	cls := s.gate.Classify(beliefText)
	if !cls.IsHealthRelated {
		return &CalibrationResult{Classification: cls}, nil
	}

	var papers []domain.LiteratureResult
	if beliefText != "" && s.aggregator != nil {
		papers = s.aggregator.Search(ctx, beliefText)
	}

	stack := make([]domain.Evidence, 0, len(evidence)+len(papers))
	for _, ev := range evidence {
		ev.Weight = ev.Type.ClampWeight(ev.Weight)
		stack = append(stack, ev)
	}
	for _, p := range papers {
		consensus := 0.3
		if p.Consensus != nil {
			consensus = *p.Consensus
		}
		stack = append(stack, domain.NewScienceEvidence(p.Title, p.ID, consensus))
	}

	likelihood, evidenceWeight, posterior := computePosterior(prior, stack)

	session := &domain.BeliefSession{
		UserID:         userID,
		PriorValue:     prior,
		PosteriorValue: posterior,
		Likelihood:     likelihood,
		EvidenceWeight: evidenceWeight,
		EvidenceStack:  domain.NormalizeWeights(stack),
		PapersUsed:     domain.PaperRefs(papers),
		BeliefText:     beliefText,
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}

	return &CalibrationResult{
		Session:        session,
		Classification: cls,
		Papers:         papers,
	}, nil
}

// Update appends one evidence item to a session's stack and recomputes the
// posterior from the prior and the full stack. Appends are atomic at the
// store, so concurrent updates cannot lose evidence.
func (s *BeliefService) Update(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID, ev domain.Evidence) (*domain.BeliefSession, error) {
	if !domain.ValidEvidenceType(string(ev.Type)) {
		return nil, ErrInvalidEvidence
	}

	session, err := s.store.GetByID(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	ev.Weight = ev.Type.ClampWeight(ev.Weight)

	stack := append(append([]domain.Evidence{}, session.EvidenceStack...), ev)
	posterior := domain.ClampBeliefValue(session.PriorValue + CorrectionFromStack(stack))

	if err := s.store.AppendEvidence(ctx, sessionID, userID, ev, posterior); err != nil {
		return nil, err
	}

	session.EvidenceStack = stack
	session.PosteriorValue = posterior

	s.logger.Debug("belief updated",
		zap.String("session_id", sessionID.String()),
		zap.Int("prior", session.PriorValue),
		zap.Int("posterior", posterior),
		zap.String("evidence_type", string(ev.Type)))

	return session, nil
}

func (s *BeliefService) GetByID(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (*domain.BeliefSession, error) {
	return s.store.GetByID(ctx, sessionID, userID)
}

func (s *BeliefService) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.BeliefSession, error) {
	return s.store.ListByUser(ctx, userID)
}

// computePosterior folds an evidence stack into a prior. Likelihood is the
// weight-normalized consensus average; evidence strength grows with total
// weight. An empty stack leaves the prior untouched.
func computePosterior(prior int, stack []domain.Evidence) (likelihood, evidenceWeight float64, posterior int) {
	if len(stack) == 0 {
		return 1.0, 0.5, prior
	}

	totalWeight := 0.0
	for _, ev := range stack {
		w := ev.Weight
		if w == 0 {
			w = fallbackEvidenceWeight
		}
		totalWeight += w
	}
	if totalWeight == 0 {
		return 1.0, 0.5, prior
	}

	weightedSum := 0.0
	for _, ev := range stack {
		w := ev.Weight
		if w == 0 {
			w = fallbackEvidenceWeight
		}
		consensus := domain.DefaultConsensus
		if ev.Consensus != nil {
			consensus = *ev.Consensus
		}
		weightedSum += (w / totalWeight) * consensus
	}

	likelihood = weightedSum
	if likelihood < 0.01 {
		likelihood = 0.01
	}
	if likelihood > 1 {
		likelihood = 1
	}

	evidenceWeight = 0.5 + math.Min(totalWeight, 1.0)*0.3

	p := likelihood * (float64(prior) / 100) / evidenceWeight * 100
	posterior = domain.ClampBeliefValue(int(math.Round(p)))
	return likelihood, evidenceWeight, posterior
}

// CorrectionFromStack derives the posterior correction for an evidence stack.
// Each item contributes its weighted base correction; qualifying long actions
// scale up; the total clamps to [-20, -1]. The correction is always negative:
// evidence only ever pulls belief away from the stated fear.
func CorrectionFromStack(stack []domain.Evidence) int {
	total := 0.0
	for _, ev := range stack {
		base := float64(defaultActionCorrection)
		if ev.Type == domain.EvidenceBehavioral {
			if c, ok := actionCorrections[ev.ActionType]; ok {
				base = c
			}
			if ev.DurationMinutes > durationThresholdMinutes {
				base *= durationScale
				if base < minCorrection {
					base = minCorrection
				}
			}
		}
		w := ev.Weight
		if w <= 0 {
			w = 1
		}
		total += base * w
	}

	correction := int(math.Round(total))
	if correction < minCorrection {
		correction = minCorrection
	}
	if correction > maxCorrection {
		correction = maxCorrection
	}
	return correction
}
