package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaperRef is one literature reference actually cited by a belief session.
type PaperRef struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	RelevanceScore float64 `json:"relevance_score"`
	URL            string  `json:"url"`
}

// BeliefSession is one calibration episode for one user: a stated fear
// (prior), the evidence gathered for it, and the calibrated posterior.
// Sessions are append-only after creation; only the evidence stack and the
// posterior change, and only via evidence appends.
type BeliefSession struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	PriorValue     int        `json:"prior_value"`
	PosteriorValue int        `json:"posterior_value"`
	Likelihood     float64    `json:"likelihood"`
	EvidenceWeight float64    `json:"evidence_weight"`
	EvidenceStack  []Evidence `json:"evidence_stack"`
	PapersUsed     []PaperRef `json:"papers_used"`
	BeliefText     string     `json:"belief_text,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// MaxExaggerationFactor caps the ratio when the posterior calibrates to zero,
// where the true factor would be infinite.
const MaxExaggerationFactor = 100.0

// ExaggerationFactor reports how many times the stated fear overshot the
// calibrated belief, rounded to one decimal and capped at
// MaxExaggerationFactor.
func (s *BeliefSession) ExaggerationFactor() float64 {
	if s.PosteriorValue <= 0 {
		if s.PriorValue <= 0 {
			return 1
		}
		return MaxExaggerationFactor
	}
	f := float64(s.PriorValue) / float64(s.PosteriorValue)
	if f > MaxExaggerationFactor {
		return MaxExaggerationFactor
	}
	return float64(int(f*10+0.5)) / 10
}

func ClampBeliefValue(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
