package domain

type EvidenceType string

const (
	EvidenceBiometric  EvidenceType = "biometric"
	EvidenceScientific EvidenceType = "scientific"
	EvidenceBehavioral EvidenceType = "behavioral_action"
)

func ValidEvidenceType(e string) bool {
	switch EvidenceType(e) {
	case EvidenceBiometric, EvidenceScientific, EvidenceBehavioral:
		return true
	}
	return false
}

// WeightBounds returns the allowed contribution share for an evidence type.
// Scientific evidence carries the most weight, completed actions the least.
func (e EvidenceType) WeightBounds() (min, max float64) {
	switch e {
	case EvidenceBiometric:
		return 0.2, 0.4
	case EvidenceScientific:
		return 0.3, 0.6
	case EvidenceBehavioral:
		return 0.05, 0.2
	default:
		return 0.05, 0.6
	}
}

func (e EvidenceType) ClampWeight(w float64) float64 {
	min, max := e.WeightBounds()
	if w < min {
		return min
	}
	if w > max {
		return max
	}
	return w
}

// DefaultConsensus is assumed when an evidence item carries no cross-source
// agreement signal of its own.
const DefaultConsensus = 0.7

// Evidence is one weighted fact folded into a belief session.
type Evidence struct {
	Type      EvidenceType `json:"type"`
	Value     string       `json:"value"`
	Weight    float64      `json:"weight"`
	Consensus *float64     `json:"consensus,omitempty"`
	SourceID  string       `json:"source_id,omitempty"`

	// Behavioral fields, used to size the posterior correction.
	ActionType      string `json:"action_type,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// NewBioEvidence builds a biometric evidence item, scaling weight by data
// quality within the biometric bounds.
func NewBioEvidence(value string, dataQuality float64) Evidence {
	if dataQuality < 0 {
		dataQuality = 0
	}
	if dataQuality > 1 {
		dataQuality = 1
	}
	min, max := EvidenceBiometric.WeightBounds()
	consensus := 0.8
	return Evidence{
		Type:      EvidenceBiometric,
		Value:     value,
		Weight:    min + (max-min)*dataQuality,
		Consensus: &consensus,
	}
}

// NewScienceEvidence builds a scientific evidence item from a literature
// result; the consensus score scales the weight within the scientific bounds.
func NewScienceEvidence(title, sourceID string, consensusScore float64) Evidence {
	if consensusScore < 0 {
		consensusScore = 0
	}
	if consensusScore > 1 {
		consensusScore = 1
	}
	min, max := EvidenceScientific.WeightBounds()
	c := consensusScore
	return Evidence{
		Type:      EvidenceScientific,
		Value:     title,
		Weight:    min + (max-min)*consensusScore,
		Consensus: &c,
		SourceID:  sourceID,
	}
}

// NewActionEvidence builds a behavioral evidence item for a completed user
// action such as meditation or exercise.
func NewActionEvidence(actionType, value string, durationMinutes int) Evidence {
	weights := map[string]float64{
		"breathing_exercise": 0.15,
		"meditation":         0.18,
		"exercise":           0.2,
		"sleep_improvement":  0.15,
		"hydration":          0.08,
	}
	w, ok := weights[actionType]
	if !ok {
		w = 0.1
	}
	consensus := 0.6
	return Evidence{
		Type:            EvidenceBehavioral,
		Value:           value,
		Weight:          EvidenceBehavioral.ClampWeight(w),
		Consensus:       &consensus,
		ActionType:      actionType,
		DurationMinutes: durationMinutes,
	}
}

// NormalizeWeights rescales a stack so weights sum to 1. A zero-weight stack
// gets equal shares. The input slice is not modified.
func NormalizeWeights(stack []Evidence) []Evidence {
	if len(stack) == 0 {
		return nil
	}

	total := 0.0
	for _, e := range stack {
		total += e.Weight
	}

	out := make([]Evidence, len(stack))
	copy(out, stack)

	if total == 0 {
		equal := 1.0 / float64(len(stack))
		for i := range out {
			out[i].Weight = equal
		}
		return out
	}

	for i := range out {
		out[i].Weight = out[i].Weight / total
	}
	return out
}
