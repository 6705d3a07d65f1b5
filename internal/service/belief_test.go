package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nomoreanxious/calibra/internal/domain"
	"go.uber.org/zap"
)

type mockBeliefStore struct {
	sessions map[uuid.UUID]*domain.BeliefSession
}

func newMockBeliefStore() *mockBeliefStore {
	return &mockBeliefStore{sessions: make(map[uuid.UUID]*domain.BeliefSession)}
}

func (m *mockBeliefStore) Create(ctx context.Context, s *domain.BeliefSession) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	stored := *s
	m.sessions[s.ID] = &stored
	return nil
}

func (m *mockBeliefStore) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.BeliefSession, error) {
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, domain.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockBeliefStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.BeliefSession, error) {
	var out []domain.BeliefSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockBeliefStore) AppendEvidence(ctx context.Context, id uuid.UUID, userID uuid.UUID, ev domain.Evidence, posterior int) error {
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return domain.ErrNotFound
	}
	s.EvidenceStack = append(s.EvidenceStack, ev)
	s.PosteriorValue = posterior
	return nil
}

func newTestBeliefService(store domain.BeliefSessionStore) *BeliefService {
	return NewBeliefService(store, nil, NewRelevanceGate(), zap.NewNop())
}

func TestCalibrateCreatesSession(t *testing.T) {
	store := newMockBeliefStore()
	svc := newTestBeliefService(store)
	userID := uuid.New()

	evidence := []domain.Evidence{
		domain.NewBioEvidence("hrv: normal range", 0.9),
		domain.NewScienceEvidence("Sleep quality and anxiety", "s2_123", 0.5),
	}

	result, err := svc.Calibrate(context.Background(), userID, 80, "我最近睡眠不好怎么办", evidence)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Session == nil {
		t.Fatal("expected a session")
	}

	s := result.Session
	if s.PriorValue != 80 {
		t.Errorf("expected prior 80, got %d", s.PriorValue)
	}
	if s.PosteriorValue < 0 || s.PosteriorValue > 100 {
		t.Errorf("posterior out of range: %d", s.PosteriorValue)
	}
	if s.PosteriorValue >= s.PriorValue {
		t.Errorf("consensus below certainty should reduce the belief: prior %d, posterior %d", s.PriorValue, s.PosteriorValue)
	}
	if s.Likelihood <= 0 || s.Likelihood > 1 {
		t.Errorf("likelihood out of range: %v", s.Likelihood)
	}
	if len(store.sessions) != 1 {
		t.Errorf("expected session persisted, store has %d", len(store.sessions))
	}
}

func TestCalibrateBlockedQuery(t *testing.T) {
	store := newMockBeliefStore()
	svc := newTestBeliefService(store)

	result, err := svc.Calibrate(context.Background(), uuid.New(), 70, "股票会不会跌", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Session != nil {
		t.Error("blocked query must not create a session")
	}
	if result.Classification.IsHealthRelated {
		t.Error("expected classification to be blocked")
	}
	if result.Classification.SuggestedResponse == "" {
		t.Error("expected a decline message")
	}
	if len(store.sessions) != 0 {
		t.Error("blocked query must not persist anything")
	}
}

func TestCalibratePriorOutOfRange(t *testing.T) {
	svc := newTestBeliefService(newMockBeliefStore())

	for _, prior := range []int{-1, 101} {
		_, err := svc.Calibrate(context.Background(), uuid.New(), prior, "睡眠", nil)
		if err != ErrPriorOutOfRange {
			t.Errorf("prior %d: expected ErrPriorOutOfRange, got %v", prior, err)
		}
	}
}

func TestCalibrateEmptyEvidenceKeepsPrior(t *testing.T) {
	svc := newTestBeliefService(newMockBeliefStore())

	result, err := svc.Calibrate(context.Background(), uuid.New(), 65, "心悸是怎么回事", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Session.PosteriorValue != 65 {
		t.Errorf("no evidence should leave the prior untouched, got %d", result.Session.PosteriorValue)
	}
}

func TestUpdateCompletedActionReducesBelief(t *testing.T) {
	store := newMockBeliefStore()
	svc := newTestBeliefService(store)
	userID := uuid.New()

	session := &domain.BeliefSession{
		UserID:         userID,
		PriorValue:     70,
		PosteriorValue: 70,
		BeliefText:     "心跳快是不是很危险",
	}
	if err := store.Create(context.Background(), session); err != nil {
		t.Fatal(err)
	}

	ev := domain.Evidence{
		Type:       domain.EvidenceBehavioral,
		Value:      "completed meditation",
		Weight:     1.0,
		ActionType: "meditation",
	}

	updated, err := svc.Update(context.Background(), userID, session.ID, ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.PosteriorValue >= 70 {
		t.Errorf("completed action must reduce the belief: got %d", updated.PosteriorValue)
	}
	if len(updated.EvidenceStack) != 1 {
		t.Errorf("expected evidence appended, stack has %d", len(updated.EvidenceStack))
	}

	// Stored copy must reflect the append.
	stored, err := store.GetByID(context.Background(), session.ID, userID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.PosteriorValue != updated.PosteriorValue {
		t.Errorf("stored posterior %d != returned %d", stored.PosteriorValue, updated.PosteriorValue)
	}
}

func TestUpdateUnknownSession(t *testing.T) {
	svc := newTestBeliefService(newMockBeliefStore())

	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), domain.NewActionEvidence("meditation", "done", 15))
	if err != domain.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCorrectionFromStack(t *testing.T) {
	tests := []struct {
		name  string
		stack []domain.Evidence
		want  int
	}{
		{
			name: "meditation full weight",
			stack: []domain.Evidence{
				{Type: domain.EvidenceBehavioral, ActionType: "meditation", Weight: 1.0},
			},
			want: -8,
		},
		{
			name: "long exercise scales up",
			stack: []domain.Evidence{
				{Type: domain.EvidenceBehavioral, ActionType: "exercise", Weight: 1.0, DurationMinutes: 30},
			},
			want: -15,
		},
		{
			name: "unknown action gets default",
			stack: []domain.Evidence{
				{Type: domain.EvidenceBehavioral, ActionType: "journaling", Weight: 1.0},
			},
			want: -2,
		},
		{
			name: "total clamped at -20",
			stack: []domain.Evidence{
				{Type: domain.EvidenceBehavioral, ActionType: "exercise", Weight: 1.0, DurationMinutes: 60},
				{Type: domain.EvidenceBehavioral, ActionType: "meditation", Weight: 1.0, DurationMinutes: 60},
			},
			want: -20,
		},
		{
			name: "small weighted correction still at least -1",
			stack: []domain.Evidence{
				{Type: domain.EvidenceBehavioral, ActionType: "hydration", Weight: 0.05},
			},
			want: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CorrectionFromStack(tt.stack)
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCorrectionNeverPositive(t *testing.T) {
	stack := []domain.Evidence{
		{Type: domain.EvidenceScientific, Weight: 0.6},
		{Type: domain.EvidenceBiometric, Weight: 0.4},
	}
	if got := CorrectionFromStack(stack); got > -1 {
		t.Errorf("corrections are always negative, got %d", got)
	}
}

func TestExaggerationFactor(t *testing.T) {
	s := domain.BeliefSession{PriorValue: 80, PosteriorValue: 20}
	if got := s.ExaggerationFactor(); got != 4.0 {
		t.Errorf("expected 4.0, got %v", got)
	}

	zero := domain.BeliefSession{PriorValue: 80, PosteriorValue: 0}
	if got := zero.ExaggerationFactor(); got != domain.MaxExaggerationFactor {
		t.Errorf("zero posterior caps at %v, got %v", domain.MaxExaggerationFactor, got)
	}

	flat := domain.BeliefSession{PriorValue: 0, PosteriorValue: 0}
	if got := flat.ExaggerationFactor(); got != 1 {
		t.Errorf("zero prior and posterior has no overshoot, got %v", got)
	}
}
