package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nomoreanxious/calibra/internal/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type mockInquiryStore struct {
	records   map[uuid.UUID]*domain.InquiryRecord
	createErr error
}

func newMockInquiryStore() *mockInquiryStore {
	return &mockInquiryStore{records: make(map[uuid.UUID]*domain.InquiryRecord)}
}

func (m *mockInquiryStore) Create(ctx context.Context, r *domain.InquiryRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	r.ID = uuid.New()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	stored := *r
	m.records[r.ID] = &stored
	return nil
}

func (m *mockInquiryStore) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.InquiryRecord, error) {
	r, ok := m.records[id]
	if !ok || r.UserID != userID {
		return nil, domain.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *mockInquiryStore) GetPending(ctx context.Context, userID uuid.UUID) (*domain.InquiryRecord, error) {
	var newest *domain.InquiryRecord
	for _, r := range m.records {
		if r.UserID != userID || r.Answered() {
			continue
		}
		if newest == nil || r.CreatedAt.After(newest.CreatedAt) {
			newest = r
		}
	}
	if newest == nil {
		return nil, domain.ErrNotFound
	}
	copied := *newest
	return &copied, nil
}

func (m *mockInquiryStore) GetLatestAnswered(ctx context.Context, userID uuid.UUID) (*domain.InquiryRecord, error) {
	var latest *domain.InquiryRecord
	for _, r := range m.records {
		if r.UserID != userID || !r.Answered() {
			continue
		}
		if latest == nil || r.RespondedAt.After(*latest.RespondedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (m *mockInquiryStore) ListAnsweredSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.InquiryRecord, error) {
	var out []domain.InquiryRecord
	for _, r := range m.records {
		if r.UserID == userID && r.Answered() && !r.RespondedAt.Before(since) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockInquiryStore) RecordResponse(ctx context.Context, id uuid.UUID, userID uuid.UUID, response string, respondedAt time.Time) (*domain.InquiryRecord, error) {
	r, ok := m.records[id]
	if !ok || r.UserID != userID {
		return nil, domain.ErrNotFound
	}
	r.UserResponse = &response
	r.RespondedAt = &respondedAt
	copied := *r
	return &copied, nil
}

func newTestInquiryService(store domain.InquiryStore) *InquiryService {
	return NewInquiryService(store, NewRelevanceGate(), nil, zap.NewNop())
}

func TestIdentifyDataGapsStaleness(t *testing.T) {
	now := time.Now()
	fresh := now.Add(-2 * time.Hour)
	stale := now.Add(-30 * time.Hour)

	recentData := map[string]domain.DataPoint{
		"sleep_hours":  {Value: "7", Timestamp: fresh},
		"stress_level": {Value: "high", Timestamp: stale},
	}

	gaps := IdentifyDataGaps(recentData, now)

	fields := make(map[string]bool)
	for _, g := range gaps {
		fields[g.Field] = true
	}
	assert.False(t, fields["sleep_hours"], "fresh field should not be a gap")
	assert.True(t, fields["stress_level"], "stale field should be a gap")
	assert.True(t, fields["mood"], "never-reported field should be a gap")

	// High-importance gaps come first.
	assert.Equal(t, domain.PriorityHigh, gaps[0].Importance)
}

func TestNextInquiryReturnsPendingFirst(t *testing.T) {
	store := newMockInquiryStore()
	svc := newTestInquiryService(store)
	userID := uuid.New()

	pending := &domain.InquiryRecord{
		UserID:            userID,
		QuestionText:      "昨晚睡了多久?",
		QuestionType:      domain.QuestionDiagnostic,
		Priority:          domain.PriorityHigh,
		DataGapsAddressed: []string{"sleep_hours"},
	}
	assert.NoError(t, store.Create(context.Background(), pending))

	result, err := svc.NextInquiry(context.Background(), userID, nil, nil, "en")
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, pending.ID, result.Record.ID)
	assert.Equal(t, "How many hours did you sleep last night?", result.Record.QuestionText)
	assert.NotEmpty(t, result.Options)
	assert.True(t, result.Persisted)

	// No second question was created.
	assert.Len(t, store.records, 1)
}

func TestLocalizePendingKeepsGoalContext(t *testing.T) {
	store := newMockInquiryStore()
	svc := newTestInquiryService(store)
	userID := uuid.New()

	goals := []domain.PhaseGoal{{Title: "改善睡眠", Priority: 1}}

	pending := &domain.InquiryRecord{
		UserID:            userID,
		QuestionText:      "为了「改善睡眠」这个目标:昨晚睡了多久?",
		QuestionType:      domain.QuestionDiagnostic,
		Priority:          domain.PriorityHigh,
		DataGapsAddressed: []string{"sleep_hours"},
	}
	assert.NoError(t, store.Create(context.Background(), pending))

	result, err := svc.NextInquiry(context.Background(), userID, nil, goals, "en")
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Contains(t, result.Record.QuestionText, "To support your goal \"改善睡眠\"")
	assert.Contains(t, result.Record.QuestionText, "How many hours did you sleep last night?")
}

func TestNextInquiryCooldownAfterAnswer(t *testing.T) {
	store := newMockInquiryStore()
	svc := newTestInquiryService(store)
	userID := uuid.New()

	answered := &domain.InquiryRecord{
		UserID:            userID,
		QuestionText:      "今天压力大吗?",
		DataGapsAddressed: []string{"stress_level"},
	}
	assert.NoError(t, store.Create(context.Background(), answered))
	_, err := store.RecordResponse(context.Background(), answered.ID, userID, "low", time.Now().Add(-5*time.Minute))
	assert.NoError(t, err)

	result, err := svc.NextInquiry(context.Background(), userID, nil, nil, "zh")
	assert.NoError(t, err)
	assert.Nil(t, result, "within cooldown no new question should be asked")
}

func TestNextInquirySkipsGapsAskedToday(t *testing.T) {
	store := newMockInquiryStore()
	svc := newTestInquiryService(store)
	userID := uuid.New()

	// Pin the clock mid-day so "answered two hours ago" stays within today.
	now := time.Date(2026, 3, 14, 14, 0, 0, 0, time.Local)
	svc.SetClock(func() time.Time { return now })

	answered := &domain.InquiryRecord{
		UserID:            userID,
		QuestionText:      "昨晚睡了多久?",
		DataGapsAddressed: []string{"sleep_hours"},
	}
	assert.NoError(t, store.Create(context.Background(), answered))
	_, err := store.RecordResponse(context.Background(), answered.ID, userID, "7_8", now.Add(-2*time.Hour))
	assert.NoError(t, err)

	result, err := svc.NextInquiry(context.Background(), userID, nil, nil, "zh")
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.NotContains(t, result.Record.DataGapsAddressed, "sleep_hours",
		"a gap answered today must not be asked again")
	assert.Equal(t, "stress_level", result.Record.DataGapsAddressed[0],
		"next highest-priority gap should be picked")
}

func TestNextInquiryGoalContext(t *testing.T) {
	svc := newTestInquiryService(newMockInquiryStore())

	goals := []domain.PhaseGoal{
		{Title: "改善睡眠", Priority: 1},
		{Title: "减轻压力", Priority: 2},
	}

	result, err := svc.NextInquiry(context.Background(), uuid.New(), nil, goals, "zh")
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Contains(t, result.Record.QuestionText, "改善睡眠")
}

func TestNextInquiryLossyPersistence(t *testing.T) {
	store := newMockInquiryStore()
	store.createErr = errors.New("db down")
	svc := newTestInquiryService(store)

	result, err := svc.NextInquiry(context.Background(), uuid.New(), nil, nil, "zh")
	assert.NoError(t, err, "persistence failure must not fail the inquiry")
	assert.NotNil(t, result)
	assert.False(t, result.Persisted)
	assert.NotEqual(t, uuid.Nil, result.Record.ID)
	assert.NotEmpty(t, result.Record.QuestionText)
}

func TestRespondMapsVocabulary(t *testing.T) {
	store := newMockInquiryStore()
	refresh := NewRefreshDispatcher(nil, zap.NewNop())
	svc := NewInquiryService(store, NewRelevanceGate(), refresh, zap.NewNop())
	userID := uuid.New()

	record := &domain.InquiryRecord{
		UserID:            userID,
		QuestionText:      "昨晚睡了多久?",
		DataGapsAddressed: []string{"sleep_hours"},
	}
	assert.NoError(t, store.Create(context.Background(), record))

	result, err := svc.Respond(context.Background(), userID, record.ID, "7_8", "zh")
	assert.NoError(t, err)
	assert.True(t, result.Record.Answered())
	assert.NotEmpty(t, result.Message)
	assert.NotNil(t, result.Evidence)
	assert.Equal(t, domain.EvidenceBiometric, result.Evidence.Type)
	assert.Contains(t, result.Evidence.Value, "sleep_hours")
}

func TestRespondUnknownVocabulary(t *testing.T) {
	store := newMockInquiryStore()
	svc := newTestInquiryService(store)
	userID := uuid.New()

	record := &domain.InquiryRecord{
		UserID:            userID,
		DataGapsAddressed: []string{"sleep_hours"},
	}
	assert.NoError(t, store.Create(context.Background(), record))

	result, err := svc.Respond(context.Background(), userID, record.ID, "睡得还行吧", "zh")
	assert.NoError(t, err, "free-text answers are recorded even without a mapping")
	assert.Nil(t, result.Evidence)
	assert.True(t, result.Record.Answered())
}

func TestRespondValidation(t *testing.T) {
	svc := newTestInquiryService(newMockInquiryStore())

	_, err := svc.Respond(context.Background(), uuid.New(), uuid.New(), "", "zh")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = svc.Respond(context.Background(), uuid.New(), uuid.New(), "7_8", "zh")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
