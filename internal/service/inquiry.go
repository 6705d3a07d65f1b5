package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/nomoreanxious/calibra/internal/domain"
	"go.uber.org/zap"
)

var ErrEmptyResponse = errors.New("inquiry response must not be empty")

const (
	// A field with no observation newer than this counts as a data gap.
	staleDataThreshold = 24 * time.Hour

	// Quiet period after an answered inquiry before the next question.
	answeredCooldown = 20 * time.Minute

	// Self-reported answers are usable but not sensor-grade.
	selfReportQuality = 0.7
)

// trackedFields are the biometric/behavioral fields the detector watches,
// in priority order.
var trackedFields = []domain.DataGap{
	{Field: "sleep_hours", Importance: domain.PriorityHigh, Description: "hours slept last night"},
	{Field: "stress_level", Importance: domain.PriorityHigh, Description: "current stress level"},
	{Field: "exercise_duration", Importance: domain.PriorityMedium, Description: "minutes of exercise today"},
	{Field: "meal_quality", Importance: domain.PriorityMedium, Description: "meal regularity today"},
	{Field: "mood", Importance: domain.PriorityLow, Description: "current mood"},
	{Field: "water_intake", Importance: domain.PriorityLow, Description: "water intake today"},
}

type inquiryTemplate struct {
	zh        string
	en        string
	optionsZH []domain.InquiryOption
	optionsEN []domain.InquiryOption
}

var inquiryTemplates = map[string]inquiryTemplate{
	"sleep_hours": {
		zh: "昨晚睡了多久?",
		en: "How many hours did you sleep last night?",
		optionsZH: []domain.InquiryOption{
			{Label: "不到6小时", Value: "under_6"},
			{Label: "6-7小时", Value: "6_7"},
			{Label: "7-8小时", Value: "7_8"},
			{Label: "8小时以上", Value: "over_8"},
		},
		optionsEN: []domain.InquiryOption{
			{Label: "Under 6 hours", Value: "under_6"},
			{Label: "6-7 hours", Value: "6_7"},
			{Label: "7-8 hours", Value: "7_8"},
			{Label: "Over 8 hours", Value: "over_8"},
		},
	},
	"stress_level": {
		zh: "今天压力大吗?",
		en: "How stressed are you feeling today?",
		optionsZH: []domain.InquiryOption{
			{Label: "不大", Value: "low"},
			{Label: "一般", Value: "medium"},
			{Label: "很大", Value: "high"},
		},
		optionsEN: []domain.InquiryOption{
			{Label: "Not much", Value: "low"},
			{Label: "Somewhat", Value: "medium"},
			{Label: "Very stressed", Value: "high"},
		},
	},
	"exercise_duration": {
		zh: "今天运动了吗?",
		en: "Did you get any exercise today?",
		optionsZH: []domain.InquiryOption{
			{Label: "没有", Value: "none"},
			{Label: "轻度活动", Value: "light"},
			{Label: "适量运动", Value: "moderate"},
			{Label: "高强度运动", Value: "intense"},
		},
		optionsEN: []domain.InquiryOption{
			{Label: "None", Value: "none"},
			{Label: "Light activity", Value: "light"},
			{Label: "Moderate workout", Value: "moderate"},
			{Label: "Intense workout", Value: "intense"},
		},
	},
	"meal_quality": {
		zh: "今天吃饭规律吗?",
		en: "How regular were your meals today?",
		optionsZH: []domain.InquiryOption{
			{Label: "不规律", Value: "poor"},
			{Label: "还行", Value: "okay"},
			{Label: "很规律", Value: "good"},
		},
		optionsEN: []domain.InquiryOption{
			{Label: "Irregular", Value: "poor"},
			{Label: "Okay", Value: "okay"},
			{Label: "Very regular", Value: "good"},
		},
	},
	"mood": {
		zh: "现在心情怎么样?",
		en: "How is your mood right now?",
		optionsZH: []domain.InquiryOption{
			{Label: "不太好", Value: "bad"},
			{Label: "还可以", Value: "okay"},
			{Label: "很好", Value: "great"},
		},
		optionsEN: []domain.InquiryOption{
			{Label: "Not great", Value: "bad"},
			{Label: "Okay", Value: "okay"},
			{Label: "Great", Value: "great"},
		},
	},
	"water_intake": {
		zh: "今天喝水够吗?",
		en: "Have you been drinking enough water today?",
		optionsZH: []domain.InquiryOption{
			{Label: "没怎么喝", Value: "low"},
			{Label: "一般", Value: "medium"},
			{Label: "喝得很多", Value: "high"},
		},
		optionsEN: []domain.InquiryOption{
			{Label: "Not much", Value: "low"},
			{Label: "Some", Value: "medium"},
			{Label: "Plenty", Value: "high"},
		},
	},
}

// responseValues maps closed-vocabulary answers to numeric observations.
var responseValues = map[string]map[string]float64{
	"sleep_hours":       {"under_6": 5, "6_7": 6.5, "7_8": 7.5, "over_8": 8.5},
	"stress_level":      {"low": 3, "medium": 6, "high": 9},
	"exercise_duration": {"none": 0, "light": 15, "moderate": 30, "intense": 60},
	"meal_quality":      {"poor": 3, "okay": 6, "good": 9},
	"mood":              {"bad": 3, "okay": 6, "great": 9},
	"water_intake":      {"low": 2, "medium": 5, "high": 8},
}

// InquiryResult is a question ready to show the user, or nothing when the
// detector decides to stay quiet.
type InquiryResult struct {
	Record  *domain.InquiryRecord
	Options []domain.InquiryOption
	// Persisted is false when the record could not be stored; the question
	// is still usable, its answer just won't match a stored row.
	Persisted bool
}

// ResponseResult is the outcome of recording an inquiry answer.
type ResponseResult struct {
	Record  *domain.InquiryRecord
	Message string
	// Evidence is the biometric candidate derived from a recognized answer,
	// nil when the answer did not map to a tracked value.
	Evidence *domain.Evidence
}

// InquiryService finds missing biometric/behavioral data and asks the user
// targeted questions to fill the gaps.
type InquiryService struct {
	store   domain.InquiryStore
	gate    *RelevanceGate
	refresh *RefreshDispatcher
	logger  *zap.Logger

	now func() time.Time
}

func NewInquiryService(store domain.InquiryStore, gate *RelevanceGate, refresh *RefreshDispatcher, logger *zap.Logger) *InquiryService {
	return &InquiryService{
		store:   store,
		gate:    gate,
		refresh: refresh,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (s *InquiryService) SetClock(now func() time.Time) {
	s.now = now
}

// NextInquiry returns the question to ask right now, if any. An existing
// unanswered question is always returned before a new one is synthesized,
// so at most one question is pending per user.
func (s *InquiryService) NextInquiry(ctx context.Context, userID uuid.UUID, recentData map[string]domain.DataPoint, goals []domain.PhaseGoal, language string) (*InquiryResult, error) {
	language = normalizeLanguage(language)

	pending, err := s.store.GetPending(ctx, userID)
	if err == nil {
		opts := s.localizePending(pending, goals, language)
		return &InquiryResult{Record: pending, Options: opts, Persisted: true}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.now()

	latest, err := s.store.GetLatestAnswered(ctx, userID)
	if err == nil && latest.RespondedAt != nil && now.Sub(*latest.RespondedAt) < answeredCooldown {
		return nil, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	askedToday, err := s.gapsAskedToday(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	gaps := IdentifyDataGaps(recentData, now)
	gap, ok := pickGap(gaps, askedToday)
	if !ok {
		return nil, nil
	}

	question, options := s.renderQuestion(gap, goals, language)
	if s.gate != nil && s.gate.ContainsForbiddenTopic(question) {
		s.logger.Warn("suppressing inquiry touching a forbidden topic",
			zap.String("field", gap.Field))
		return nil, nil
	}

	record := &domain.InquiryRecord{
		UserID:            userID,
		QuestionText:      question,
		QuestionType:      domain.QuestionDiagnostic,
		Priority:          gap.Importance,
		DataGapsAddressed: []string{gap.Field},
		CreatedAt:         now,
	}

	persisted := true
	if err := s.store.Create(ctx, record); err != nil {
		// The question is still worth asking; only the history is lost.
		persisted = false
		record.ID = uuid.New()
		s.logger.Warn("failed to persist inquiry, returning unsaved question",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	return &InquiryResult{Record: record, Options: options, Persisted: persisted}, nil
}

// Respond records the user's answer to a pending inquiry and derives a
// biometric evidence candidate when the answer is in the known vocabulary.
func (s *InquiryService) Respond(ctx context.Context, userID uuid.UUID, inquiryID uuid.UUID, response, language string) (*ResponseResult, error) {
	if response == "" {
		return nil, ErrEmptyResponse
	}
	language = normalizeLanguage(language)

	record, err := s.store.RecordResponse(ctx, inquiryID, userID, response, s.now())
	if err != nil {
		return nil, err
	}

	result := &ResponseResult{
		Record:  record,
		Message: ackMessage(language),
	}

	if field, value, ok := mapResponse(record, response); ok {
		ev := domain.NewBioEvidence(fmt.Sprintf("%s: %g (self-reported)", field, value), selfReportQuality)
		result.Evidence = &ev
	}

	if s.refresh != nil {
		s.refresh.Enqueue(RefreshTask{UserID: userID, Reason: "inquiry_response"})
	}

	return result, nil
}

// IdentifyDataGaps returns the tracked fields with no observation within the
// stale threshold, ordered high priority first, stalest first within a tier.
func IdentifyDataGaps(recentData map[string]domain.DataPoint, now time.Time) []domain.DataGap {
	var gaps []domain.DataGap
	for _, field := range trackedFields {
		point, ok := recentData[field.Field]
		if ok && now.Sub(point.Timestamp) < staleDataThreshold {
			continue
		}
		gap := field
		if ok {
			ts := point.Timestamp
			gap.LastUpdated = &ts
		}
		gaps = append(gaps, gap)
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		pi, pj := priorityRank(gaps[i].Importance), priorityRank(gaps[j].Importance)
		if pi != pj {
			return pi < pj
		}
		// Never-reported fields sort before merely stale ones.
		if (gaps[i].LastUpdated == nil) != (gaps[j].LastUpdated == nil) {
			return gaps[i].LastUpdated == nil
		}
		if gaps[i].LastUpdated != nil && gaps[j].LastUpdated != nil {
			return gaps[i].LastUpdated.Before(*gaps[j].LastUpdated)
		}
		return false
	})

	return gaps
}

func priorityRank(p domain.InquiryPriority) int {
	switch p {
	case domain.PriorityHigh:
		return 0
	case domain.PriorityMedium:
		return 1
	default:
		return 2
	}
}

// pickGap returns the first gap whose field has not been asked about today.
func pickGap(gaps []domain.DataGap, askedToday map[string]bool) (domain.DataGap, bool) {
	for _, gap := range gaps {
		if !askedToday[gap.Field] {
			return gap, true
		}
	}
	return domain.DataGap{}, false
}

func (s *InquiryService) gapsAskedToday(ctx context.Context, userID uuid.UUID, now time.Time) (map[string]bool, error) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	answered, err := s.store.ListAnsweredSince(ctx, userID, startOfDay)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	asked := make(map[string]bool)
	for _, rec := range answered {
		for _, field := range rec.DataGapsAddressed {
			asked[field] = true
		}
	}
	return asked, nil
}

func (s *InquiryService) renderQuestion(gap domain.DataGap, goals []domain.PhaseGoal, language string) (string, []domain.InquiryOption) {
	tmpl, ok := inquiryTemplates[gap.Field]
	if !ok {
		if language == "en" {
			return fmt.Sprintf("Could you update me on your %s?", gap.Description), nil
		}
		return fmt.Sprintf("能告诉我你最近的%s吗?", gap.Field), nil
	}

	question := tmpl.zh
	options := tmpl.optionsZH
	if language == "en" {
		question = tmpl.en
		options = tmpl.optionsEN
	}

	if goal, ok := primaryGoal(goals); ok {
		if language == "en" {
			question = fmt.Sprintf("To support your goal \"%s\": %s", goal.Title, question)
		} else {
			question = fmt.Sprintf("为了「%s」这个目标:%s", goal.Title, question)
		}
	}

	return question, options
}

// localizePending re-renders a pending question into the requested language
// when a template is known for its gap field. Rendering goes through
// renderQuestion so the goal-context prefix survives the language switch.
func (s *InquiryService) localizePending(record *domain.InquiryRecord, goals []domain.PhaseGoal, language string) []domain.InquiryOption {
	if len(record.DataGapsAddressed) == 0 {
		return nil
	}
	field := record.DataGapsAddressed[0]
	if _, ok := inquiryTemplates[field]; !ok {
		return nil
	}
	question, options := s.renderQuestion(domain.DataGap{Field: field}, goals, language)
	record.QuestionText = question
	return options
}

func primaryGoal(goals []domain.PhaseGoal) (domain.PhaseGoal, bool) {
	if len(goals) == 0 {
		return domain.PhaseGoal{}, false
	}
	best := goals[0]
	for _, g := range goals[1:] {
		if g.Priority < best.Priority {
			best = g
		}
	}
	return best, true
}

func mapResponse(record *domain.InquiryRecord, response string) (field string, value float64, ok bool) {
	for _, f := range record.DataGapsAddressed {
		vocab, found := responseValues[f]
		if !found {
			continue
		}
		if v, known := vocab[response]; known {
			return f, v, true
		}
	}
	return "", 0, false
}

func normalizeLanguage(language string) string {
	if language == "en" {
		return "en"
	}
	return "zh"
}

func ackMessage(language string) string {
	if language == "en" {
		return "Got it, your answer has been recorded."
	}
	return "收到,已经记下了。"
}
