package domain

import (
	"time"

	"github.com/google/uuid"
)

type InquiryPriority string

const (
	PriorityHigh   InquiryPriority = "high"
	PriorityMedium InquiryPriority = "medium"
	PriorityLow    InquiryPriority = "low"
)

type InquiryQuestionType string

const (
	QuestionDiagnostic InquiryQuestionType = "diagnostic"
	QuestionFollowUp   InquiryQuestionType = "follow_up"
)

// DataGap is a biometric/behavioral field the system lacks recent data for.
type DataGap struct {
	Field       string          `json:"field"`
	Importance  InquiryPriority `json:"importance"`
	Description string          `json:"description"`
	LastUpdated *time.Time      `json:"last_updated,omitempty"`
}

// DataPoint is the most recent observation for one tracked field.
type DataPoint struct {
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type InquiryOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// InquiryRecord is one asked (and possibly answered) follow-up question.
// At most one unanswered record exists per user at a time.
type InquiryRecord struct {
	ID                uuid.UUID           `json:"id"`
	UserID            uuid.UUID           `json:"user_id"`
	QuestionText      string              `json:"question_text"`
	QuestionType      InquiryQuestionType `json:"question_type"`
	Priority          InquiryPriority     `json:"priority"`
	DataGapsAddressed []string            `json:"data_gaps_addressed"`
	UserResponse      *string             `json:"user_response,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	RespondedAt       *time.Time          `json:"responded_at,omitempty"`
}

func (r *InquiryRecord) Answered() bool {
	return r.UserResponse != nil
}

// PhaseGoal gives inquiry questions goal context when present.
type PhaseGoal struct {
	Title    string `json:"title"`
	Priority int    `json:"priority"`
}
