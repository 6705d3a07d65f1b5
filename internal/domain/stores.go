package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*User, error)
}

// BeliefSessionStore is the user-scoped persistence boundary for belief
// sessions. Every read is parameterized by the caller's authenticated user ID
// and filters to sessions that user owns; there is no cross-user read.
type BeliefSessionStore interface {
	Create(ctx context.Context, s *BeliefSession) error
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*BeliefSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]BeliefSession, error)
	// AppendEvidence atomically appends one item to the session's evidence
	// stack and sets the new posterior, so concurrent appends cannot lose
	// updates.
	AppendEvidence(ctx context.Context, id uuid.UUID, userID uuid.UUID, ev Evidence, posterior int) error
}

type InquiryStore interface {
	Create(ctx context.Context, r *InquiryRecord) error
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*InquiryRecord, error)
	// GetPending returns the newest unanswered record, or ErrNotFound.
	GetPending(ctx context.Context, userID uuid.UUID) (*InquiryRecord, error)
	// GetLatestAnswered returns the most recently answered record, or ErrNotFound.
	GetLatestAnswered(ctx context.Context, userID uuid.UUID) (*InquiryRecord, error)
	ListAnsweredSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]InquiryRecord, error)
	RecordResponse(ctx context.Context, id uuid.UUID, userID uuid.UUID, response string, respondedAt time.Time) (*InquiryRecord, error)
}

// LiteratureProvider is one external literature search backend.
type LiteratureProvider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]LiteratureResult, error)
}
