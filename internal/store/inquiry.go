package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nomoreanxious/calibra/internal/domain"
)

type InquiryStore struct {
	db *pgxpool.Pool
}

func NewInquiryStore(db *pgxpool.Pool) *InquiryStore {
	return &InquiryStore{db: db}
}

const inquiryColumns = `id, user_id, question_text, question_type, priority,
	data_gaps_addressed, user_response, created_at, responded_at`

func (s *InquiryStore) Create(ctx context.Context, r *domain.InquiryRecord) error {
	gapsJSON, err := json.Marshal(r.DataGapsAddressed)
	if err != nil {
		return fmt.Errorf("marshal data_gaps_addressed: %w", err)
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO inquiry_history (
			user_id, question_text, question_type, priority, data_gaps_addressed
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		r.UserID, r.QuestionText, r.QuestionType, r.Priority, gapsJSON,
	).Scan(&r.ID, &r.CreatedAt)
}

func (s *InquiryStore) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.InquiryRecord, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+inquiryColumns+`
		 FROM inquiry_history WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return scanInquiry(row)
}

func (s *InquiryStore) GetPending(ctx context.Context, userID uuid.UUID) (*domain.InquiryRecord, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+inquiryColumns+`
		 FROM inquiry_history
		 WHERE user_id = $1 AND user_response IS NULL
		 ORDER BY created_at DESC LIMIT 1`,
		userID,
	)
	return scanInquiry(row)
}

func (s *InquiryStore) GetLatestAnswered(ctx context.Context, userID uuid.UUID) (*domain.InquiryRecord, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+inquiryColumns+`
		 FROM inquiry_history
		 WHERE user_id = $1 AND user_response IS NOT NULL
		 ORDER BY responded_at DESC LIMIT 1`,
		userID,
	)
	return scanInquiry(row)
}

func (s *InquiryStore) ListAnsweredSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.InquiryRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+inquiryColumns+`
		 FROM inquiry_history
		 WHERE user_id = $1 AND responded_at >= $2
		 ORDER BY responded_at DESC`,
		userID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.InquiryRecord
	for rows.Next() {
		rec, err := scanInquiry(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *InquiryStore) RecordResponse(ctx context.Context, id uuid.UUID, userID uuid.UUID, response string, respondedAt time.Time) (*domain.InquiryRecord, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE inquiry_history
		 SET user_response = $3, responded_at = $4
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+inquiryColumns,
		id, userID, response, respondedAt,
	)
	return scanInquiry(row)
}

func scanInquiry(row pgx.Row) (*domain.InquiryRecord, error) {
	rec := &domain.InquiryRecord{}
	var gapsJSON []byte

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.QuestionText, &rec.QuestionType, &rec.Priority,
		&gapsJSON, &rec.UserResponse, &rec.CreatedAt, &rec.RespondedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(gapsJSON, &rec.DataGapsAddressed); err != nil {
		return nil, fmt.Errorf("unmarshal data_gaps_addressed: %w", err)
	}
	return rec, nil
}
