package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nomoreanxious/calibra/internal/domain"
)

type BeliefSessionStore struct {
	db *pgxpool.Pool
}

func NewBeliefSessionStore(db *pgxpool.Pool) *BeliefSessionStore {
	return &BeliefSessionStore{db: db}
}

func (s *BeliefSessionStore) Create(ctx context.Context, sess *domain.BeliefSession) error {
	stackJSON, err := json.Marshal(sess.EvidenceStack)
	if err != nil {
		return fmt.Errorf("marshal evidence_stack: %w", err)
	}
	papersJSON, err := json.Marshal(sess.PapersUsed)
	if err != nil {
		return fmt.Errorf("marshal papers_used: %w", err)
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO belief_sessions (
			user_id, prior_value, posterior_value, likelihood, evidence_weight,
			evidence_stack, papers_used, belief_text
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		sess.UserID, sess.PriorValue, sess.PosteriorValue, sess.Likelihood, sess.EvidenceWeight,
		stackJSON, papersJSON, sess.BeliefText,
	).Scan(&sess.ID, &sess.CreatedAt)
}

func (s *BeliefSessionStore) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.BeliefSession, error) {
	sess := &domain.BeliefSession{}
	var stackJSON, papersJSON []byte

	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, prior_value, posterior_value, likelihood, evidence_weight,
			evidence_stack, papers_used, belief_text, created_at
		FROM belief_sessions WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(
		&sess.ID, &sess.UserID, &sess.PriorValue, &sess.PosteriorValue, &sess.Likelihood, &sess.EvidenceWeight,
		&stackJSON, &papersJSON, &sess.BeliefText, &sess.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(stackJSON, &sess.EvidenceStack); err != nil {
		return nil, fmt.Errorf("unmarshal evidence_stack: %w", err)
	}
	if err := json.Unmarshal(papersJSON, &sess.PapersUsed); err != nil {
		return nil, fmt.Errorf("unmarshal papers_used: %w", err)
	}
	return sess, nil
}

func (s *BeliefSessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.BeliefSession, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, prior_value, posterior_value, likelihood, evidence_weight,
			evidence_stack, papers_used, belief_text, created_at
		FROM belief_sessions WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.BeliefSession
	for rows.Next() {
		var sess domain.BeliefSession
		var stackJSON, papersJSON []byte
		if err := rows.Scan(
			&sess.ID, &sess.UserID, &sess.PriorValue, &sess.PosteriorValue, &sess.Likelihood, &sess.EvidenceWeight,
			&stackJSON, &papersJSON, &sess.BeliefText, &sess.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(stackJSON, &sess.EvidenceStack); err != nil {
			return nil, fmt.Errorf("unmarshal evidence_stack: %w", err)
		}
		if err := json.Unmarshal(papersJSON, &sess.PapersUsed); err != nil {
			return nil, fmt.Errorf("unmarshal papers_used: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// AppendEvidence pushes one evidence item onto the session's jsonb stack and
// sets the new posterior in a single statement, so two concurrent appends
// both land.
func (s *BeliefSessionStore) AppendEvidence(ctx context.Context, id uuid.UUID, userID uuid.UUID, ev domain.Evidence, posterior int) error {
	evJSON, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE belief_sessions
		 SET evidence_stack = evidence_stack || $3::jsonb,
		     posterior_value = $4
		 WHERE id = $1 AND user_id = $2`,
		id, userID, evJSON, posterior,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
