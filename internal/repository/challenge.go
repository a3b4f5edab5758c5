package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/errdefs"
)

// ChallengeRepository owns the ephemeral verification state. One row per
// (user, purpose); upserting replaces any prior challenge, which is how a
// fresh request invalidates an outstanding code.
type ChallengeRepository struct {
	db *sql.DB
}

func NewChallengeRepository(db *sql.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

func (r *ChallengeRepository) Upsert(ctx context.Context, challenge *domain.Challenge) error {
	query := `
		INSERT INTO challenges (user_id, purpose, code, expires_at, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, purpose)
		DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at,
		              payload = EXCLUDED.payload, created_at = EXCLUDED.created_at
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		challenge.UserID, challenge.Purpose, challenge.Code,
		challenge.ExpiresAt, []byte(challenge.Payload), now,
	)
	if err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	challenge.CreatedAt = now
	return nil
}

// RefreshCode overwrites the code and expiry but keeps the staged payload.
// Used by resend; fails with ErrNoPendingChallenge when nothing is staged.
func (r *ChallengeRepository) RefreshCode(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose, code string, expiresAt time.Time) error {
	query := `
		UPDATE challenges SET code = $1, expires_at = $2
		WHERE user_id = $3 AND purpose = $4
	`

	result, err := r.db.ExecContext(ctx, query, code, expiresAt, userID, purpose)
	if err != nil {
		return fmt.Errorf("failed to refresh challenge code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errdefs.ErrNoPendingChallenge
	}
	return nil
}

func (r *ChallengeRepository) Get(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose) (*domain.Challenge, error) {
	query := `
		SELECT user_id, purpose, code, expires_at, payload, created_at
		FROM challenges
		WHERE user_id = $1 AND purpose = $2
	`

	var c domain.Challenge
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, userID, purpose).Scan(
		&c.UserID, &c.Purpose, &c.Code, &c.ExpiresAt, &payload, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errdefs.ErrNoPendingChallenge
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	c.Payload = json.RawMessage(payload)
	return &c, nil
}

// Delete consumes a challenge. Only called after a successful
// confirmation; failed checks leave the row in place so the actor can
// retry with the same code.
func (r *ChallengeRepository) Delete(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM challenges WHERE user_id = $1 AND purpose = $2`, userID, purpose)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}
