package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository stores per-(user, day) message counters in the
// quota_counters table. Rows are created lazily on the first message of a
// day; old-day rows are left for an external retention job to prune.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// IncrementWithCeiling is the atomic check-and-increment: a single
// conditional upsert, never a read followed by a separate write. Two
// concurrent requests racing on the last slot cannot both pass; the row
// lock taken by the first UPDATE serializes them and the WHERE clause
// stops the loser.
//
// The caller guarantees ceiling >= 1; the insert arm starts a fresh day at 1.
func (r *Repository) IncrementWithCeiling(ctx context.Context, userID uuid.UUID, day DayKey, ceiling int) (bool, int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO quota_counters (user_id, day, messages_sent)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, day) DO UPDATE
		SET messages_sent = quota_counters.messages_sent + 1, updated_at = NOW()
		WHERE quota_counters.messages_sent < $3
		RETURNING messages_sent`,
		userID, string(day), ceiling,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Ceiling already reached; report the standing count.
			current, getErr := r.Get(ctx, userID, day)
			if getErr != nil {
				return false, 0, getErr
			}
			return false, current, nil
		}
		return false, 0, fmt.Errorf("incrementing quota counter: %w", err)
	}
	return true, count, nil
}

// Increment bumps the counter unconditionally. Used for unlimited tiers,
// where usage is recorded for observability but never denied.
func (r *Repository) Increment(ctx context.Context, userID uuid.UUID, day DayKey) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO quota_counters (user_id, day, messages_sent)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, day) DO UPDATE
		SET messages_sent = quota_counters.messages_sent + 1, updated_at = NOW()
		RETURNING messages_sent`,
		userID, string(day),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("incrementing quota counter: %w", err)
	}
	return count, nil
}

// Get returns the counter for (userID, day); zero if no row exists yet.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID, day DayKey) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT messages_sent FROM quota_counters WHERE user_id = $1 AND day = $2`,
		userID, string(day),
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("fetching quota counter: %w", err)
	}
	return count, nil
}
