package tiers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("subscription type not found")
	ErrTierExists = errors.New("subscription type already exists")
)

type Repository interface {
	Get(ctx context.Context, id string) (*SubscriptionType, error)
	List(ctx context.Context, onlyActive bool) ([]SubscriptionType, error)
	Create(ctx context.Context, tier *SubscriptionType) error
	Update(ctx context.Context, id string, req *UpdateTierRequest) (*SubscriptionType, error)
	Delete(ctx context.Context, id string) error
	CountReferences(ctx context.Context, id string) (int64, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const tierColumns = `id, name, max_messages_per_day, available_model_ids, active, created_at, updated_at`

func scanTier(row pgx.Row) (*SubscriptionType, error) {
	t := &SubscriptionType{}
	err := row.Scan(&t.ID, &t.Name, &t.MaxMessagesPerDay, &t.AvailableModelIDs,
		&t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresRepository) Get(ctx context.Context, id string) (*SubscriptionType, error) {
	query := `SELECT ` + tierColumns + ` FROM subscription_types WHERE id = $1`

	tier, err := scanTier(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying subscription type: %w", err)
	}
	return tier, nil
}

func (r *postgresRepository) List(ctx context.Context, onlyActive bool) ([]SubscriptionType, error) {
	query := `SELECT ` + tierColumns + ` FROM subscription_types`
	if onlyActive {
		query += ` WHERE active`
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing subscription types: %w", err)
	}
	defer rows.Close()

	var tiers []SubscriptionType
	for rows.Next() {
		t := SubscriptionType{}
		if err := rows.Scan(&t.ID, &t.Name, &t.MaxMessagesPerDay, &t.AvailableModelIDs,
			&t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning subscription type: %w", err)
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

func (r *postgresRepository) Create(ctx context.Context, tier *SubscriptionType) error {
	query := `
		INSERT INTO subscription_types (id, name, max_messages_per_day, available_model_ids, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		tier.ID, tier.Name, tier.MaxMessagesPerDay, tier.AvailableModelIDs,
		tier.Active, tier.CreatedAt, tier.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrTierExists
		}
		return fmt.Errorf("inserting subscription type: %w", err)
	}
	return nil
}

// Update applies a partial update inside a transaction. The row lock
// serializes concurrent admin edits to the same tier.
func (r *postgresRepository) Update(ctx context.Context, id string, req *UpdateTierRequest) (*SubscriptionType, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning tier update: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + tierColumns + ` FROM subscription_types WHERE id = $1 FOR UPDATE`
	tier, err := scanTier(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("locking subscription type: %w", err)
	}

	if req.Name != nil {
		tier.Name = *req.Name
	}
	if req.MaxMessagesPerDay != nil {
		tier.MaxMessagesPerDay = *req.MaxMessagesPerDay
	}
	if req.AvailableModelIDs != nil {
		tier.AvailableModelIDs = *req.AvailableModelIDs
	}
	if req.Active != nil {
		tier.Active = *req.Active
	}
	tier.UpdatedAt = time.Now()

	_, err = tx.Exec(ctx, `
		UPDATE subscription_types
		SET name = $2, max_messages_per_day = $3, available_model_ids = $4, active = $5, updated_at = $6
		WHERE id = $1`,
		tier.ID, tier.Name, tier.MaxMessagesPerDay, tier.AvailableModelIDs, tier.Active, tier.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updating subscription type: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing tier update: %w", err)
	}
	return tier, nil
}

// Delete removes an unreferenced subscription type. The reference count is
// taken under the same row lock as the delete, so a concurrent assignment
// cannot slip in between.
func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tier delete: %w", err)
	}
	defer tx.Rollback(ctx)

	var lockedID string
	err = tx.QueryRow(ctx,
		`SELECT id FROM subscription_types WHERE id = $1 FOR UPDATE`, id).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("locking subscription type: %w", err)
	}

	var count int64
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE subscription_type = $1`, id).Scan(&count)
	if err != nil {
		return fmt.Errorf("counting tier references: %w", err)
	}
	if count > 0 {
		return &TierInUseError{ID: id, Count: count}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM subscription_types WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting subscription type: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *postgresRepository) CountReferences(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE subscription_type = $1`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting tier references: %w", err)
	}
	return count, nil
}
