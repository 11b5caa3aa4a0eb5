package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/modelgate-platform/modelgate/internal/entitlements"
	"github.com/modelgate-platform/modelgate/internal/metrics"
)

// ErrQuotaExceeded is the expected, recoverable denial: the user hit their
// daily ceiling and can retry after the next UTC rollover.
var ErrQuotaExceeded = errors.New("daily message quota exceeded")

// CounterStore is the durable counter backend. IncrementWithCeiling must
// be a single atomic operation against the store.
type CounterStore interface {
	IncrementWithCeiling(ctx context.Context, userID uuid.UUID, day DayKey, ceiling int) (allowed bool, count int, err error)
	Increment(ctx context.Context, userID uuid.UUID, day DayKey) (int, error)
	Get(ctx context.Context, userID uuid.UUID, day DayKey) (int, error)
}

// Tracker enforces daily message ceilings. It keeps no state of its own:
// the day window is derived per call and rollover is lazy: the first
// request of a new day starts a fresh counter.
type Tracker struct {
	store CounterStore
}

func NewTracker(store CounterStore) *Tracker {
	return &Tracker{store: store}
}

// CheckAndIncrement consumes one quota slot, or returns ErrQuotaExceeded.
// Store failures deny the request (fail closed): a slot that cannot be
// verified is not granted. A consumed slot is never refunded, even if the
// caller abandons the request afterwards.
func (t *Tracker) CheckAndIncrement(ctx context.Context, userID uuid.UUID, ent entitlements.Entitlements) error {
	day := Today()

	if ent.Limit.IsUnlimited() {
		if _, err := t.store.Increment(ctx, userID, day); err != nil {
			// Recording is observability only; unlimited users are never denied.
			slog.Warn("quota: recording unlimited usage failed", "error", err, "user", userID)
		}
		metrics.PolicyDecisionsTotal.WithLabelValues("allowed").Inc()
		return nil
	}

	ceiling := ent.Limit.N()
	if ceiling <= 0 {
		metrics.PolicyDecisionsTotal.WithLabelValues("quota_exceeded").Inc()
		metrics.QuotaDenialsTotal.Inc()
		return fmt.Errorf("%w: ceiling is %d", ErrQuotaExceeded, ceiling)
	}

	allowed, count, err := t.store.IncrementWithCeiling(ctx, userID, day, ceiling)
	if err != nil {
		metrics.PolicyDecisionsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("checking quota for user %s: %w", userID, err)
	}
	if !allowed {
		metrics.PolicyDecisionsTotal.WithLabelValues("quota_exceeded").Inc()
		metrics.QuotaDenialsTotal.Inc()
		return fmt.Errorf("%w: %d/%d messages used", ErrQuotaExceeded, count, ceiling)
	}

	metrics.PolicyDecisionsTotal.WithLabelValues("allowed").Inc()
	return nil
}

// Usage reports current consumption for the /me/quota endpoint.
func (t *Tracker) Usage(ctx context.Context, userID uuid.UUID, ent entitlements.Entitlements) (*UsageStatus, error) {
	day := Today()

	count, err := t.store.Get(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("fetching quota usage: %w", err)
	}

	status := &UsageStatus{
		Day:          string(day),
		MessagesSent: count,
		Ceiling:      ent.Limit.Ceiling(),
		Remaining:    -1,
	}
	if !ent.Limit.IsUnlimited() {
		remaining := ent.Limit.N() - count
		if remaining < 0 {
			remaining = 0
		}
		status.Remaining = remaining
	}
	return status, nil
}
