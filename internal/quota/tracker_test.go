package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelgate-platform/modelgate/internal/entitlements"
)

// memStore mirrors the atomic semantics of the postgres repository: the
// check and the increment happen under one lock.
type memStore struct {
	mu       sync.Mutex
	counters map[string]int
}

func newMemStore() *memStore {
	return &memStore{counters: make(map[string]int)}
}

func key(userID uuid.UUID, day DayKey) string {
	return userID.String() + ":" + string(day)
}

func (s *memStore) IncrementWithCeiling(_ context.Context, userID uuid.UUID, day DayKey, ceiling int) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(userID, day)
	if s.counters[k] >= ceiling {
		return false, s.counters[k], nil
	}
	s.counters[k]++
	return true, s.counters[k], nil
}

func (s *memStore) Increment(_ context.Context, userID uuid.UUID, day DayKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(userID, day)
	s.counters[k]++
	return s.counters[k], nil
}

func (s *memStore) Get(_ context.Context, userID uuid.UUID, day DayKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key(userID, day)], nil
}

func limited(n int) entitlements.Entitlements {
	return entitlements.Entitlements{Limit: entitlements.LimitOf(n)}
}

func unlimited() entitlements.Entitlements {
	return entitlements.Entitlements{Limit: entitlements.Unlimited()}
}

func TestCheckAndIncrement_UnlimitedNeverDenies(t *testing.T) {
	store := newMemStore()
	tracker := NewTracker(store)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 1000; i++ {
		require.NoError(t, tracker.CheckAndIncrement(ctx, userID, unlimited()))
	}

	// Usage is still recorded for observability.
	count, err := store.Get(ctx, userID, Today())
	require.NoError(t, err)
	assert.Equal(t, 1000, count)
}

func TestCheckAndIncrement_FiniteCeiling(t *testing.T) {
	tracker := NewTracker(newMemStore())
	ctx := context.Background()
	userID := uuid.New()
	const ceiling = 5

	for i := 0; i < ceiling; i++ {
		require.NoError(t, tracker.CheckAndIncrement(ctx, userID, limited(ceiling)),
			"call %d should be allowed", i+1)
	}

	err := tracker.CheckAndIncrement(ctx, userID, limited(ceiling))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// Denial is final for this window; further calls stay denied.
	err = tracker.CheckAndIncrement(ctx, userID, limited(ceiling))
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestCheckAndIncrement_ZeroCeiling(t *testing.T) {
	tracker := NewTracker(newMemStore())

	err := tracker.CheckAndIncrement(context.Background(), uuid.New(), limited(0))
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestCheckAndIncrement_LastSlotRace(t *testing.T) {
	store := newMemStore()
	tracker := NewTracker(store)
	ctx := context.Background()
	userID := uuid.New()
	const ceiling = 10

	// Burn all but the last slot.
	for i := 0; i < ceiling-1; i++ {
		require.NoError(t, tracker.CheckAndIncrement(ctx, userID, limited(ceiling)))
	}

	const racers = 50
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- tracker.CheckAndIncrement(ctx, userID, limited(ceiling))
		}()
	}
	wg.Wait()
	close(results)

	var allowed, denied int
	for err := range results {
		if err == nil {
			allowed++
		} else {
			require.ErrorIs(t, err, ErrQuotaExceeded)
			denied++
		}
	}

	assert.Equal(t, 1, allowed, "exactly one racer may take the final slot")
	assert.Equal(t, racers-1, denied)

	count, err := store.Get(ctx, userID, Today())
	require.NoError(t, err)
	assert.Equal(t, ceiling, count, "counter must not overshoot the ceiling")
}

func TestDayRollover(t *testing.T) {
	store := newMemStore()
	tracker := NewTracker(store)
	ctx := context.Background()
	userID := uuid.New()

	// Fill yesterday's counter to the ceiling directly.
	yesterday := DayOf(time.Now().UTC().AddDate(0, 0, -1))
	for i := 0; i < 3; i++ {
		_, _, err := store.IncrementWithCeiling(ctx, userID, yesterday, 3)
		require.NoError(t, err)
	}

	// A new day reads as zero used and the first request passes.
	count, err := store.Get(ctx, userID, Today())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, tracker.CheckAndIncrement(ctx, userID, limited(3)))
}

func TestUsage(t *testing.T) {
	store := newMemStore()
	tracker := NewTracker(store)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, tracker.CheckAndIncrement(ctx, userID, limited(10)))
	require.NoError(t, tracker.CheckAndIncrement(ctx, userID, limited(10)))

	status, err := tracker.Usage(ctx, userID, limited(10))
	require.NoError(t, err)
	assert.Equal(t, 2, status.MessagesSent)
	assert.Equal(t, 10, status.Ceiling)
	assert.Equal(t, 8, status.Remaining)

	status, err = tracker.Usage(ctx, userID, unlimited())
	require.NoError(t, err)
	assert.Equal(t, -1, status.Ceiling)
	assert.Equal(t, -1, status.Remaining)
}

func TestSecondsUntilRollover(t *testing.T) {
	now := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 60, SecondsUntilRollover(now))

	midnight := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 86400, SecondsUntilRollover(midnight))
}
