package lock

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, defaultTTL time.Duration) *Service {
	t.Helper()
	return NewService(NewMemoryStore(), "slotlock", defaultTTL, NewMetrics(prometheus.NewRegistry()))
}

func TestAcquireIsExclusive(t *testing.T) {
	svc := newTestService(t, 120*time.Second)
	ctx := context.Background()

	first, err := svc.Acquire(ctx, "beautician-1", "2025-03-10", "14:00", 0)
	require.NoError(t, err)
	require.True(t, first.Locked)
	require.NotEmpty(t, first.LockID)
	require.Equal(t, 120*time.Second, first.ExpiresIn)

	second, err := svc.Acquire(ctx, "beautician-1", "2025-03-10", "14:00", 0)
	require.NoError(t, err)
	require.False(t, second.Locked)
	require.Equal(t, ReasonSlotLocked, second.Reason)
	require.Greater(t, second.RemainingTTL, time.Duration(0))
	require.Empty(t, second.LockID)
}

func TestAcquireDifferentSlotsDoNotContend(t *testing.T) {
	svc := newTestService(t, time.Minute)
	ctx := context.Background()

	a, err := svc.Acquire(ctx, "beautician-1", "2025-03-10", "14:00", 0)
	require.NoError(t, err)
	require.True(t, a.Locked)

	b, err := svc.Acquire(ctx, "beautician-1", "2025-03-10", "14:15", 0)
	require.NoError(t, err)
	require.True(t, b.Locked)

	c, err := svc.Acquire(ctx, "beautician-2", "2025-03-10", "14:00", 0)
	require.NoError(t, err)
	require.True(t, c.Locked)
}

func TestVerifyDistinguishesMissingFromMismatch(t *testing.T) {
	svc := newTestService(t, time.Minute)
	ctx := context.Background()

	missing, err := svc.Verify(ctx, "beautician-1", "2025-03-10", "14:00", "whatever")
	require.NoError(t, err)
	require.False(t, missing.Valid)
	require.Equal(t, ReasonLockNotFound, missing.Reason)

	acquired, err := svc.Acquire(ctx, "beautician-1", "2025-03-10", "14:00", 0)
	require.NoError(t, err)

	ok, err := svc.Verify(ctx, "beautician-1", "2025-03-10", "14:00", acquired.LockID)
	require.NoError(t, err)
	require.True(t, ok.Valid)
	require.Greater(t, ok.RemainingTTL, time.Duration(0))

	mismatch, err := svc.Verify(ctx, "beautician-1", "2025-03-10", "14:00", "some-other-token")
	require.NoError(t, err)
	require.False(t, mismatch.Valid)
	require.Equal(t, ReasonLockMismatch, mismatch.Reason)
}

func TestReleaseRequiresOwnership(t *testing.T) {
	svc := newTestService(t, time.Minute)
	ctx := context.Background()

	acquired, err := svc.Acquire(ctx, "beautician-1", "2025-03-10", "14:00", 0)
	require.NoError(t, err)

	wrong, err := svc.Release(ctx, "beautician-1", "2025-03-10", "14:00", "stale-token")
	require.NoError(t, err)
	require.False(t, wrong.Released)
	require.Equal(t, ReasonNotFoundOrMismatch, wrong.Reason)

	// the real owner is untouched by the failed release
	still, err := svc.Verify(ctx, "beautician-1", "2025-03-10", "14:00", acquired.LockID)
	require.NoError(t, err)
	require.True(t, still.Valid)

	first, err := svc.Release(ctx, "beautician-1", "2025-03-10", "14:00", acquired.LockID)
	require.NoError(t, err)
	require.True(t, first.Released)

	second, err := svc.Release(ctx, "beautician-1", "2025-03-10", "14:00", acquired.LockID)
	require.NoError(t, err)
	require.False(t, second.Released)
	require.Equal(t, ReasonNotFoundOrMismatch, second.Reason)
}

func TestRefreshExtendsOnlyForOwner(t *testing.T) {
	svc := newTestService(t, time.Minute)
	ctx := context.Background()

	acquired, err := svc.Acquire(ctx, "beautician-1", "2025-03-10", "14:00", 2*time.Second)
	require.NoError(t, err)

	denied, err := svc.Refresh(ctx, "beautician-1", "2025-03-10", "14:00", "stale-token", time.Hour)
	require.NoError(t, err)
	require.False(t, denied.Refreshed)
	require.Equal(t, ReasonNotFoundOrMismatch, denied.Reason)

	before, err := svc.Verify(ctx, "beautician-1", "2025-03-10", "14:00", acquired.LockID)
	require.NoError(t, err)
	require.LessOrEqual(t, before.RemainingTTL, 2*time.Second)

	refreshed, err := svc.Refresh(ctx, "beautician-1", "2025-03-10", "14:00", acquired.LockID, time.Minute)
	require.NoError(t, err)
	require.True(t, refreshed.Refreshed)
	require.Equal(t, time.Minute, refreshed.ExpiresIn)

	after, err := svc.Verify(ctx, "beautician-1", "2025-03-10", "14:00", acquired.LockID)
	require.NoError(t, err)
	require.Greater(t, after.RemainingTTL, 2*time.Second)
}

func TestLockExpiresAndCanBeReacquired(t *testing.T) {
	svc := newTestService(t, time.Minute)
	ctx := context.Background()

	acquired, err := svc.Acquire(ctx, "beautician-1", "2025-03-10", "14:00", 30*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired.Locked)

	time.Sleep(60 * time.Millisecond)

	expired, err := svc.Verify(ctx, "beautician-1", "2025-03-10", "14:00", acquired.LockID)
	require.NoError(t, err)
	require.False(t, expired.Valid)
	require.Equal(t, ReasonLockNotFound, expired.Reason)

	again, err := svc.Acquire(ctx, "beautician-1", "2025-03-10", "14:00", 0)
	require.NoError(t, err)
	require.True(t, again.Locked)
	require.NotEqual(t, acquired.LockID, again.LockID)
}

func TestForceReleaseBypassesOwnership(t *testing.T) {
	svc := newTestService(t, time.Minute)
	ctx := context.Background()

	_, err := svc.Acquire(ctx, "beautician-1", "2025-03-10", "14:00", 0)
	require.NoError(t, err)

	released, err := svc.ForceRelease(ctx, "beautician-1", "2025-03-10", "14:00")
	require.NoError(t, err)
	require.True(t, released)

	again, err := svc.ForceRelease(ctx, "beautician-1", "2025-03-10", "14:00")
	require.NoError(t, err)
	require.False(t, again)

	reacquired, err := svc.Acquire(ctx, "beautician-1", "2025-03-10", "14:00", 0)
	require.NoError(t, err)
	require.True(t, reacquired.Locked)
}

func TestListActiveFiltersByResource(t *testing.T) {
	svc := newTestService(t, time.Minute)
	ctx := context.Background()

	for _, slot := range []struct{ res, date, start string }{
		{"beautician-1", "2025-03-10", "14:00"},
		{"beautician-1", "2025-03-11", "09:30"},
		{"beautician-2", "2025-03-10", "14:00"},
	} {
		res, err := svc.Acquire(ctx, slot.res, slot.date, slot.start, 0)
		require.NoError(t, err)
		require.True(t, res.Locked)
	}

	all, err := svc.ListActive(ctx, "", 100)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, l := range all {
		require.Greater(t, l.RemainingTTL, time.Duration(0))
	}

	one, err := svc.ListActive(ctx, "beautician-1", 100)
	require.NoError(t, err)
	require.Len(t, one, 2)
	for _, l := range one {
		require.Equal(t, "beautician-1", l.ResourceID)
		require.NotEmpty(t, l.Date)
		require.NotEmpty(t, l.StartTime)
	}

	capped, err := svc.ListActive(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
}

func TestListActiveRefreshesActiveGauge(t *testing.T) {
	svc := newTestService(t, time.Minute)
	ctx := context.Background()

	for _, slot := range []struct{ res, start string }{
		{"beautician-1", "14:00"},
		{"beautician-1", "15:00"},
		{"beautician-2", "14:00"},
	} {
		res, err := svc.Acquire(ctx, slot.res, "2025-03-10", slot.start, 0)
		require.NoError(t, err)
		require.True(t, res.Locked)
	}

	_, err := svc.ListActive(ctx, "", 100)
	require.NoError(t, err)
	require.Equal(t, 3.0, testutil.ToFloat64(svc.metrics.ActiveLocks))

	// a filtered scan sees a subset and must not overwrite the gauge
	_, err = svc.ListActive(ctx, "beautician-2", 100)
	require.NoError(t, err)
	require.Equal(t, 3.0, testutil.ToFloat64(svc.metrics.ActiveLocks))

	_, err = svc.ForceRelease(ctx, "beautician-1", "2025-03-10", "14:00")
	require.NoError(t, err)

	_, err = svc.ListActive(ctx, "", 100)
	require.NoError(t, err)
	require.Equal(t, 2.0, testutil.ToFloat64(svc.metrics.ActiveLocks))
}

func TestKeyRoundTrip(t *testing.T) {
	svc := newTestService(t, time.Minute)

	key := svc.key("3f2c9f0a-0b1e-4d7c-9a55-6a4c2d8ee001", "2025-03-10", "14:00")
	require.Equal(t, "slotlock:{3f2c9f0a-0b1e-4d7c-9a55-6a4c2d8ee001}:2025-03-10:14:00", key)

	res, date, start, ok := svc.parseKey(key)
	require.True(t, ok)
	require.Equal(t, "3f2c9f0a-0b1e-4d7c-9a55-6a4c2d8ee001", res)
	require.Equal(t, "2025-03-10", date)
	require.Equal(t, "14:00", start)

	_, _, _, ok = svc.parseKey("other:namespace:key")
	require.False(t, ok)
}

func TestConcurrentAcquireHasSingleWinner(t *testing.T) {
	svc := newTestService(t, time.Minute)
	ctx := context.Background()

	const racers = 64
	results := make(chan bool, racers)
	start := make(chan struct{})

	for i := 0; i < racers; i++ {
		go func() {
			<-start
			res, err := svc.Acquire(ctx, "beautician-1", "2025-03-10", "14:00", 0)
			if err != nil {
				results <- false
				return
			}
			results <- res.Locked
		}()
	}
	close(start)

	wins := 0
	for i := 0; i < racers; i++ {
		if <-results {
			wins++
		}
	}
	require.Equal(t, 1, wins)
}

func TestHealthCheck(t *testing.T) {
	svc := newTestService(t, time.Minute)
	require.NoError(t, svc.HealthCheck(context.Background()))
}
