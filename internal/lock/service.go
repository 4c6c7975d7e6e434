package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Machine-readable reason codes returned alongside failed lock operations.
// Release and refresh deliberately conflate "expired" and "held by someone
// else": telling them apart would need a separate read, reintroducing the
// race the atomic compare-and-mutate avoids.
const (
	ReasonSlotLocked         = "slot_locked"
	ReasonLockNotFound       = "lock_not_found"
	ReasonLockMismatch       = "lock_mismatch"
	ReasonNotFoundOrMismatch = "lock_not_found_or_mismatch"
)

type AcquireResult struct {
	Locked       bool
	LockID       string
	ExpiresIn    time.Duration
	ExpiresAt    time.Time
	Reason       string
	RemainingTTL time.Duration
}

type VerifyResult struct {
	Valid        bool
	Reason       string
	RemainingTTL time.Duration
}

type ReleaseResult struct {
	Released bool
	Reason   string
}

type RefreshResult struct {
	Refreshed bool
	Reason    string
	ExpiresIn time.Duration
	ExpiresAt time.Time
}

type ActiveLock struct {
	ResourceID   string
	Date         string
	StartTime    string
	RemainingTTL time.Duration
}

// Service is the slot lock service: a short-lived, ownership-checked
// distributed mutex keyed by (resourceID, date, startTime). It is
// constructed once in main and injected into handlers.
type Service struct {
	store      Store
	namespace  string
	defaultTTL time.Duration
	metrics    *Metrics
}

func NewService(store Store, namespace string, defaultTTL time.Duration, metrics *Metrics) *Service {
	return &Service{
		store:      store,
		namespace:  namespace,
		defaultTTL: defaultTTL,
		metrics:    metrics,
	}
}

func (s *Service) Close() error {
	return s.store.Close()
}

// key builds "<ns>:{resourceID}:<date>:<startTime>". The hash-tag braces
// keep every lock for one resource on the same cluster shard.
func (s *Service) key(resourceID, date, startTime string) string {
	return fmt.Sprintf("%s:{%s}:%s:%s", s.namespace, resourceID, date, startTime)
}

// parseKey inverts key. startTime itself contains a colon, so only the
// date separator is split on.
func (s *Service) parseKey(key string) (resourceID, date, startTime string, ok bool) {
	rest, found := strings.CutPrefix(key, s.namespace+":{")
	if !found {
		return "", "", "", false
	}
	resourceID, rest, found = strings.Cut(rest, "}:")
	if !found {
		return "", "", "", false
	}
	date, startTime, found = strings.Cut(rest, ":")
	if !found {
		return "", "", "", false
	}
	return resourceID, date, startTime, true
}

// Acquire makes a single non-blocking attempt to take the slot lease. On
// contention it reports the current holder's remaining TTL so the caller
// can suggest when the slot may free up.
func (s *Service) Acquire(ctx context.Context, resourceID, date, startTime string, ttl time.Duration) (AcquireResult, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	key := s.key(resourceID, date, startTime)
	token := uuid.NewString()

	ok, err := s.store.SetIfAbsent(ctx, key, token, ttl)
	if err != nil {
		return AcquireResult{}, fmt.Errorf("acquire slot lock: %w", err)
	}
	if !ok {
		remaining, err := s.store.TTL(ctx, key)
		if err != nil && !errors.Is(err, ErrKeyNotFound) {
			return AcquireResult{}, fmt.Errorf("read remaining ttl: %w", err)
		}
		s.metrics.Conflicts.Inc()
		return AcquireResult{
			Locked:       false,
			Reason:       ReasonSlotLocked,
			RemainingTTL: remaining,
		}, nil
	}

	s.metrics.Acquired.Inc()
	return AcquireResult{
		Locked:    true,
		LockID:    token,
		ExpiresIn: ttl,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// Verify reports whether lockID is the current holder of the slot lease,
// distinguishing an expired lock from one held by someone else.
func (s *Service) Verify(ctx context.Context, resourceID, date, startTime, lockID string) (VerifyResult, error) {
	key := s.key(resourceID, date, startTime)

	current, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		s.metrics.VerifyFailures.Inc()
		return VerifyResult{Valid: false, Reason: ReasonLockNotFound}, nil
	}
	if err != nil {
		return VerifyResult{}, fmt.Errorf("verify slot lock: %w", err)
	}
	if current != lockID {
		s.metrics.VerifyFailures.Inc()
		return VerifyResult{Valid: false, Reason: ReasonLockMismatch}, nil
	}

	remaining, err := s.store.TTL(ctx, key)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return VerifyResult{}, fmt.Errorf("read remaining ttl: %w", err)
	}
	return VerifyResult{Valid: true, RemainingTTL: remaining}, nil
}

// Release deletes the lease only if lockID still owns it. The compare and
// the delete happen in one store-side operation.
func (s *Service) Release(ctx context.Context, resourceID, date, startTime, lockID string) (ReleaseResult, error) {
	ok, err := s.store.CompareAndDelete(ctx, s.key(resourceID, date, startTime), lockID)
	if err != nil {
		return ReleaseResult{}, fmt.Errorf("release slot lock: %w", err)
	}
	if !ok {
		s.metrics.ReleaseMisses.Inc()
		return ReleaseResult{Released: false, Reason: ReasonNotFoundOrMismatch}, nil
	}
	s.metrics.Released.Inc()
	return ReleaseResult{Released: true}, nil
}

// Refresh extends the lease TTL only if lockID still owns it. Long
// checkout flows (payment provider redirects) call this to keep the
// reservation alive.
func (s *Service) Refresh(ctx context.Context, resourceID, date, startTime, lockID string, ttl time.Duration) (RefreshResult, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	ok, err := s.store.CompareAndExpire(ctx, s.key(resourceID, date, startTime), lockID, ttl)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("refresh slot lock: %w", err)
	}
	if !ok {
		s.metrics.RefreshMisses.Inc()
		return RefreshResult{Refreshed: false, Reason: ReasonNotFoundOrMismatch}, nil
	}
	s.metrics.Refreshed.Inc()
	return RefreshResult{
		Refreshed: true,
		ExpiresIn: ttl,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// ForceRelease unconditionally deletes the lease, bypassing the ownership
// check. Administrative stuck-lock recovery only.
func (s *Service) ForceRelease(ctx context.Context, resourceID, date, startTime string) (bool, error) {
	ok, err := s.store.Delete(ctx, s.key(resourceID, date, startTime))
	if err != nil {
		return false, fmt.Errorf("force-release slot lock: %w", err)
	}
	if ok {
		s.metrics.ForceReleases.Inc()
	}
	return ok, nil
}

// ListActive enumerates live leases, optionally filtered to one resource.
// Keys whose TTL expired between scan and read are skipped. Unfiltered
// scans refresh the active-locks gauge.
func (s *Service) ListActive(ctx context.Context, resourceID string, limit int) ([]ActiveLock, error) {
	if limit <= 0 {
		limit = 100
	}
	pattern := s.namespace + ":*"
	if resourceID != "" {
		pattern = s.namespace + ":{" + resourceID + "}:*"
	}

	keys, err := s.store.Scan(ctx, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("list active locks: %w", err)
	}

	locks := make([]ActiveLock, 0, len(keys))
	for _, key := range keys {
		res, date, start, ok := s.parseKey(key)
		if !ok {
			continue
		}
		remaining, err := s.store.TTL(ctx, key)
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read remaining ttl: %w", err)
		}
		locks = append(locks, ActiveLock{
			ResourceID:   res,
			Date:         date,
			StartTime:    start,
			RemainingTTL: remaining,
		})
	}
	if resourceID == "" {
		s.metrics.ActiveLocks.Set(float64(len(locks)))
	}
	return locks, nil
}

// HealthCheck probes the backing store.
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.store.Ping(ctx)
}
