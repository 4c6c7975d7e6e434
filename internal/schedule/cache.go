package schedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

func monthKey(staffID uuid.UUID, year int, month time.Month) string {
	return fmt.Sprintf("%s:%04d-%02d", staffID, year, int(month))
}

type cacheEntry struct {
	days      []string
	expiresAt time.Time
}

// MonthCache is a bounded TTL cache for fully-booked month scans, keyed
// by (staffID, year-month). Entries expire on their own or are dropped by
// Invalidate when a booking lands in the month. Stale reads here can only
// ever over- or under-report fully-booked days in the calendar view; the
// booking path never consults it.
type MonthCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	entries map[string]cacheEntry
}

func NewMonthCache(ttl time.Duration, max int) *MonthCache {
	if max <= 0 {
		max = 1
	}
	return &MonthCache{
		ttl:     ttl,
		max:     max,
		entries: make(map[string]cacheEntry),
	}
}

func (c *MonthCache) Get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.days, true
}

func (c *MonthCache) Set(key string, days []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.max {
		c.evictOldest()
	}
	c.entries[key] = cacheEntry{days: days, expiresAt: time.Now().Add(c.ttl)}
}

func (c *MonthCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// evictOldest drops the entry closest to expiry. Callers must hold mu.
func (c *MonthCache) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for key, e := range c.entries {
		if oldestKey == "" || e.expiresAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
