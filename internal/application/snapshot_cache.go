package application

import (
	"sync"
	"time"
)

// snapshotCache stores recently read analytics snapshots to avoid repeated
// store round-trips while dashboards poll the same event.
type snapshotCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]snapshotCacheEntry
}

type snapshotCacheEntry struct {
	snapshot  AnalyticsSnapshot
	expiresAt time.Time
}

func newSnapshotCache(ttl time.Duration, maxEntries int, now func() time.Time) *snapshotCache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &snapshotCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]snapshotCacheEntry),
	}
}

func (c *snapshotCache) Get(eventID string) (AnalyticsSnapshot, bool) {
	if c == nil {
		return AnalyticsSnapshot{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[eventID]
	c.mu.RUnlock()
	if !ok {
		return AnalyticsSnapshot{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, eventID)
		c.mu.Unlock()
		return AnalyticsSnapshot{}, false
	}
	return cloneSnapshot(entry.snapshot), true
}

func (c *snapshotCache) Store(eventID string, snapshot AnalyticsSnapshot) {
	if c == nil {
		return
	}
	cloned := cloneSnapshot(snapshot)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[eventID] = snapshotCacheEntry{snapshot: cloned, expiresAt: expiry}
}

func (c *snapshotCache) Invalidate(eventID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, eventID)
	c.mu.Unlock()
}

func (c *snapshotCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *snapshotCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneSnapshot(snapshot AnalyticsSnapshot) AnalyticsSnapshot {
	out := snapshot
	if len(snapshot.Referrers) > 0 {
		out.Referrers = make([]ReferrerCount, len(snapshot.Referrers))
		copy(out.Referrers, snapshot.Referrers)
	}
	return out
}
