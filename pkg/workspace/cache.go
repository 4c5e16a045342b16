package workspace

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL applies when the configured duration is out of range.
	DefaultTTL = 5 * time.Minute

	MinTTL = 1 * time.Minute
	MaxTTL = 60 * time.Minute
)

// Cache memoizes project snapshots per root with a time-to-live. It is
// constructed once per process and injected wherever it is needed; entries
// are immutable value snapshots, so concurrent readers never observe partial
// state and a redundant rebuild simply overwrites (last writer wins).
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Snapshot
	ttl     time.Duration
	group   singleflight.Group
	watcher *manifestWatcher
}

// NewCache creates a cache with the given entry lifetime, clamped to the
// supported range.
func NewCache(ttl time.Duration) *Cache {
	if ttl < MinTTL || ttl > MaxTTL {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]Snapshot),
		ttl:     ttl,
	}
}

// Get returns the snapshot for a project root and whether it was served
// from the cache. Expired entries are treated as a miss and silently
// replaced. An empty root yields a degraded snapshot that is never cached.
// Concurrent rebuilds of the same root are coalesced.
func (c *Cache) Get(root string) (Snapshot, bool) {
	if root == "" {
		return buildSnapshot(""), false
	}

	c.mu.RLock()
	entry, ok := c.entries[root]
	c.mu.RUnlock()
	if ok && time.Since(entry.CapturedAt) < c.ttl {
		return entry, true
	}

	value, _, _ := c.group.Do(root, func() (interface{}, error) {
		snap := buildSnapshot(root)
		c.mu.Lock()
		c.entries[root] = snap
		c.mu.Unlock()
		c.observeRoot(root)
		return snap, nil
	})
	return value.(Snapshot), false
}

// Invalidate drops the entry for one project root.
func (c *Cache) Invalidate(root string) {
	c.mu.Lock()
	delete(c.entries, root)
	c.mu.Unlock()
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]Snapshot)
	c.mu.Unlock()
}

// Roots returns the project roots currently held, expired or not.
func (c *Cache) Roots() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	roots := make([]string, 0, len(c.entries))
	for root := range c.entries {
		roots = append(roots, root)
	}
	return roots
}

// Peek returns the cached entry without rebuilding, for inspection.
func (c *Cache) Peek(root string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[root]
	return entry, ok
}

// TTL reports the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
