// Package gate implements the inbound request gate for wagrab.
//
// The gate authenticates webhook verification handshakes, extracts message
// payloads, suppresses duplicate deliveries of the same inbound message, and
// classifies message text against the supported video platform allow-list.
package gate

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultDedupTTL is how long a message identifier suppresses reprocessing.
const DefaultDedupTTL = 60 * time.Second

// DedupCache suppresses reprocessing of recently seen message identifiers.
//
// Entries expire after the configured TTL and are evicted opportunistically on
// every insert; there is no background sweep. The cache is process-local and
// never persisted, so duplicate suppression is best-effort across restarts.
type DedupCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

// DedupOption configures a DedupCache.
type DedupOption func(*DedupCache)

// WithClock overrides the cache's time source. Tests use this to advance time
// deterministically instead of sleeping.
func WithClock(now func() time.Time) DedupOption {
	return func(c *DedupCache) { c.now = now }
}

// NewDedupCache creates a cache with the given TTL. A non-positive TTL falls
// back to DefaultDedupTTL.
func NewDedupCache(ttl time.Duration, opts ...DedupOption) *DedupCache {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	c := &DedupCache{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Remember records a message identifier and reports whether it should be
// processed. It returns false when the identifier was already seen within the
// TTL. The read, eviction, and write happen under a single lock so concurrent
// webhook deliveries of the same message cannot both pass the gate.
func (c *DedupCache) Remember(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.seen[messageID]; ok && now.Sub(last) < c.ttl {
		slog.Debug("DedupCache.Remember: duplicate message suppressed", "message_id", messageID, "age", now.Sub(last))
		return false
	}

	c.seen[messageID] = now
	c.evictLocked(now)
	return true
}

// Len returns the number of live entries. Intended for tests and diagnostics.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// evictLocked drops all entries older than the TTL. Caller must hold mu.
func (c *DedupCache) evictLocked(now time.Time) {
	for id, ts := range c.seen {
		if now.Sub(ts) >= c.ttl {
			delete(c.seen, id)
		}
	}
}
