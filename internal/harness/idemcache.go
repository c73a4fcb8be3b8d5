package harness

import (
	"sync"
	"time"
)

type idemEntry struct {
	accepted bool
	expiry   time.Time
}

// idemCache suppresses redundant synchronize work when an algorithm retries
// the exact same assign call — e.g. after a transient rejection — within a
// short window, ported from dispatch's idemCache (internal/dispatch/
// idempotency.go).
type idemCache struct {
	mu    sync.Mutex
	byKey map[string]idemEntry
	ttl   time.Duration
}

func newIdemCache() *idemCache {
	return &idemCache{
		byKey: make(map[string]idemEntry),
		ttl:   2 * time.Second,
	}
}

func (c *idemCache) remember(key string, accepted bool) {
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[key] = idemEntry{accepted: accepted, expiry: time.Now().Add(c.ttl)}
}

func (c *idemCache) lookup(key string) (bool, bool) {
	if key == "" {
		return false, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.byKey[key]
	if !ok {
		return false, false
	}
	if time.Now().After(entry.expiry) {
		delete(c.byKey, key)
		return false, false
	}
	return entry.accepted, true
}
