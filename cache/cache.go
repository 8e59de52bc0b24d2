package cache

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrUnavailable names the cache-unavailable error class. Put and Get do
// not return it: Put has no error result and a mirror failure is only
// logged, and Get reports a miss as a bool.
var ErrUnavailable = errors.New("cache: unavailable")

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is an in-memory, TTL-bounded key/value store. It is the engine's
// primary hot cache; Mirror (if configured) is a best-effort durable
// shadow copy, consulted only as a startup hydration source, never on
// the read path.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	mirror  *MongoMirror
}

// New builds an empty in-memory cache, optionally backed by a Mongo mirror.
func New(mirror *MongoMirror) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		mirror:  mirror,
	}
}

// Put overwrites key's value and resets its TTL. If a Mongo mirror is
// configured, the write is mirrored best-effort: a mirror failure is
// logged by the mirror itself and never surfaces here as an error.
func (c *Cache) Put(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()

	if c.mirror != nil {
		c.mirror.MirrorPut(key, value, ttl)
	}
}

// Get returns (value, true) if key is present and unexpired; a miss is
// not an error, per the cache's contract.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Delete removes key immediately, regardless of remaining TTL.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Hydrate loads the Mongo mirror's unexpired entries into the in-memory
// map, preserving each entry's remaining TTL rather than resetting it. A
// no-op when the mirror isn't configured; called once at startup so a
// restarted engine doesn't serve cold on its first requests.
func (c *Cache) Hydrate(ctx context.Context) error {
	if c.mirror == nil || !c.mirror.Configured() {
		return nil
	}

	loaded, err := c.mirror.Hydrate(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range loaded {
		if now.After(e.ExpiresAt) {
			continue
		}
		c.entries[key] = entry{value: e.Value, expiresAt: e.ExpiresAt}
	}
	log.Printf("cache: hydrated %d entries from mirror", len(loaded))
	return nil
}

// Sweep removes all expired entries; callers may run this periodically to
// bound memory, though Get already treats expired entries as misses.
func (c *Cache) Sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
