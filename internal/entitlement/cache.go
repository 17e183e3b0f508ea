package entitlement

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheEntry holds a cached value, the timestamp it was stored and the TTL
// it was stored with.
type cacheEntry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

// TTLCache is an LRU-bounded keyed cache with passive TTL expiry: staleness
// is checked at lookup time and expired entries are evicted on read. The
// underlying LRU synchronizes per operation, so concurrent lookups, stores
// and clears never block the whole cache. Concurrent repopulation of the
// same key is tolerated; last write wins.
type TTLCache[V any] struct {
	lru *lru.Cache[string, cacheEntry[V]]
	ttl time.Duration
}

func NewTTLCache[V any](size int, ttl time.Duration) (*TTLCache[V], error) {
	inner, err := lru.New[string, cacheEntry[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache[V]{lru: inner, ttl: ttl}, nil
}

// Lookup returns the cached value and whether it was a fresh hit. An entry
// older than its TTL is removed and reported as a miss.
func (c *TTLCache[V]) Lookup(key string) (V, bool) {
	entry, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if time.Since(entry.storedAt) >= entry.ttl {
		c.lru.Remove(key)
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Store caches value under key with the cache's configured TTL.
func (c *TTLCache[V]) Store(key string, value V) {
	c.StoreTTL(key, value, c.ttl)
}

// StoreTTL caches value with an explicit TTL, overriding the default.
func (c *TTLCache[V]) StoreTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.lru.Add(key, cacheEntry[V]{value: value, storedAt: time.Now(), ttl: ttl})
}

// Clear removes a single key. Clearing a key that was never inserted is a
// no-op.
func (c *TTLCache[V]) Clear(key string) {
	c.lru.Remove(key)
}

// ClearPrefix removes every key with the given prefix and returns how many
// entries were dropped. Used to invalidate all of a user's usage counters.
func (c *TTLCache[V]) ClearPrefix(prefix string) int {
	removed := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			if c.lru.Remove(key) {
				removed++
			}
		}
	}
	return removed
}

func (c *TTLCache[V]) ClearAll() {
	c.lru.Purge()
}

func (c *TTLCache[V]) Len() int {
	return c.lru.Len()
}
