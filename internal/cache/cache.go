// Package cache implements a bounded in-memory LRU cache with per-entry
// TTL. Three structures back it: a seeded hash index for O(1) lookup, an
// intrusive recency list for O(1) LRU ordering, and an arena that owns
// the entries both of them reference by slot, never by pointer. All
// public operations run under one engine-wide mutex; Get updates recency
// order, so there is no read-only fast path.
package cache

import (
	"sync"
	"time"

	apperrors "cachekit/pkg/errors"
	"cachekit/pkg/logger"
)

// NoExpiration marks an entry that should never expire, overriding the
// configured default TTL.
const NoExpiration time.Duration = -1

type Config struct {
	// Capacity is the maximum number of live entries. 0 disables the
	// cache: every Put becomes a no-op and every Get misses.
	Capacity int

	// DefaultTTL applies to entries stored with Put. 0 means such
	// entries never expire.
	DefaultTTL time.Duration

	// HashSeed seeds the key hash. 0 draws a random seed, which is the
	// safe choice whenever keys come from untrusted input. A fixed
	// seed makes table layout reproducible for tests and benchmarks.
	HashSeed uint64

	// CleanupInterval enables a background sweep of expired entries at
	// the given period. <= 0 leaves reclamation to lazy expiration and
	// explicit Cleanup calls.
	CleanupInterval time.Duration
}

// Cache is a thread-safe LRU+TTL cache. Use New; the zero value is not
// valid.
type Cache struct {
	mu sync.Mutex

	capacity   int
	defaultTTL time.Duration

	store *arena
	lru   *recencyList
	idx   *index

	stats Stats

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New builds a cache from cfg. The only rejected configuration is a
// negative capacity.
func New(cfg Config) (*Cache, error) {
	if cfg.Capacity < 0 {
		return nil, apperrors.ErrInvalidCapacity
	}

	store := newArena(cfg.Capacity)
	c := &Cache{
		capacity:   cfg.Capacity,
		defaultTTL: cfg.DefaultTTL,
		store:      store,
		lru:        newRecencyList(store),
		idx:        newIndex(cfg.HashSeed),
		stopCh:     make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go c.janitor(cfg.CleanupInterval)
	}
	return c, nil
}

// Get returns the live value stored for key. An entry whose TTL has
// passed is removed on the spot and reported as a miss; a hit moves the
// entry to most-recently-used.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.idx.lookup(key)
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	e := c.store.at(h)
	if e.expired(time.Now().UnixNano()) {
		c.deleteLocked(key, h)
		c.stats.Misses++
		c.stats.Expirations++
		return nil, false
	}

	c.lru.moveToFront(h)
	c.stats.Hits++
	return e.value, true
}

// Put stores value under key with the configured default TTL (no
// expiration if none was configured).
func (c *Cache) Put(key string, value interface{}) {
	var expiresAt int64
	if c.defaultTTL > 0 {
		expiresAt = time.Now().Add(c.defaultTTL).UnixNano()
	}
	c.put(key, value, expiresAt)
}

// PutWithTTL stores value under key with an explicit TTL, ignoring the
// configured default. NoExpiration means the entry never expires. A
// zero or negative ttl produces an entry that is already expired and
// therefore never observable through Get.
//
// Replacing an existing key keeps the entry count unchanged and moves
// the entry to most-recently-used. A new key at capacity evicts the
// least recently used entry first.
func (c *Cache) PutWithTTL(key string, value interface{}, ttl time.Duration) {
	var expiresAt int64
	if ttl != NoExpiration {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}
	c.put(key, value, expiresAt)
}

func (c *Cache) put(key string, value interface{}, expiresAt int64) {
	if c.capacity == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.idx.lookup(key); ok {
		e := c.store.at(h)
		e.value = value
		e.expiresAt = expiresAt
		c.lru.moveToFront(h)
		return
	}

	if c.store.len() >= c.capacity {
		c.evictLocked()
	}

	h := c.store.alloc()
	e := c.store.at(h)
	e.key = key
	e.value = value
	e.expiresAt = expiresAt
	c.lru.pushFront(h)
	c.idx.insert(key, h)
}

// Remove deletes key and reports whether it was present. An expired
// entry the sweeps have not reached yet still counts as present, so a
// removal request always reclaims the slot.
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.idx.lookup(key)
	if !ok {
		return false
	}
	c.deleteLocked(key, h)
	return true
}

// Cleanup scans every entry and removes the expired ones. It exists
// because lazy expiration never reclaims keys that are not looked up
// again. Returns the number of entries removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	removed := 0
	for h := c.lru.back(); h != nilHandle; {
		e := c.store.at(h)
		next := e.prev // toward the front
		if e.expired(now) {
			c.deleteLocked(e.key, h)
			removed++
		}
		h = next
	}

	if removed > 0 {
		c.stats.Expirations += uint64(removed)
		logger.Debug("cleanup removed expired entries", "removed", removed)
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not
// yet swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.len()
}

// Keys returns all keys ordered from most to least recently used.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, c.store.len())
	for h := c.lru.front(); h != nilHandle; h = c.store.at(h).next {
		out = append(out, c.store.at(h).key)
	}
	return out
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close stops the background janitor. Safe to call more than once; the
// cache itself remains usable afterwards.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *Cache) evictLocked() {
	h := c.lru.back()
	if h == nilHandle {
		return
	}
	e := c.store.at(h)
	logger.Debug("evicting least recently used entry", "key", e.key)
	c.deleteLocked(e.key, h)
	c.stats.Evictions++
}

// deleteLocked removes the entry from all three structures.
func (c *Cache) deleteLocked(key string, h handle) {
	c.idx.remove(key)
	c.lru.remove(h)
	c.store.release(h)
}
