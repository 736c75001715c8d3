// Package cache provides a small generic cache for GPU resource reuse.
//
// The coordinator keys dataset textures by dataset identity and transfer
// function textures by value; both caches hold a handful of entries and evict
// the least recently touched ones, releasing the evicted GPU resource through
// an eviction callback.
package cache

import "sync"

// Cache is a generic thread-safe cache with a soft entry limit.
// When the cache exceeds the limit, least recently used entries are evicted
// and passed to the OnEvict callback so GPU-side resources can be released.
//
// Cache is safe for concurrent use and must not be copied after creation.
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*entry[V]
	softLimit int
	tick      int64 // monotonic access counter

	// onEvict, when set, is called with each evicted value (outside eviction
	// order guarantees, inside the cache lock).
	onEvict func(V)
}

// entry holds a cached value with its access time.
type entry[V any] struct {
	value V
	atime int64
}

// New creates a cache with the given soft limit.
// A softLimit of 0 means unlimited.
func New[K comparable, V any](softLimit int) *Cache[K, V] {
	return &Cache[K, V]{
		entries:   make(map[K]*entry[V]),
		softLimit: softLimit,
	}
}

// SetOnEvict registers a callback invoked with every value removed by
// eviction, Delete or Clear. Used to destroy GPU textures on eviction.
func (c *Cache[K, V]) SetOnEvict(fn func(V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get retrieves a value. Returns (value, true) if found.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.tick++
	e.atime = c.tick
	return e.value, true
}

// Set stores a value, evicting the oldest entries past the soft limit.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok && c.onEvict != nil {
		c.onEvict(old.value)
	}
	c.tick++
	c.entries[key] = &entry[V]{value: value, atime: c.tick}
	c.evict()
}

// GetOrCreate returns the cached value for key, or stores and returns the
// result of create. create runs under the cache lock to prevent duplicate
// resource creation; it must not call back into the cache.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.tick++
		e.atime = c.tick
		return e.value, nil
	}

	value, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.tick++
	c.entries[key] = &entry[V]{value: value, atime: c.tick}
	c.evict()
	return value, nil
}

// Delete removes an entry, reporting whether it existed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.onEvict != nil {
		c.onEvict(e.value)
	}
	delete(c.entries, key)
	return true
}

// Clear removes every entry, running the eviction callback for each.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for _, e := range c.entries {
			c.onEvict(e.value)
		}
	}
	c.entries = make(map[K]*entry[V])
	c.tick = 0
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evict removes least recently used entries until at the soft limit.
// Caller must hold c.mu.
func (c *Cache[K, V]) evict() {
	if c.softLimit <= 0 {
		return
	}
	for len(c.entries) > c.softLimit {
		var oldestKey K
		var oldest int64 = -1
		for k, e := range c.entries {
			if oldest < 0 || e.atime < oldest {
				oldest = e.atime
				oldestKey = k
			}
		}
		if c.onEvict != nil {
			c.onEvict(c.entries[oldestKey].value)
		}
		delete(c.entries, oldestKey)
	}
}
