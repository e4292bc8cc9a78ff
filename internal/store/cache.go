package store

import "sync"

// QueryCache holds derived query results (keysets, totals, ranks) keyed by the compiled
// filter and ordering. It is owned by the catalog store and cleared in full on every
// committed mutation.
//
// Readers capture Generation before querying and pass it to Put; a Put whose generation
// is older than the last Clear is dropped, so a read racing a mutation can never
// repopulate the cache with pre-mutation results.
type QueryCache struct {
	mu         sync.Mutex
	entries    map[string]any
	order      []string
	maxEntries int
	generation uint64
}

// NewQueryCache creates a cache bounded to maxEntries (oldest evicted first).
// A non-positive bound disables caching.
func NewQueryCache(maxEntries int) *QueryCache {
	return &QueryCache{
		entries:    make(map[string]any),
		maxEntries: maxEntries,
	}
}

// Generation returns the current invalidation generation.
func (c *QueryCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Get returns the cached value for key.
func (c *QueryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores v under key if no Clear happened since gen was read.
// Reports whether the value was stored.
func (c *QueryCache) Put(key string, gen uint64, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries <= 0 || gen != c.generation {
		return false
	}
	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.maxEntries {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = v
	return true
}

// Clear drops every entry and advances the generation.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
	c.order = nil
	c.generation++
}

// Len returns the number of cached entries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
