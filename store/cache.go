package store

import "sync"

// cache is the one in-memory cache shape used by the stores. Entries have no
// expiry; every write to a key must call invalidate on it.
type cache[V any] struct {
	mu sync.Mutex
	m  map[string]V
}

func newCache[V any]() *cache[V] {
	return &cache[V]{m: make(map[string]V)}
}

func (c *cache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *cache[V]) put(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = v
}

func (c *cache[V]) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}
