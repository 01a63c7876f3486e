package sessioncache

import "sync"

// Cache is a process-wide map of live session handles. The lock covers only
// the check-and-create step: concurrent callers for the same key get one
// shared handle, and use of a returned handle is never serialized here.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
}

func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]V)}
}

// GetOrCreate returns the cached handle for key, calling factory exactly once
// per key while no handle exists. A factory error caches nothing.
func (c *Cache[K, V]) GetOrCreate(key K, factory func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.entries[key]; ok {
		return v, nil
	}
	v, err := factory()
	if err != nil {
		var zero V
		return zero, err
	}
	c.entries[key] = v
	return v, nil
}

// Delete drops the handle for key and reports whether one existed. Callers
// owning the handle are unaffected; the next GetOrCreate builds a fresh one.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
