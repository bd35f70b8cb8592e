package cache

import (
	"sync"
	"sync/atomic"
)

// EvictFunc is called with every value that leaves the cache: on capacity
// eviction, on replacement by Set, on Delete and on Clear. It runs after the
// cache lock is released, so it may call back into the cache.
type EvictFunc[K comparable, V any] func(key K, value V)

// LRU is a thread-safe cache with a hard capacity and least-recently-used
// eviction.
//
// LRU must not be copied after creation (has mutex).
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*entry[K, V]
	order    recency[K, V]
	capacity int
	onEvict  EvictFunc[K, V]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a cache holding at most capacity entries.
// A capacity of 0 or less means unlimited. onEvict may be nil.
func New[K comparable, V any](capacity int, onEvict EvictFunc[K, V]) *LRU[K, V] {
	return &LRU[K, V]{
		entries:  make(map[K]*entry[K, V]),
		capacity: capacity,
		onEvict:  onEvict,
	}
}

// Get returns the value stored under key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	var v V
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.order.moveToFront(e)
		v = e.value
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return v, false
	}
	c.hits.Add(1)
	return v, true
}

// Peek returns the value stored under key without touching recency or stats.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Set stores value under key. A previous value for the same key and, when
// the cache is full, the least recently used entry are handed to the
// eviction callback.
func (c *LRU[K, V]) Set(key K, value V) {
	var dropped []*entry[K, V]

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		dropped = append(dropped, &entry[K, V]{key: key, value: e.value})
		e.value = value
		c.order.moveToFront(e)
	} else {
		e := &entry[K, V]{key: key, value: value}
		c.entries[key] = e
		c.order.pushFront(e)
		for c.capacity > 0 && c.order.len > c.capacity {
			old := c.order.back()
			c.order.unlink(old)
			delete(c.entries, old.key)
			dropped = append(dropped, old)
			c.evictions.Add(1)
		}
	}
	c.mu.Unlock()

	c.notify(dropped)
}

// GetOrCreate returns the cached value for key or stores the result of create.
// create runs under the cache lock, so concurrent callers never duplicate it.
func (c *LRU[K, V]) GetOrCreate(key K, create func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}

	var dropped []*entry[K, V]

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.order.moveToFront(e)
		c.mu.Unlock()
		return e.value
	}
	value := create()
	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.order.pushFront(e)
	for c.capacity > 0 && c.order.len > c.capacity {
		old := c.order.back()
		c.order.unlink(old)
		delete(c.entries, old.key)
		dropped = append(dropped, old)
		c.evictions.Add(1)
	}
	c.mu.Unlock()

	c.notify(dropped)
	return value
}

// Delete removes key from the cache. It reports whether the key was present.
func (c *LRU[K, V]) Delete(key K) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.order.unlink(e)
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if ok {
		c.notify([]*entry[K, V]{e})
	}
	return ok
}

// Clear removes every entry and resets the statistics.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	dropped := make([]*entry[K, V], 0, len(c.entries))
	for e := c.order.head; e != nil; e = e.next {
		dropped = append(dropped, e)
	}
	c.entries = make(map[K]*entry[K, V])
	c.order.reset()
	c.mu.Unlock()

	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
	c.notify(dropped)
}

// Len returns the number of entries in the cache.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Capacity returns the configured capacity.
func (c *LRU[K, V]) Capacity() int {
	return c.capacity
}

// Stats returns a snapshot of the cache counters.
func (c *LRU[K, V]) Stats() Stats {
	s := Stats{
		Len:       c.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *LRU[K, V]) notify(dropped []*entry[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range dropped {
		c.onEvict(e.key, e.value)
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the maximum number of entries, 0 for unlimited.
	Capacity int
	// Hits is the number of successful lookups.
	Hits uint64
	// Misses is the number of failed lookups.
	Misses uint64
	// HitRate is the hit rate 0.0 to 1.0.
	HitRate float64
	// Evictions is the number of entries dropped for capacity.
	Evictions uint64
}
