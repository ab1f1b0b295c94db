package cache

import (
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned by typed lookups when the key is missing or expired.
	ErrNotFound = errors.New("cache: key not found")
	// ErrTypeMismatch is returned by typed lookups when the stored value has another type.
	ErrTypeMismatch = errors.New("cache: stored value has unexpected type")
)

type entry struct {
	value      any
	insertedAt time.Time
	ttl        time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) > e.ttl
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Total     int    `json:"total"`
	Active    int    `json:"active"`
	Expired   int    `json:"expired"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMaxEntries bounds the number of stored entries. Zero or negative means unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

// Cache is a concurrency-safe in-memory key/value store with per-entry TTL.
// Every operation runs under a single lock; producers passed to GetOrCompute run
// outside it.
type Cache struct {
	mu sync.Mutex

	data       map[string]entry
	maxEntries int
	now        func() time.Time

	hits, misses, evictions uint64
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		data: make(map[string]entry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores value under key for ttl.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && c.maxEntries > 0 && len(c.data) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.data[key] = entry{value: value, insertedAt: c.now(), ttl: ttl}
}

// Get returns the value for key if it has not expired. An expired entry is deleted.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.data, key)
		c.evictions++
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// GetOrCompute returns the cached value for key, or calls produce and stores its result
// for ttl. A producer error is returned as is and nothing is stored. Concurrent callers
// missing the same key may each run produce; the last one to finish wins.
func (c *Cache) GetOrCompute(key string, ttl time.Duration, produce func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := produce()
	if err != nil {
		return nil, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// InvalidateContaining removes every key containing substr and returns how many were removed.
func (c *Cache) InvalidateContaining(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.data {
		if strings.Contains(k, substr) {
			delete(c.data, k)
			n++
		}
	}
	return n
}

// Cleanup deletes every expired entry and returns how many were removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for k, e := range c.data {
		if e.expired(now) {
			delete(c.data, k)
			n++
		}
	}
	c.evictions += uint64(n)
	return n
}

// Stats reports entry counts and lifetime counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	s := Stats{
		Total:     len(c.data),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	for _, e := range c.data {
		if e.expired(now) {
			s.Expired++
		} else {
			s.Active++
		}
	}
	return s
}

func (c *Cache) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for k, e := range c.data {
		if !found || e.insertedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.insertedAt, true
		}
	}
	if found {
		delete(c.data, oldestKey)
		c.evictions++
	}
}

// GetAs is a typed Get.
func GetAs[T any](c *Cache, key string) (T, error) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, ErrNotFound
	}
	t, ok := v.(T)
	if !ok {
		return zero, ErrTypeMismatch
	}
	return t, nil
}

// GetOrComputeAs is a typed GetOrCompute. A stored value of another type is treated as a miss
// and overwritten.
func GetOrComputeAs[T any](c *Cache, key string, ttl time.Duration, produce func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	t, err := produce()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, t, ttl)
	return t, nil
}
