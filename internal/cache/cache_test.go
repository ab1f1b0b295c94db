package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestGetHonoursTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("k", map[string]int{"a": 1}, time.Second)

	clock.Advance(500 * time.Millisecond)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, map[string]int{"a": 1}, v)

	clock.Advance(700 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 0, stats.Total)
}

func TestGetAtExactTTLIsHit(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("k", 1, time.Second)
	clock.Advance(time.Second)

	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestGetOrComputeStoresOnlySuccess(t *testing.T) {
	c := New()
	calls := 0

	_, err := c.GetOrCompute("k", time.Minute, func() (any, error) {
		calls++
		return nil, errors.New("upstream down")
	})
	require.Error(t, err)

	_, ok := c.Get("k")
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("k", time.Minute, func() (any, error) {
			calls++
			return "value", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	}
	assert.Equal(t, 2, calls)
}

func TestInvalidateContaining(t *testing.T) {
	c := New()
	c.Set("weather:1:2", 1, time.Minute)
	c.Set("weather:3:4", 2, time.Minute)
	c.Set("market:soy", 3, time.Minute)

	n := c.InvalidateContaining("weather")
	assert.Equal(t, 2, n)

	_, ok := c.Get("market:soy")
	assert.True(t, ok)
	_, ok = c.Get("weather:1:2")
	assert.False(t, ok)
}

func TestCleanupAndStats(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)
	clock.Advance(2 * time.Second)

	stats := c.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Expired)

	assert.Equal(t, 1, c.Cleanup())
	stats = c.Stats()
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 0, stats.Expired)
}

func TestMaxEntriesEvictsOldest(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithMaxEntries(2))

	c.Set("a", 1, time.Hour)
	clock.Advance(time.Millisecond)
	c.Set("b", 2, time.Hour)
	clock.Advance(time.Millisecond)
	c.Set("c", 3, time.Hour)

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Stats().Total)

	c.Set("c", 4, time.Hour)
	assert.Equal(t, 2, c.Stats().Total)
}

func TestDelete(t *testing.T) {
	c := New()
	c.Set("k", 1, time.Minute)
	c.Delete("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTypedHelpers(t *testing.T) {
	c := New()
	c.Set("n", 42, time.Minute)

	n, err := GetAs[int](c, "n")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = GetAs[string](c, "n")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = GetAs[int](c, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	s, err := GetOrComputeAs(c, "s", time.Minute, func() (string, error) { return "x", nil })
	require.NoError(t, err)
	assert.Equal(t, "x", s)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(WithMaxEntries(50))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := string(rune('a' + (i+j)%26))
				c.Set(key, j, time.Minute)
				c.Get(key)
				_, _ = c.GetOrCompute(key+"x", time.Minute, func() (any, error) { return j, nil })
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Stats().Total, 50)
}
