package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(maxSize int, ttl time.Duration) (*Cache[string, int], *time.Time) {
	c := New[string, int](maxSize, ttl)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestGetWithinTTL(t *testing.T) {
	c, now := newTestCache(10, time.Second)

	c.Set("a", 1)

	*now = now.Add(time.Second)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestGetAfterTTLPurgesEntry(t *testing.T) {
	c, now := newTestCache(10, time.Second)

	c.Set("a", 1)
	require.Equal(t, 1, c.Size())

	*now = now.Add(time.Second + time.Millisecond)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size(), "expired entry must be removed from internal storage")
}

func TestSetRefreshesInsertedAt(t *testing.T) {
	c, now := newTestCache(10, time.Second)

	c.Set("a", 1)
	*now = now.Add(900 * time.Millisecond)
	c.Set("a", 2)
	*now = now.Add(900 * time.Millisecond)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestGetDoesNotExtendTTL(t *testing.T) {
	c, now := newTestCache(10, time.Second)

	c.Set("a", 1)
	*now = now.Add(600 * time.Millisecond)
	_, ok := c.Get("a")
	require.True(t, ok)

	*now = now.Add(600 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok, "a hit refreshes eviction order, not the TTL")
}

func TestEvictsLeastRecentlyAccessed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	// Accessing a protects it from being the next victim.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently accessed and must be evicted")
	assert.True(t, c.Has("a"))
	assert.True(t, c.Has("c"))
	assert.Equal(t, 2, c.Size())
}

func TestInsertingBeyondCapacityEvictsExactlyOne(t *testing.T) {
	c, _ := newTestCache(3, time.Minute)

	for _, k := range []string{"a", "b", "c", "d"} {
		c.Set(k, 1)
	}

	assert.Equal(t, 3, c.Size())
	assert.False(t, c.Has("a"))
	assert.True(t, c.Has("b"))
	assert.True(t, c.Has("c"))
	assert.True(t, c.Has("d"))
}

func TestOverwriteAtCapacityDoesNotEvict(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	assert.Equal(t, 2, c.Size())
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.True(t, c.Has("b"))
}

func TestDeleteAndClear(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	assert.False(t, c.Has("a"))
	assert.Equal(t, 1, c.Size())

	c.Delete("missing") // no-op

	c.Clear()
	assert.Equal(t, 0, c.Size())
	assert.False(t, c.Has("b"))
}
