package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCachePutGetInvalidate(t *testing.T) {
	c := NewCache(4)
	e := &Entry{}
	c.Put(1, e)
	got, ok := c.Get(1)
	require.True(t, ok)
	require.Same(t, e, got)

	c.Invalidate(1)
	_, ok = c.Get(1)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestCacheEvictsOldest(t *testing.T) {
	c := NewCache(2)
	c.Put(1, &Entry{})
	c.Put(2, &Entry{})
	c.Put(3, &Entry{})
	require.Equal(t, 2, c.Len())
	_, ok := c.Get(1)
	require.False(t, ok, "oldest fingerprint must be evicted first")
	_, ok = c.Get(3)
	require.True(t, ok)
}

func TestCacheRePutRefreshesOrder(t *testing.T) {
	c := NewCache(2)
	c.Put(1, &Entry{})
	c.Put(2, &Entry{})
	c.Put(1, &Entry{}) // 1 becomes newest
	c.Put(3, &Entry{})
	_, ok := c.Get(1)
	require.True(t, ok)
	_, ok = c.Get(2)
	require.False(t, ok)
}
