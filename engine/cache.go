package engine

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/voroforge/foam"
)

// Entry bundles the structures derived from one topology snapshot: the foam
// itself (carrying the edge<->face maps) and the built half-edge graph.
type Entry struct {
	Foam  *foam.Foam
	Graph *foam.Graph
}

// Cache holds built adjacency structures keyed by topology fingerprint.
// Insertion order doubles as eviction order: when the cache exceeds its
// capacity the oldest fingerprint goes first. Retriangulation invalidates
// the superseded fingerprint explicitly.
type Cache struct {
	m   *linkedhashmap.Map
	max int
}

// NewCache returns a cache bounded to capacity entries (minimum 1).
func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{m: linkedhashmap.New(), max: capacity}
}

// Get returns the entry for fp, if present.
func (c *Cache) Get(fp uint64) (*Entry, bool) {
	v, ok := c.m.Get(fp)
	if !ok {
		return nil, false
	}
	return v.(*Entry), true
}

// Put stores the entry for fp, evicting the oldest entry beyond capacity.
func (c *Cache) Put(fp uint64, e *Entry) {
	c.m.Remove(fp) // refresh insertion order on re-put
	c.m.Put(fp, e)
	for c.m.Size() > c.max {
		it := c.m.Iterator()
		if !it.First() {
			break
		}
		c.m.Remove(it.Key())
	}
}

// Invalidate drops the entry for fp.
func (c *Cache) Invalidate(fp uint64) { c.m.Remove(fp) }

// Len is the number of cached fingerprints.
func (c *Cache) Len() int { return c.m.Size() }
