package dmi

import (
	"github.com/slahiruk/vcml/mem/tlm"
)

// Stats counts the lookups of a cache.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Inserts       uint64
	Invalidations uint64
}

// A Cache holds the windows an initiator has been granted. It belongs to
// exactly one initiator and is not safe for concurrent use.
type Cache struct {
	windows []Window
	stats   Stats
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{}
}

// Lookup finds a window through which length bytes at addr can be accessed.
func (c *Cache) Lookup(addr, length uint64, forWrite bool) (Window, bool) {
	for _, w := range c.windows {
		if w.Covers(addr, length) && w.Access.Allows(forWrite) {
			c.stats.Hits++
			return w, true
		}
	}

	c.stats.Misses++

	return Window{}, false
}

// Insert stores a window. Overlapping windows of the same owner, and
// overlapping windows with a conflicting permission, are dropped.
func (c *Cache) Insert(w Window) {
	if w.Access == AccessNone {
		return
	}

	kept := c.windows[:0]
	for _, old := range c.windows {
		if old.Range.Overlaps(w.Range) &&
			(old.Owner == w.Owner || old.Access.ConflictsWith(w.Access)) {
			continue
		}

		kept = append(kept, old)
	}

	c.windows = append(kept, w)
	c.stats.Inserts++
}

// Invalidate drops every window that overlaps r.
func (c *Cache) Invalidate(r tlm.Range) {
	kept := c.windows[:0]
	for _, w := range c.windows {
		if w.Range.Overlaps(r) {
			c.stats.Invalidations++
			continue
		}

		kept = append(kept, w)
	}

	clear(c.windows[len(kept):])
	c.windows = kept
}

// InvalidateAll drops every window.
func (c *Cache) InvalidateAll() {
	c.stats.Invalidations += uint64(len(c.windows))
	c.windows = nil
}

// Windows returns a copy of the cached windows.
func (c *Cache) Windows() []Window {
	list := make([]Window, len(c.windows))
	copy(list, c.windows)

	return list
}

// Len returns the number of cached windows.
func (c *Cache) Len() int {
	return len(c.windows)
}

// Stats returns the lookup counters.
func (c *Cache) Stats() Stats {
	return c.stats
}
