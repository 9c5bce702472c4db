package howto

import (
	"sort"
	"sync"
)

// liveCollection is the cached projection of the full how-to collection.
// It has a single writer (the store-notification handler) and is replaced
// wholesale on every snapshot, so readers always see a self-consistent set.
type liveCollection struct {
	mu    sync.RWMutex
	items []*Howto
}

// replace installs a new snapshot sorted by creation time descending.
func (c *liveCollection) replace(items []*Howto) {
	sorted := make([]*Howto, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	c.mu.Lock()
	c.items = sorted
	c.mu.Unlock()
}

// snapshot returns the current items. The slice is fresh on every call;
// the pointed-to records are shared and must not be mutated.
func (c *liveCollection) snapshot() []*Howto {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Howto, len(c.items))
	copy(out, c.items)
	return out
}
