package calculator

import (
	"sync"

	"BandSentinel/internal/model"
)

// BandCache remembers the last BandSet per symbol, keyed by the window
// version it was computed from.
type BandCache struct {
	mu      sync.RWMutex
	entries map[string]model.BandSet
}

func NewBandCache() *BandCache {
	return &BandCache{entries: make(map[string]model.BandSet)}
}

// Get returns the cached bands only if they were computed at version.
func (c *BandCache) Get(symbol string, version uint64) (*model.BandSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.entries[symbol]
	if !ok || b.Version != version {
		return nil, false
	}
	return &b, true
}

// Put stores bands for symbol at version, replacing any older entry.
func (c *BandCache) Put(symbol string, version uint64, bands model.BandSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bands.Version = version
	c.entries[symbol] = bands
}
