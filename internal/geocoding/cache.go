package geocoding

import (
	"strings"
	"sync"
)

// Cache stores lookup results keyed by normalized locality. A stored nil means
// the locality is known not to resolve.
type Cache interface {
	Get(key string) (coords *Coordinates, ok bool)
	Store(key string, coords *Coordinates)
}

// MemoryCache is a process-lifetime Cache without eviction.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Coordinates
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*Coordinates)}
}

func (c *MemoryCache) Get(key string) (*Coordinates, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	coords, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || coords == nil {
		return nil, ok
	}
	cloned := *coords
	return &cloned, true
}

func (c *MemoryCache) Store(key string, coords *Coordinates) {
	if c == nil {
		return
	}
	var stored *Coordinates
	if coords != nil {
		cloned := *coords
		stored = &cloned
	}
	c.mu.Lock()
	c.entries[key] = stored
	c.mu.Unlock()
}

// Len returns the number of cached localities, resolved or not.
func (c *MemoryCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// NormalizeLocality is the cache key for a locality: trimmed and lower-cased.
func NormalizeLocality(locality string) string {
	return strings.ToLower(strings.TrimSpace(locality))
}
