package data

import (
	"fmt"
	"os"
	"sync"
	"time"
)

type cacheEntry struct {
	panel     *Panel
	modTime   time.Time
	expiresAt time.Time
}

// PanelCache keeps parsed panels in memory so repeated runs against the same
// file skip the CSV parse. An entry is reloaded when it expires or the file's
// modification time changes.
type PanelCache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewPanelCache(ttl time.Duration) *PanelCache {
	return &PanelCache{
		store: make(map[string]*cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns the cached panel for path if it is fresh.
func (c *PanelCache) Get(path string) (*Panel, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.store[path]
	if !ok || c.now().After(entry.expiresAt) || !entry.modTime.Equal(info.ModTime()) {
		return nil, false
	}
	return entry.panel, true
}

// Load returns the cached panel or parses the file and caches it.
func (c *PanelCache) Load(path string) (*Panel, error) {
	if p, ok := c.Get(path); ok {
		return p, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat panel: %w", err)
	}
	p, err := ReadPanelFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[path] = &cacheEntry{
		panel:     p,
		modTime:   info.ModTime(),
		expiresAt: c.now().Add(c.ttl),
	}
	return p, nil
}

// Prune removes expired entries.
func (c *PanelCache) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, key)
		}
	}
}

// Len is the number of cached entries.
func (c *PanelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
