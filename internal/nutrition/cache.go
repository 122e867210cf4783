package nutrition

import (
	"context"
	"log"
	"sync"

	"mealmail/internal/domain"
	"mealmail/internal/port"
)

// Cache is the process-wide nutrition cache. Entries never expire. Values are
// copied on the way in and out so callers cannot mutate a cached snapshot.
//
// When a CacheStore is attached, entries are loaded from it at startup and
// written through on every Put. The first store failure switches the cache to
// memory-only for the rest of the process; failed writes are not retried.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*domain.NutritionRecord
	store   port.CacheStore
	persist bool
}

// NewCache creates a cache. A nil store keeps everything in memory.
func NewCache(store port.CacheStore) *Cache {
	return &Cache{
		entries: make(map[string]*domain.NutritionRecord),
		store:   store,
		persist: store != nil,
	}
}

// Load reads all persisted entries into memory. A load error disables
// persistence and is returned for logging only.
func (c *Cache) Load(ctx context.Context) error {
	if !c.Persistent() {
		return nil
	}
	loaded, err := c.store.LoadAll(ctx)
	if err != nil {
		c.disable("load", err)
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range loaded {
		if v != nil {
			c.entries[k] = v.Clone()
		}
	}
	log.Printf("nutrition.Cache: loaded %d entries", len(loaded))
	return nil
}

// Get returns a copy of the entry for key.
func (c *Cache) Get(key string) (*domain.NutritionRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Put stores a copy of rec. Concurrent puts for the same key overwrite each other.
func (c *Cache) Put(ctx context.Context, key string, rec *domain.NutritionRecord) {
	if rec == nil {
		return
	}
	snapshot := rec.Clone()
	c.mu.Lock()
	c.entries[key] = snapshot
	c.mu.Unlock()

	if !c.Persistent() {
		return
	}
	if err := c.store.Put(ctx, key, snapshot); err != nil {
		c.disable("write", err)
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Persistent reports whether writes still reach the attached store.
func (c *Cache) Persistent() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.persist
}

func (c *Cache) disable(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.persist {
		return
	}
	c.persist = false
	log.Printf("nutrition.Cache: %s failed, continuing in memory only: %v", op, err)
}
