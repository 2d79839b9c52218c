package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	answer  string
	expires time.Time
}

// MemoryCache is a process-local answer cache. A zero ttl means entries never expire.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates an in-memory answer cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, question string) (string, bool, error) {
	key := questionKey(question)
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if c.expired(e) {
		c.mu.Lock()
		// a Set may have refreshed the entry since the read lock was released
		if cur, ok := c.entries[key]; ok && c.expired(cur) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false, nil
	}
	return e.answer, true, nil
}

func (c *MemoryCache) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && c.now().After(e.expires)
}

func (c *MemoryCache) Set(ctx context.Context, question, answer string) error {
	e := memoryEntry{answer: answer}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[questionKey(question)] = e
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Purge(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// Len reports the number of entries. Expired entries count until a Get drops them.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
