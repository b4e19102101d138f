package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aescanero/taskorch/pkg/domain"
)

type entry struct {
	out       domain.WorkerOutput
	expiresAt time.Time
}

// ResultCache implements ports.ResultCache using an in-memory map.
// Entries expire after the configured TTL; a zero TTL keeps them forever.
type ResultCache struct {
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

// NewResultCache creates a new in-memory result cache
func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the cached output for key.
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.WorkerOutput, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if c.expired(e) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}

	out := e.out
	return &out, true, nil
}

// Set stores a copy of out under key.
func (c *ResultCache) Set(ctx context.Context, key string, out *domain.WorkerOutput) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{out: *out}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.entries[key] = e
	return nil
}

// Clear removes every entry and returns how many there were.
func (c *ResultCache) Clear(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]entry)
	return n, nil
}

// Len returns the number of live entries.
func (c *ResultCache) Len(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, e := range c.entries {
		if !c.expired(e) {
			n++
		}
	}
	return n, nil
}

func (c *ResultCache) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}
