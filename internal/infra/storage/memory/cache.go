package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"motomarket/internal/app/policies"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a process-local policies.Cache with lazy expiry.
type Cache struct {
	mu    sync.Mutex
	items map[string]cacheEntry
	now   func() time.Time
}

func NewCache() *Cache {
	return &Cache{items: make(map[string]cacheEntry), now: time.Now}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[key]
	if !ok {
		return nil, policies.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.items, key)
		return nil, policies.ErrCacheMiss
	}
	return append([]byte(nil), entry.value...), nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := cacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = entry
	c.mu.Unlock()
	return nil
}

func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if entry, ok := c.items[key]; ok {
		n, _ = strconv.ParseInt(string(entry.value), 10, 64)
	}
	n++
	c.items[key] = cacheEntry{value: []byte(strconv.FormatInt(n, 10))}
	return n, nil
}

var _ policies.Cache = (*Cache)(nil)
