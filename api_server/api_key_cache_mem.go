package main

import (
	"context"
	"sync"
	"time"
)

// memAPIKeyCache 进程内 TTL 缓存（跨进程不共享），CACHE_BACKEND=mem 时使用
type memAPIKeyCache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]cacheItem
}

type cacheItem struct {
	row    APIKeyRow
	expire time.Time
}

func newMemAPIKeyCache(ttl time.Duration) *memAPIKeyCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &memAPIKeyCache{ttl: ttl, now: time.Now, data: map[string]cacheItem{}}
}

func (c *memAPIKeyCache) Close() error { return nil }

func (c *memAPIKeyCache) Get(_ context.Context, key string) (*APIKeyRow, bool, error) {
	c.mu.RLock()
	it, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().After(it.expire) {
		// lazy delete
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	row := it.row
	return &row, true, nil
}

func (c *memAPIKeyCache) Set(_ context.Context, row *APIKeyRow) error {
	if row == nil {
		return nil
	}
	c.mu.Lock()
	c.data[row.Key] = cacheItem{row: *row, expire: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}
