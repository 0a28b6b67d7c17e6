package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process TTL cache: mutex-guarded map plus a janitor
// goroutine sweeping expired entries. TTL is the only eviction policy;
// there is no capacity bound.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	stop  chan struct{}
	once  sync.Once
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates an in-memory cache and starts its janitor.
func NewMemory() *Memory {
	c := &Memory{
		items: make(map[string]memoryItem),
		stop:  make(chan struct{}),
	}
	go c.cleanupExpired()
	return c
}

// Get retrieves a value; expired entries read as absent.
func (c *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || time.Now().After(item.expiresAt) {
		return nil, false, nil
	}
	return item.value, true, nil
}

// Set stores a value with a TTL, overwriting any previous entry.
func (c *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = memoryItem{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Exists reports whether key holds an unexpired entry.
func (c *Memory) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, _ := c.Get(ctx, key)
	return ok, nil
}

// Delete removes the given keys.
func (c *Memory) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.items, key)
	}
	return nil
}

// Close stops the janitor goroutine.
func (c *Memory) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

// cleanupExpired periodically removes expired items so the map does
// not grow without bound between reads.
func (c *Memory) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
