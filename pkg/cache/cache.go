package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// CacheItem represents a cached item with expiration
type CacheItem struct {
	Value     interface{}
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (item *CacheItem) expiredAt(now time.Time) bool {
	return !now.Before(item.ExpiresAt)
}

// Cache is a thread-safe in-memory cache with TTL support
type Cache struct {
	items           map[string]*CacheItem
	mu              sync.RWMutex
	clock           clockwork.Clock
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewCache creates a new cache with default TTL and starts the sweeper.
func NewCache(defaultTTL time.Duration, clock clockwork.Clock) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := defaultTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	c := &Cache{
		items:           make(map[string]*CacheItem),
		clock:           clock,
		defaultTTL:      defaultTTL,
		cleanupInterval: interval,
		stopCleanup:     make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// Get retrieves a live value from cache
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || item.expiredAt(c.clock.Now()) {
		return nil, false
	}
	return item.Value, true
}

func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &CacheItem{
		Value:     value,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Invalidate drops every key with the given prefix. An empty prefix only
// drops expired entries.
func (c *Cache) Invalidate(prefix string) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, item := range c.items {
		if prefix == "" {
			if item.expiredAt(now) {
				delete(c.items, key)
			}
			continue
		}
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

func (c *Cache) cleanup() {
	ticker := c.clock.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			c.Invalidate("")
		case <-c.stopCleanup:
			return
		}
	}
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// OnceCache runs a loader at most once per key while its result is live.
// Concurrent callers for the same key wait for the first one; failed loads
// are not cached.
type OnceCache struct {
	cache *Cache

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewOnceCache(defaultTTL time.Duration, clock clockwork.Clock) *OnceCache {
	return &OnceCache{
		cache: NewCache(defaultTTL, clock),
		locks: make(map[string]*keyLock),
	}
}

// GetOrSet returns the cached value for key or stores the loader's result.
// hit reports whether the value came from cache.
func (c *OnceCache) GetOrSet(ctx context.Context, key string, loader func(context.Context) (interface{}, error), ttl time.Duration) (value interface{}, hit bool, err error) {
	if value, found := c.cache.Get(key); found {
		return value, true, nil
	}

	lock := c.acquire(key)
	defer c.release(key, lock)

	// the previous holder may have filled it
	if value, found := c.cache.Get(key); found {
		return value, true, nil
	}

	value, err = loader(ctx)
	if err != nil {
		return nil, false, err
	}
	if ttl > 0 {
		c.cache.SetWithTTL(key, value, ttl)
	} else {
		c.cache.Set(key, value)
	}
	return value, false, nil
}

func (c *OnceCache) acquire(key string) *keyLock {
	c.mu.Lock()
	lock, ok := c.locks[key]
	if !ok {
		lock = &keyLock{}
		c.locks[key] = lock
	}
	lock.refs++
	c.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (c *OnceCache) release(key string, lock *keyLock) {
	lock.mu.Unlock()

	c.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(c.locks, key)
	}
	c.mu.Unlock()
}

func (c *OnceCache) Invalidate(prefix string) {
	c.cache.Invalidate(prefix)
}

func (c *OnceCache) Stop() {
	c.cache.Stop()
}
