package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/nadzzz/domus/internal/message"
)

// LRU is an in-process cache with least-recently-used eviction and a TTL.
type LRU struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front is most recently used
}

type lruEntry struct {
	key       string
	value     message.Interpretation
	expiresAt time.Time
}

// NewLRU creates an LRU cache. Non-positive arguments fall back to 512
// entries and ten minutes.
func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 512
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &LRU{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns a live entry and marks it recently used.
func (c *LRU) Get(_ context.Context, key string) (message.Interpretation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return message.Interpretation{}, false
	}
	e := el.Value.(*lruEntry)
	if c.now().After(e.expiresAt) {
		c.remove(el)
		return message.Interpretation{}, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Set stores v, evicting the least recently used entry when full.
func (c *LRU) Set(_ context.Context, key string, v message.Interpretation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*lruEntry)
		e.value = v
		e.expiresAt = expires
		c.order.MoveToFront(el)
		return nil
	}

	for c.order.Len() >= c.capacity {
		c.remove(c.order.Back())
	}
	c.items[key] = c.order.PushFront(&lruEntry{key: key, value: v, expiresAt: expires})
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// CleanupExpired drops expired entries and returns how many were removed.
func (c *LRU) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*lruEntry).expiresAt) {
			c.remove(el)
			removed++
		}
		el = prev
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is done.
func (c *LRU) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = c.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.CleanupExpired()
		}
	}
}

// Close empties the cache.
func (c *LRU) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
	return nil
}

// remove must be called with mu held.
func (c *LRU) remove(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.items, el.Value.(*lruEntry).key)
}
