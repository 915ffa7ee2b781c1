package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is an in-memory, per-process cache whose entries expire after a
// fixed TTL. Instances are passed explicitly to whatever needs them.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     func() time.Time
}

// NewTTLCache creates a cache with the given TTL
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests
func (c *TTLCache[V]) WithClock(now func() time.Time) *TTLCache[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// TTL returns the configured time to live
func (c *TTLCache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, found := c.entries[key]
	if !found || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Update applies fn to the live value of key (zero when absent or expired)
// and stores the result atomically. A fresh entry gets a full TTL; an existing
// one keeps its expiry.
func (c *TTLCache[V]) Update(key string, fn func(current V, found bool) V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, found := c.entries[key]
	if found && !now.Before(e.expiresAt) {
		found = false
	}
	if !found {
		var zero V
		e = entry[V]{value: zero, expiresAt: now.Add(c.ttl)}
	}
	e.value = fn(e.value, found)
	c.entries[key] = e
	return e.value
}

// ExpiresAt reports when key expires
func (c *TTLCache[V]) ExpiresAt(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, found := c.entries[key]
	if !found {
		return time.Time{}, false
	}
	return e.expiresAt, true
}

func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Reset drops every entry
func (c *TTLCache[V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Prune removes expired entries and returns how many were dropped
func (c *TTLCache[V]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartJanitor prunes expired entries every interval, defaulting to the TTL,
// until the returned stop function is called. stop returns once the janitor
// has exited.
func (c *TTLCache[V]) StartJanitor(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = c.ttl
	}
	if interval <= 0 {
		interval = time.Minute
	}
	done := make(chan struct{})
	exited := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(exited)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Prune()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}
