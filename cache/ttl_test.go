package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newClockedCache(ttl time.Duration) (*TTLCache[int], *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewTTLCache[int](ttl).WithClock(clock.Now), clock
}

func TestTTLCache_GetSet(t *testing.T) {
	c, clock := newClockedCache(time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Advance(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry must expire exactly at TTL")
}

func TestTTLCache_UpdateKeepsExpiry(t *testing.T) {
	c, clock := newClockedCache(time.Minute)

	inc := func(cur int, _ bool) int { return cur + 1 }
	assert.Equal(t, 1, c.Update("k", inc))
	clock.Advance(30 * time.Second)
	assert.Equal(t, 2, c.Update("k", inc))

	clock.Advance(30 * time.Second)
	// window elapsed, counter starts over
	assert.Equal(t, 1, c.Update("k", inc))
}

func TestTTLCache_InvalidateAndReset(t *testing.T) {
	c, _ := newClockedCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_Prune(t *testing.T) {
	c, clock := newClockedCache(time.Minute)
	c.Set("old", 1)
	clock.Advance(45 * time.Second)
	c.Set("new", 2)
	clock.Advance(20 * time.Second)

	assert.Equal(t, 1, c.Prune())
	_, ok := c.Get("new")
	assert.True(t, ok)
}

func TestTTLCache_JanitorDropsIdleKeys(t *testing.T) {
	c, clock := newClockedCache(time.Minute)
	for _, k := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		c.Update(k, func(cur int, _ bool) int { return cur + 1 })
	}
	stop := c.StartJanitor(5 * time.Millisecond)
	defer stop()

	// nothing has expired yet
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, c.Len())

	clock.Advance(2 * time.Minute)
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)

	stop()
	stop()
	c.Set("late", 1)
	clock.Advance(2 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, c.Len())
}

func TestTTLCache_ConcurrentUpdate(t *testing.T) {
	c := NewTTLCache[int](time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Update("k", func(cur int, _ bool) int { return cur + 1 })
		}()
	}
	wg.Wait()
	v, _ := c.Get("k")
	assert.Equal(t, 50, v)
}
