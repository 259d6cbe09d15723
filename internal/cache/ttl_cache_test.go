package cache

import (
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestCache(ttl time.Duration, max int) (*TTLCache[string, int], *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string, int](ttl, max)
	c.now = clock.now
	return c, clock
}

func TestSetAndGet(t *testing.T) {
	c, _ := newTestCache(time.Minute, 0)

	c.Set("key1", 42)

	value, ok := c.Get("key1")
	if !ok {
		t.Fatal("Get returned ok=false for existing key")
	}
	if value != 42 {
		t.Errorf("Get returned wrong value: got %d, want 42", value)
	}

	if _, ok := c.Get("nonexistent"); ok {
		t.Error("Get returned ok=true for non-existent key")
	}
}

func TestEntriesExpireIndividually(t *testing.T) {
	c, clock := newTestCache(time.Minute, 0)

	c.Set("old", 1)
	clock.advance(40 * time.Second)
	c.Set("new", 2)
	clock.advance(30 * time.Second)

	if _, ok := c.Get("old"); ok {
		t.Error("old entry should have expired")
	}
	if v, ok := c.Get("new"); !ok || v != 2 {
		t.Errorf("Get(new) = %d, %v, want 2, true", v, ok)
	}
}

func TestSetRefreshesTTL(t *testing.T) {
	c, clock := newTestCache(time.Minute, 0)

	c.Set("k", 1)
	clock.advance(50 * time.Second)
	c.Set("k", 2)
	clock.advance(50 * time.Second)

	if v, ok := c.Get("k"); !ok || v != 2 {
		t.Errorf("Get(k) = %d, %v, want 2, true", v, ok)
	}
}

func TestEviction(t *testing.T) {
	c, clock := newTestCache(time.Minute, 2)

	c.Set("a", 1)
	clock.advance(time.Second)
	c.Set("b", 2)
	clock.advance(time.Second)
	c.Set("c", 3)

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	for _, k := range []string{"b", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}

	// overwrite of an existing key never evicts
	c.Set("b", 20)
	if c.Len() != 2 {
		t.Errorf("Len after overwrite = %d, want 2", c.Len())
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("overwrite evicted another key")
	}
}

func TestEvictionSweepsExpired(t *testing.T) {
	c, clock := newTestCache(time.Minute, 3)

	c.Set("a", 1)
	c.Set("b", 2)
	clock.advance(2 * time.Minute)
	c.Set("c", 3)
	c.Set("d", 4)

	if c.Len() != 2 {
		t.Errorf("Len = %d, want expired entries swept", c.Len())
	}
}

func TestGetOrCompute(t *testing.T) {
	c, clock := newTestCache(time.Minute, 0)
	calls := 0
	compute := func() int {
		calls++
		return calls * 10
	}

	v, hit := c.GetOrCompute("k", compute)
	if hit || v != 10 {
		t.Errorf("first GetOrCompute = %d, %v, want 10, false", v, hit)
	}
	v, hit = c.GetOrCompute("k", compute)
	if !hit || v != 10 || calls != 1 {
		t.Errorf("second GetOrCompute = %d, %v (calls %d), want cached 10", v, hit, calls)
	}

	clock.advance(time.Minute)
	if v, hit = c.GetOrCompute("k", compute); hit || v != 20 {
		t.Errorf("after expiry GetOrCompute = %d, %v, want 20, false", v, hit)
	}
}

func TestDeleteAndInvalidate(t *testing.T) {
	c, _ := newTestCache(time.Minute, 0)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}

	c.Invalidate()
	if c.Len() != 0 {
		t.Errorf("Len after Invalidate = %d, want 0", c.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int](time.Minute, 50)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(n*100+j, j)
				c.Get(n*100 + j)
				c.GetOrCompute(j, func() int { return j })
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len = %d, want at most 50", c.Len())
	}
}
