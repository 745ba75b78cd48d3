package cache

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestCache_Basic(t *testing.T) {
	c := New[string, string](3)

	c.Set("MIM:190685", "Tuberous Sclerosis")
	c.Set("MIM:143100", "Huntington Disease")

	if v, ok := c.Get("MIM:190685"); !ok || v != "Tuberous Sclerosis" {
		t.Errorf("Get(MIM:190685) = %q, %v; want Tuberous Sclerosis, true", v, ok)
	}
	if _, ok := c.Get("MIM:000000"); ok {
		t.Error("Get should return false for missing key")
	}
}

func TestCache_Eviction(t *testing.T) {
	c := New[string, int](2)

	c.Set("a", 1)
	c.Set("b", 2)

	// Access 'a' to make it recently used
	c.Get("a")

	// Add 'c', should evict 'b' (least recently used)
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("'b' should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) = %d, %v; want 3, true", v, ok)
	}
	if s := c.Stats(); s.Evicts != 1 {
		t.Errorf("Evicts = %d; want 1", s.Evicts)
	}
}

func TestCache_Update(t *testing.T) {
	c := New[string, int](2)

	c.Set("a", 1)
	c.Set("a", 10)

	if v, ok := c.Get("a"); !ok || v != 10 {
		t.Errorf("Get(a) = %d, %v; want 10, true", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestCache_Delete(t *testing.T) {
	c := New[string, int](3)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	c.Delete("missing")

	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) should return false after delete")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestCache_TTL(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](10, WithTTL(time.Minute), WithClock(clock.Now))

	c.Set("a", 1)
	clock.Advance(30 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry should still be live before TTL")
	}

	clock.Advance(30 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry should expire once TTL elapses")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed on Get, Len() = %d", c.Len())
	}

	s := c.Stats()
	if s.Expires != 1 {
		t.Errorf("Expires = %d; want 1", s.Expires)
	}
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Hits/Misses = %d/%d; want 1/1", s.Hits, s.Misses)
	}
}

func TestCache_SetRefreshesTTL(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](10, WithTTL(time.Minute), WithClock(clock.Now))

	c.Set("a", 1)
	clock.Advance(50 * time.Second)
	c.Set("a", 2)
	clock.Advance(50 * time.Second)

	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %d, %v; want 2, true", v, ok)
	}
}

func TestCache_NoTTL(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](10, WithClock(clock.Now))

	c.Set("a", 1)
	clock.Advance(24 * time.Hour)
	if _, ok := c.Get("a"); !ok {
		t.Error("entries without TTL should never expire")
	}
}

func TestCache_Cleanup(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](10, WithTTL(time.Minute), WithClock(clock.Now))

	c.Set("a", 1)
	c.Set("b", 2)
	clock.Advance(2 * time.Minute)
	c.Set("c", 3)

	if removed := c.Cleanup(); removed != 2 {
		t.Errorf("Cleanup() = %d; want 2", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[string, int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear; want 0", c.Len())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("cache should be usable after Clear")
	}
}

func TestCache_DefaultCapacity(t *testing.T) {
	c := New[string, int](0)
	if s := c.Stats(); s.Capacity != DefaultCapacity {
		t.Errorf("Capacity = %d; want %d", s.Capacity, DefaultCapacity)
	}
}

func TestCache_HitRate(t *testing.T) {
	c := New[string, int](3)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.HitRate != 0.75 {
		t.Errorf("HitRate = %v; want 0.75", s.HitRate)
	}
	if s.Sets != 1 {
		t.Errorf("Sets = %d; want 1", s.Sets)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int, int](100, WithTTL(time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := base*100 + j
				c.Set(key, key)
				c.Get(key)
				c.Get(key - 1)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d; exceeds capacity 100", c.Len())
	}
}
