package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[int], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v; want 1, true", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("b", 3)
	clock.t = clock.t.Add(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if removed := c.CleanExpired(); removed != 0 {
		t.Errorf("CleanExpired() = %d, want 0 after Get dropped a", removed)
	}
	if v, ok := c.Get("b"); !ok || v != 3 {
		t.Errorf("Get(b) = %v, %v; want 3, true", v, ok)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
}

func TestLRUCache_GetOrCreate(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	calls := 0
	create := func() int { calls++; return calls }

	if v := c.GetOrCreate("k", create); v != 1 {
		t.Errorf("first GetOrCreate = %d, want 1", v)
	}
	clock.t = clock.t.Add(50 * time.Second)
	if v := c.GetOrCreate("k", create); v != 1 {
		t.Errorf("second GetOrCreate = %d, want cached 1", v)
	}
	clock.t = clock.t.Add(50 * time.Second)
	if v := c.GetOrCreate("k", create); v != 1 {
		t.Errorf("hit should refresh the TTL, got %d", v)
	}
	clock.t = clock.t.Add(2 * time.Minute)
	if v := c.GetOrCreate("k", create); v != 2 {
		t.Errorf("expired GetOrCreate = %d, want 2", v)
	}

	c.Delete("k")
	if c.Size() != 0 {
		t.Errorf("Size() after Delete = %d, want 0", c.Size())
	}
}

func TestManager_CleanAll(t *testing.T) {
	c, clock := newTestCache(10, time.Second)
	c.Set("a", 1)
	c.Set("b", 2)
	clock.t = clock.t.Add(time.Minute)

	m := NewManager(nil)
	m.Register(c)

	if n := m.CleanAll(); n != 2 {
		t.Errorf("CleanAll() = %d, want 2", n)
	}
}

func TestManager_StartStop(t *testing.T) {
	m := NewManager(nil)
	m.Stop() // no-op before Start

	m.Start(context.Background(), time.Millisecond)
	m.Stop()
	m.Stop()
}
