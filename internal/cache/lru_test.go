package cache

import (
	"context"
	"testing"
	"time"

	"cardtrend/internal/log"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected 1, got %q (ok=%v)", v, ok)
	}
	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" {
		t.Fatalf("expected overwrite, got %q", v)
	}
	if c.Size() != 1 {
		t.Fatalf("expected size 1, got %d", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // b is now the oldest
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("expected %s to survive", k)
		}
	}
	if s := c.Stats(); s.Evictions != 1 || s.Size != 2 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c, clock := newTestCache(4, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clock.t = clock.t.Add(30 * time.Second)
	c.Set("c", "3")
	clock.t = clock.t.Add(31 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to expire")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 expired entry cleaned (b), got %d", n)
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected c to remain")
	}
	if s := c.Stats(); s.Expired != 2 || s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestLRUCache_PurgeAndDelete(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	if c.Size() != 1 {
		t.Fatalf("expected size 1 after delete, got %d", c.Size())
	}
	if n := c.Purge(); n != 1 {
		t.Fatalf("expected purge to drop 1, got %d", n)
	}
	if c.Size() != 0 {
		t.Fatal("expected empty cache")
	}
}

func TestLRUCache_ZeroSizeDisables(t *testing.T) {
	c, _ := newTestCache(0, time.Minute)
	c.Set("a", "1")
	if _, ok := c.Get("a"); ok {
		t.Fatal("zero-size cache must not store")
	}
}

func TestJanitor(t *testing.T) {
	c, clock := newTestCache(4, time.Second)
	c.Set("a", "1")
	clock.t = clock.t.Add(2 * time.Second)

	j := NewJanitor(log.Discard(), c)
	if n := j.Sweep(); n != 1 {
		t.Fatalf("expected sweep to remove 1, got %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go j.Run(ctx, time.Hour)
	cancel()
	select {
	case <-j.Done():
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
