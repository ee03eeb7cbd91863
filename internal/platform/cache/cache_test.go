package cache

import (
	"testing"
	"time"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := New[string, int](4, time.Minute)
	c.Set("a", 1)
	got, ok := c.Get("a")
	if !ok || got != 1 {
		t.Fatalf("got (%d,%v), want (1,true)", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("unexpected hit for missing key")
	}
}

func TestExpiryOnGet(t *testing.T) {
	c := New[string, int](4, 5*time.Minute)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	c.Set("a", 1)

	c.now = func() time.Time { return base.Add(4 * time.Minute) }
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired early")
	}

	c.now = func() time.Time { return base.Add(5 * time.Minute) }
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry should be expired at the deadline")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", c.Len())
	}
}

func TestSetRefreshesTTL(t *testing.T) {
	c := New[string, int](4, 5*time.Minute)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Set("a", 1)

	c.now = func() time.Time { return base.Add(4 * time.Minute) }
	c.Set("a", 2)

	c.now = func() time.Time { return base.Add(8 * time.Minute) }
	got, ok := c.Get("a")
	if !ok || got != 2 {
		t.Fatalf("got (%d,%v), want (2,true) after TTL refresh", got, ok)
	}
}

func TestLRUEvictionHonorsGetRecency(t *testing.T) {
	c := New[string, int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// touch a so b becomes the eviction candidate
	if _, ok := c.Get("a"); !ok {
		t.Fatal("missing a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should have survived")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("c should be present")
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	c := New[string, int](8, 5*time.Minute)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Set("old", 1)

	c.now = func() time.Time { return base.Add(3 * time.Minute) }
	c.Set("fresh", 2)

	c.now = func() time.Time { return base.Add(6 * time.Minute) }
	c.Sweep()

	if c.Len() != 1 {
		t.Fatalf("len=%d, want 1", c.Len())
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Fatal("fresh entry swept")
	}
}

func TestSweeperStartStop(t *testing.T) {
	c := New[string, int](4, time.Minute)
	s := NewSweeper(10*time.Millisecond, c)
	s.Start()
	s.Start() // idempotent
	s.Stop()
	s.Stop() // idempotent
}
