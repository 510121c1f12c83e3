package cache

import (
	"testing"
	"time"
)

func TestGetReturnsFreshValue(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewWithClock(func() time.Time { return now })

	c.Set("k", "v")
	now = now.Add(1 * time.Second)

	v, ok := c.Get("k", 2*time.Second)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if v.(string) != "v" {
		t.Errorf("expected %q, got %v", "v", v)
	}
}

func TestGetMissesOnceStale(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewWithClock(func() time.Time { return now })

	c.Set("k", 42)
	now = now.Add(2 * time.Second)

	if _, ok := c.Get("k", 2*time.Second); ok {
		t.Error("expected miss at exactly maxAge")
	}
	now = now.Add(time.Hour)
	if _, ok := c.Get("k", 2*time.Second); ok {
		t.Error("expected miss after maxAge")
	}
}

func TestGetMissesOnUnknownKey(t *testing.T) {
	c := New()
	if _, ok := c.Get("absent", time.Minute); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestSetOverwritesAndResetsAge(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewWithClock(func() time.Time { return now })

	c.Set("k", "old")
	now = now.Add(10 * time.Second)
	c.Set("k", "new")
	now = now.Add(1 * time.Second)

	v, ok := c.Get("k", 5*time.Second)
	if !ok {
		t.Fatal("expected hit after overwrite")
	}
	if v.(string) != "new" {
		t.Errorf("expected overwritten value, got %v", v)
	}
}

func TestInvalidate(t *testing.T) {
	c := New()
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a", time.Minute); ok {
		t.Error("expected miss after Invalidate")
	}
	if _, ok := c.Get("b", time.Minute); !ok {
		t.Error("unrelated key should survive Invalidate")
	}

	c.InvalidateAll()
	if _, ok := c.Get("b", time.Minute); ok {
		t.Error("expected miss after InvalidateAll")
	}
}

func TestGetTyped(t *testing.T) {
	c := New()
	c.Set("n", 7)

	n, ok := GetTyped[int](c, "n", time.Minute)
	if !ok || n != 7 {
		t.Errorf("expected typed hit with 7, got %d ok=%t", n, ok)
	}
	if _, ok := GetTyped[string](c, "n", time.Minute); ok {
		t.Error("type mismatch should report a miss")
	}
}
