package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	cache := NewTTLCache[string, int](2, time.Second)
	cache.Set("a", 1)

	value, ok := cache.Get("a")
	if !ok {
		t.Fatalf("expected value")
	}
	if value != 1 {
		t.Fatalf("expected 1, got %d", value)
	}
}

func TestTTLCacheEvictsOldest(t *testing.T) {
	cache := NewTTLCache[string, int](2, time.Second)
	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Set("c", 3)

	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected key 'a' to be evicted")
	}
	if value, ok := cache.Get("b"); !ok || value != 2 {
		t.Fatalf("expected key 'b' to remain")
	}
	if value, ok := cache.Get("c"); !ok || value != 3 {
		t.Fatalf("expected key 'c' to remain")
	}
}

func TestTTLCacheModify(t *testing.T) {
	cache := NewTTLCache[string, int](4, time.Second)

	value, ok := cache.Modify("counter", func(current int, _ bool) int { return current + 1 })
	if !ok || value != 1 {
		t.Fatalf("first Modify = (%d, %v), want (1, true)", value, ok)
	}
	value, ok = cache.Modify("counter", func(current int, _ bool) int { return current + 1 })
	if !ok || value != 2 {
		t.Fatalf("second Modify = (%d, %v), want (2, true)", value, ok)
	}

	var nilCache *TTLCache[string, int]
	if _, ok := nilCache.Modify("counter", func(current int, _ bool) int { return current }); ok {
		t.Fatalf("nil cache Modify must report failure")
	}
}

func TestTTLCacheExpires(t *testing.T) {
	cache := NewTTLCache[string, int](2, 20*time.Millisecond)
	cache.Set("a", 1)
	time.Sleep(50 * time.Millisecond)

	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected key 'a' to expire")
	}
}
