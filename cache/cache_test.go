package cache

import (
	"context"
	"testing"
	"time"
)

func TestCachePutGetRoundTrip(t *testing.T) {
	c := New(nil)
	c.Put("k1", []byte("v1"), time.Minute)

	v, ok := c.Get("k1")
	if !ok {
		t.Fatal("expected a hit")
	}
	if string(v) != "v1" {
		t.Fatalf("got %q, want v1", v)
	}
}

func TestCacheGetMissIsNotAnError(t *testing.T) {
	c := New(nil)
	_, ok := c.Get("missing")
	if ok {
		t.Fatal("expected a miss for an unset key")
	}
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	c := New(nil)
	c.Put("k1", []byte("v1"), -time.Second) // already expired

	_, ok := c.Get("k1")
	if ok {
		t.Fatal("expected a miss for an expired entry")
	}
}

func TestCacheDeleteRemovesImmediately(t *testing.T) {
	c := New(nil)
	c.Put("k1", []byte("v1"), time.Hour)
	c.Delete("k1")

	if _, ok := c.Get("k1"); ok {
		t.Fatal("expected a miss after Delete")
	}
}

func TestCacheHydrateIsNoOpWithoutMirror(t *testing.T) {
	c := New(nil)
	if err := c.Hydrate(context.Background()); err != nil {
		t.Fatalf("expected Hydrate without a mirror to be a no-op, got %v", err)
	}
	if len(c.entries) != 0 {
		t.Fatalf("expected no entries to be populated, got %d", len(c.entries))
	}
}

func TestCacheHydrateIsNoOpWithUnconfiguredMirror(t *testing.T) {
	c := New(&MongoMirror{configured: false})
	if err := c.Hydrate(context.Background()); err != nil {
		t.Fatalf("expected Hydrate with an unconfigured mirror to be a no-op, got %v", err)
	}
	if len(c.entries) != 0 {
		t.Fatalf("expected no entries to be populated, got %d", len(c.entries))
	}
}

func TestCacheSweepRemovesOnlyExpired(t *testing.T) {
	c := New(nil)
	c.Put("fresh", []byte("v"), time.Hour)
	c.Put("stale", []byte("v"), -time.Second)

	c.Sweep()

	if _, ok := c.Get("fresh"); !ok {
		t.Fatal("expected the fresh entry to survive Sweep")
	}
	c.mu.RLock()
	_, staleStillPresent := c.entries["stale"]
	c.mu.RUnlock()
	if staleStillPresent {
		t.Fatal("expected Sweep to remove the expired entry from the map")
	}
}
