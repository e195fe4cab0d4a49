package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
)

func TestMemoryCacheHitWithinTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cache := NewMemoryCache(clock)
	ctx := context.Background()

	want := asset.Quote{Symbol: "AAPL", Price: 190.5}
	cache.Set(ctx, "quote:stock:AAPL", want, time.Minute, ProviderYahoo)

	now = now.Add(59 * time.Second)
	var got asset.Quote
	if !cache.Get(ctx, "quote:stock:AAPL", &got) {
		t.Fatal("expected hit within TTL")
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cache := NewMemoryCache(clock)
	ctx := context.Background()

	cache.Set(ctx, "k", asset.Quote{Symbol: "AAPL"}, time.Minute, ProviderYahoo)

	// Exactly at TTL is still a hit; one nanosecond past is a miss.
	now = now.Add(time.Minute)
	var got asset.Quote
	if !cache.Get(ctx, "k", &got) {
		t.Fatal("expected hit at exact TTL boundary")
	}

	now = now.Add(time.Nanosecond)
	if cache.Get(ctx, "k", &got) {
		t.Fatal("expected miss past TTL")
	}

	// The expired slot must have been evicted.
	entries, _ := cache.Stats()
	if entries != 0 {
		t.Fatalf("expected 0 entries after eviction, got %d", entries)
	}
}

func TestMemoryCacheOverwriteResetsClock(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cache := NewMemoryCache(clock)
	ctx := context.Background()

	cache.Set(ctx, "k", 1, time.Minute, "a")
	now = now.Add(50 * time.Second)
	cache.Set(ctx, "k", 2, time.Minute, "b")

	now = now.Add(50 * time.Second)
	var got int
	if !cache.Get(ctx, "k", &got) {
		t.Fatal("expected hit, overwrite should restart the TTL")
	}
	if got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}

func TestMemoryCacheTypeMismatchIsMiss(t *testing.T) {
	cache := NewMemoryCache(nil)
	ctx := context.Background()

	cache.Set(ctx, "k", asset.Quote{Symbol: "AAPL"}, time.Minute, ProviderYahoo)
	var wrong int
	if cache.Get(ctx, "k", &wrong) {
		t.Fatal("expected miss when dst type does not match stored value")
	}
}

func TestMemoryCacheClearAndStats(t *testing.T) {
	cache := NewMemoryCache(nil)
	ctx := context.Background()

	cache.Set(ctx, "a", 1, time.Minute, ProviderYahoo)
	cache.Set(ctx, "b", 2, time.Minute, ProviderYahoo)
	cache.Set(ctx, "c", 3, time.Minute, ProviderCoinGecko)

	entries, sources := cache.Stats()
	if entries != 3 {
		t.Fatalf("entries = %d, want 3", entries)
	}
	if sources[ProviderYahoo] != 2 || sources[ProviderCoinGecko] != 1 {
		t.Fatalf("unexpected source counts: %v", sources)
	}

	cache.Clear()
	entries, _ = cache.Stats()
	if entries != 0 {
		t.Fatalf("entries after clear = %d, want 0", entries)
	}
}
