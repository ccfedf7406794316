package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type entry struct {
	Coin  string  `json:"coin"`
	Score float64 `json:"score"`
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "prediction:BTC:1h", entry{Coin: "BTC", Score: 0.42}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got entry
	if err := mc.Get(ctx, "prediction:BTC:1h", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Coin != "BTC" || got.Score != 0.42 {
		t.Fatalf("got %+v", got)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	now := time.Now()
	mc.now = func() time.Time { return now }
	_ = mc.Set(ctx, "k", 1, time.Second)

	mc.now = func() time.Time { return now.Add(2 * time.Second) }
	var v int
	if err := mc.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	base := time.Now()
	mc.now = func() time.Time { return base }
	_ = mc.Set(ctx, "a", 1, time.Minute)
	mc.now = func() time.Time { return base.Add(time.Second) }
	_ = mc.Set(ctx, "b", 2, time.Minute)
	mc.now = func() time.Time { return base.Add(2 * time.Second) }
	var v int
	_ = mc.Get(ctx, "a", &v)
	mc.now = func() time.Time { return base.Add(3 * time.Second) }
	_ = mc.Set(ctx, "c", 3, time.Minute)

	if mc.Len() != 2 {
		t.Fatalf("len=%d", mc.Len())
	}
	if err := mc.Get(ctx, "b", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("b should have been evicted")
	}
	if err := mc.Get(ctx, "a", &v); err != nil || v != 1 {
		t.Fatalf("a should survive, v=%d err=%v", v, err)
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "prediction:BTC:1h", 1, 0)
	_ = mc.Set(ctx, "prediction:BTC:4h", 1, 0)
	_ = mc.Set(ctx, "prediction:ETH:1h", 1, 0)

	if err := mc.DeleteByPattern(ctx, "prediction:BTC:*"); err != nil {
		t.Fatalf("DeleteByPattern: %v", err)
	}
	var v int
	if err := mc.Get(ctx, "prediction:BTC:4h", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("BTC keys should be gone, got %v", err)
	}
	if err := mc.Get(ctx, "prediction:ETH:1h", &v); err != nil {
		t.Fatalf("ETH key should remain: %v", err)
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); !ok {
		t.Fatalf("first lock should succeed")
	}
	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); ok {
		t.Fatalf("second lock should fail")
	}
	_ = mc.Delete(ctx, "lock")
	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); !ok {
		t.Fatalf("lock after release should succeed")
	}
}
