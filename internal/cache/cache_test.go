package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type sample struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, time.Hour)

	if err := c.Set(ctx, "k", sample{Name: "hat", Price: 18.5}, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got sample
	if err := c.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "hat" || got.Price != 18.5 {
		t.Errorf("Get() = %+v", got)
	}

	var missing sample
	if err := c.Get(ctx, "absent", &missing); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(10, time.Hour)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "short", 1, time.Minute)
	_ = c.Set(ctx, "long", 2, time.Hour)

	now = now.Add(2 * time.Minute)

	var v int
	if err := c.Get(ctx, "short", &v); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expired key should miss, got %v", err)
	}
	if err := c.Get(ctx, "long", &v); err != nil || v != 2 {
		t.Errorf("long key: v=%d err=%v", v, err)
	}
}

func TestMemoryCache_Clean(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(10, time.Hour)
	c.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		_ = c.Set(ctx, fmt.Sprintf("k%d", i), i, time.Duration(i+1)*time.Minute)
	}

	now = now.Add(150 * time.Second)
	if stats := c.Stats(); stats.ExpiredItems != 2 {
		t.Errorf("expected 2 expired items, got %d", stats.ExpiredItems)
	}
	if err := c.Clean(); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if c.Size() != 3 {
		t.Errorf("expected 3 items after clean, got %d", c.Size())
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Hour)

	_ = c.Set(ctx, "a", 1, 0)
	_ = c.Set(ctx, "b", 2, 0)

	var v int
	_ = c.Get(ctx, "a", &v) // a becomes most recent
	_ = c.Set(ctx, "c", 3, 0)

	if err := c.Get(ctx, "b", &v); !errors.Is(err, ErrCacheMiss) {
		t.Error("least recently used key should be evicted")
	}
	if err := c.Get(ctx, "a", &v); err != nil {
		t.Errorf("recently used key evicted: %v", err)
	}
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, time.Hour)

	_ = c.Set(ctx, "a", 1, 0)
	_ = c.Set(ctx, "b", 2, 0)
	_ = c.Set(ctx, "c", 3, 0)

	_ = c.Delete(ctx, "a", "b", "missing")
	if c.Size() != 1 {
		t.Errorf("expected 1 item after delete, got %d", c.Size())
	}

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d", c.Size())
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(50, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (id*100+j)%75)
				_ = c.Set(ctx, key, j, 0)
				var v int
				_ = c.Get(ctx, key, &v)
			}
		}(i)
	}
	wg.Wait()

	if c.Size() > 50 {
		t.Errorf("cache grew past max size: %d", c.Size())
	}
}

func TestNew_Backends(t *testing.T) {
	store, err := New(Config{Backend: BackendNone})
	if err != nil || store != nil {
		t.Errorf("none backend: store=%v err=%v", store, err)
	}

	store, err = New(Config{Backend: BackendMemory, MaxEntries: 5})
	if err != nil {
		t.Fatalf("memory backend error = %v", err)
	}
	if _, ok := store.(*MemoryCache); !ok {
		t.Errorf("expected *MemoryCache, got %T", store)
	}
	if _, ok := store.(Sweeper); !ok {
		t.Error("memory cache should be a Sweeper")
	}

	if _, err := New(Config{Backend: "memcached"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(WithRedisAddr("127.0.0.1:1"), WithRedisDialTimeout(200*time.Millisecond))
	if err == nil {
		t.Fatal("expected ping error for unreachable redis")
	}
}

func TestRedisStore_WrapKey(t *testing.T) {
	s := &RedisStore{prefix: "thriftflip"}
	if got := s.wrapKey("search:ebay:hat"); got != "thriftflip:search:ebay:hat" {
		t.Errorf("wrapKey = %q", got)
	}

	bare := &RedisStore{}
	if got := bare.wrapKey("k"); got != "k" {
		t.Errorf("wrapKey without prefix = %q", got)
	}
}
