package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := New()
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("empty cache returned a hit")
	}

	c.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Errorf("Get = %q, %v", got, ok)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Nanosecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expired entry returned a hit")
	}
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Error("zero-TTL entry expired")
	}
}

func TestMemoryCache_CopiesValue(t *testing.T) {
	c := New()
	ctx := context.Background()

	val := []byte("orig")
	c.Set(ctx, "k", val, time.Minute)
	val[0] = 'X'
	got, _ := c.Get(ctx, "k")
	if string(got) != "orig" {
		t.Errorf("cache shares storage with caller: %q", got)
	}
}

func TestNewAuto_FallsBackToMemory(t *testing.T) {
	if _, ok := NewAuto("").(*memory); !ok {
		t.Error("empty addr should yield the in-process cache")
	}
	if _, ok := NewAuto("localhost:6379").(*redisCache); !ok {
		t.Error("addr should yield the redis cache")
	}
}
