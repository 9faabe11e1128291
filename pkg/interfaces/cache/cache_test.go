package cache

import (
	"context"
	"testing"
	"time"
)

type prefixCache struct {
	Nop
	prefixes []string
	keys     []string
}

func (c *prefixCache) Delete(_ context.Context, key string) error {
	c.keys = append(c.keys, key)
	return nil
}

func (c *prefixCache) DeletePrefix(_ context.Context, prefix string) error {
	c.prefixes = append(c.prefixes, prefix)
	return nil
}

type keyCache struct {
	Nop
	keys []string
}

func (c *keyCache) Delete(_ context.Context, key string) error {
	c.keys = append(c.keys, key)
	return nil
}

func TestKeySkipsEmptyParts(t *testing.T) {
	if got := Key("rss", " ", "abc"); got != "blocks:rss:abc" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestInvalidatePrefersPrefixDelete(t *testing.T) {
	ctx := context.Background()
	pc := &prefixCache{}
	if err := Invalidate(ctx, pc, "blocks:rss:1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if len(pc.prefixes) != 1 || len(pc.keys) != 0 {
		t.Fatalf("expected prefix delete, got prefixes=%v keys=%v", pc.prefixes, pc.keys)
	}

	kc := &keyCache{}
	if err := Invalidate(ctx, kc, "blocks:rss:1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if len(kc.keys) != 1 || kc.keys[0] != "blocks:rss:1" {
		t.Fatalf("expected key delete fallback, got %v", kc.keys)
	}
}

func TestNopCache(t *testing.T) {
	c := &Nop{}
	ctx := context.Background()
	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("nop cache must miss")
	}
}

func TestMemoryExpiresAndDeletesPrefix(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mem := NewMemory()
	mem.now = func() time.Time { return now }

	_ = mem.Set(ctx, "blocks:rss:a:1", "one", time.Minute)
	_ = mem.Set(ctx, "blocks:rss:a:2", "two", 0)
	_ = mem.Set(ctx, "blocks:rss:b:1", "other", 0)

	if value, ok, _ := mem.Get(ctx, "blocks:rss:a:1"); !ok || value != "one" {
		t.Fatalf("expected hit, got %v %v", value, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := mem.Get(ctx, "blocks:rss:a:1"); ok {
		t.Fatalf("expected expired entry to miss")
	}

	if err := Invalidate(ctx, mem, "blocks:rss:a:"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := mem.Get(ctx, "blocks:rss:a:2"); ok {
		t.Fatalf("expected prefix entries removed")
	}
	if mem.Len() != 1 {
		t.Fatalf("expected unrelated entry kept, have %d", mem.Len())
	}
}
