package cache

import (
	"context"
	"strings"
	"time"
)

// Namespace prefixes every key produced by Key.
const Namespace = "blocks"

// Cache is the trigger-point contract used for rendered block payloads. Nop
// and Memory ship with the module; hosts plug in their own store.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key joins non-empty parts under Namespace, e.g. "blocks:rss:<id>:<digest>".
func Key(parts ...string) string {
	out := make([]string, 0, len(parts)+1)
	out = append(out, Namespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return strings.Join(out, ":")
}

// PrefixDeleter is an optional Cache capability used to drop every entry
// stored under a key prefix.
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// Invalidate drops entries under prefix when c supports it, falling back to a
// single-key delete otherwise.
func Invalidate(ctx context.Context, c Cache, prefix string) error {
	if c == nil || prefix == "" {
		return nil
	}
	if deleter, ok := c.(PrefixDeleter); ok {
		return deleter.DeletePrefix(ctx, prefix)
	}
	return c.Delete(ctx, prefix)
}

// Nop cache returns misses and ignores writes.
type Nop struct{}

var _ Cache = (*Nop)(nil)

func (n *Nop) Get(ctx context.Context, key string) (any, bool, error) { return nil, false, nil }
func (n *Nop) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return nil
}
func (n *Nop) Delete(ctx context.Context, key string) error { return nil }
