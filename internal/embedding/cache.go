// Package embedding memoizes text-to-vector conversions so repeated
// ingestion and querying of the same content does not hit the external
// provider again. Entries are keyed by content hash and model name and
// expire after a finite lifetime; the cache is never authoritative.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"sync"
	"time"
)

// DefaultTTL is the default lifetime of a cache entry.
const DefaultTTL = 7 * 24 * time.Hour

// Provider is the external embed capability.
type Provider interface {
	Embed(ctx context.Context, text, model string) ([]float32, error)
}

// MirrorStore optionally persists cache entries so a restarted process
// can reuse them. Losing the mirror never changes query results.
type MirrorStore interface {
	Load(ctx context.Context, key string) ([]float32, time.Time, error)
	Save(ctx context.Context, key, model string, vector []float32, expiresAt time.Time) error
}

type entry struct {
	vector    []float32
	expiresAt time.Time
}

// Cache is a concurrency-safe embedding cache shared across tenants. It
// is keyed by content and model only; it holds no tenant-scoped data.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]entry
	ttl      time.Duration
	provider Provider
	mirror   MirrorStore
	now      func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the entry lifetime. A non-positive TTL disables
// caching entirely: every lookup calls the provider.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithMirror persists entries to a durable store.
func WithMirror(mirror MirrorStore) Option {
	return func(c *Cache) { c.mirror = mirror }
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a Cache backed by the given provider.
func NewCache(provider Provider, opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]entry),
		ttl:      DefaultTTL,
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the stable cache key for (text, model).
func Key(text, model string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCompute returns the cached vector for (text, model) or computes it
// via the provider. A provider failure is returned as-is; the cache never
// substitutes a fabricated vector.
func (c *Cache) GetOrCompute(ctx context.Context, text, model string) ([]float32, error) {
	if c.ttl <= 0 {
		return c.provider.Embed(ctx, text, model)
	}

	key := Key(text, model)
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return cloneVector(e.vector), nil
	}

	if c.mirror != nil {
		vector, expiresAt, err := c.mirror.Load(ctx, key)
		if err != nil {
			log.Printf("embedding cache: mirror load failed: %v", err)
		} else if vector != nil && now.Before(expiresAt) {
			c.put(key, vector, expiresAt)
			return cloneVector(vector), nil
		}
	}

	vector, err := c.provider.Embed(ctx, text, model)
	if err != nil {
		return nil, err
	}

	expiresAt := now.Add(c.ttl)
	c.put(key, vector, expiresAt)

	if c.mirror != nil {
		if err := c.mirror.Save(ctx, key, model, vector, expiresAt); err != nil {
			log.Printf("embedding cache: mirror save failed: %v", err)
		}
	}

	return cloneVector(vector), nil
}

func (c *Cache) put(key string, vector []float32, expiresAt time.Time) {
	c.mu.Lock()
	c.entries[key] = entry{vector: cloneVector(vector), expiresAt: expiresAt}
	c.mu.Unlock()
}

// Sweep removes expired entries and returns how many were evicted.
func (c *Cache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of resident entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
