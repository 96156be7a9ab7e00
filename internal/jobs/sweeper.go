package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// MemoryCache is the in-memory embedding cache side of the sweep.
type MemoryCache interface {
	// Sweep removes expired entries and reports how many were dropped.
	Sweep() int
}

// ExpiredEntryStore is the durable mirror side of the sweep.
type ExpiredEntryStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CacheSweeper evicts expired embedding cache entries from memory and,
// when a durable mirror is configured, from the database as well.
type CacheSweeper struct {
	cache MemoryCache
	store ExpiredEntryStore
	now   func() time.Time
}

func NewCacheSweeper(cache MemoryCache, store ExpiredEntryStore) *CacheSweeper {
	return &CacheSweeper{
		cache: cache,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// ProcessJobs implements the JobProcessor interface.
func (s *CacheSweeper) ProcessJobs(ctx context.Context) error {
	swept := 0
	if s.cache != nil {
		swept = s.cache.Sweep()
	}

	var purged int64
	if s.store != nil {
		n, err := s.store.DeleteExpired(ctx, s.now())
		if err != nil {
			return fmt.Errorf("failed to purge expired cache entries: %w", err)
		}
		purged = n
	}

	if swept > 0 || purged > 0 {
		log.Printf("cache sweep removed %d in-memory and %d persisted entries", swept, purged)
	}
	return nil
}
