package service

import (
	"sync"
	"time"
)

// freshness tracks the last successful collection fetch. It answers whether
// the store is fresh enough to skip a refetch; a forced refresh bypasses it
// entirely.
type freshness struct {
	mu          sync.Mutex
	lastFetched time.Time
}

// isFresh reports whether a fetch completed within ttl of now. An empty
// store is never fresh regardless of the timestamp.
func (f *freshness) isFresh(now time.Time, ttl time.Duration, nonEmpty bool) bool {
	if !nonEmpty {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.lastFetched.IsZero() && now.Sub(f.lastFetched) < ttl
}

func (f *freshness) markFetched(now time.Time) {
	f.mu.Lock()
	f.lastFetched = now
	f.mu.Unlock()
}
