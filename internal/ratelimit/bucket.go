package ratelimit

import (
	"sync"
	"time"
)

// bucket is the token-bucket enforcement layer under one RateLedger entry,
// grounded on andymwolf-agentium/internal/security/ratelimit.go's
// RateLimiter, minus its HTTP middleware (no HTTP control plane is in
// scope here).
type bucket struct {
	mu         sync.Mutex
	used       int
	limit      int
	lastReset  time.Time
	nextReset  time.Time
	resetEvery time.Duration
}

func newBucket(limit int, resetEvery time.Duration) *bucket {
	now := time.Now()
	return &bucket{
		limit:      limit,
		lastReset:  now,
		nextReset:  now.Add(resetEvery),
		resetEvery: resetEvery,
	}
}

// maybeReset zeroes usage once the reset window has elapsed, per spec.md
// §4.3's reset semantics: estimatedLimit survives the reset, only used and
// the window markers are cleared.
func (b *bucket) maybeReset(now time.Time) {
	if !now.Before(b.nextReset) {
		b.used = 0
		b.lastReset = now
		b.nextReset = now.Add(b.resetEvery)
	}
}

func (b *bucket) ratio() float64 {
	if b.limit <= 0 {
		return 0
	}
	return float64(b.used) / float64(b.limit)
}

func (b *bucket) record() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeReset(time.Now())
	b.used++
}

func (b *bucket) snapshot() (used, limit int, lastReset, nextReset time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeReset(time.Now())
	return b.used, b.limit, b.lastReset, b.nextReset
}

// pin forces used to limit, so the usage ratio reads 1.0 — the confidence
// pinning spec.md §3 mandates when a provider returns RATE_LIMIT.
func (b *bucket) pin() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limit = b.used
	if b.limit == 0 {
		b.limit = 1
	}
}
