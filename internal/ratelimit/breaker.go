package ratelimit

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerBank holds one circuit breaker per provider, consulted by the
// Fallback Chain alongside CheckBeforeCall: a provider whose breaker is
// open is skipped regardless of its ledger ratio, covering transport
// failures that never show up as RATE_LIMIT (e.g. the CLI crashing
// repeatedly). Grounded on jordigilh-kubernaut's per-channel gobreaker
// usage (test/integration/notification/suite_test.go).
type BreakerBank struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakerBank constructs an empty bank; breakers are created lazily per
// provider on first use.
func NewBreakerBank() *BreakerBank {
	return &BreakerBank{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

func (b *BreakerBank) get(provider string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[provider]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	b.breakers[provider] = cb
	return cb
}

// Allow reports whether provider's breaker is closed or half-open (i.e.
// whether a call should even be attempted).
func (b *BreakerBank) Allow(provider string) bool {
	cb := b.get(provider)
	return cb.State() != gobreaker.StateOpen
}

// Record reports an invocation outcome to provider's breaker, tripping it
// after consecutive failures.
func (b *BreakerBank) Record(provider string, success bool) {
	cb := b.get(provider)
	_, _ = cb.Execute(func() (interface{}, error) {
		if !success {
			return nil, errBreakerFailure
		}
		return nil, nil
	})
}

var errBreakerFailure = breakerFailure{}

type breakerFailure struct{}

func (breakerFailure) Error() string { return "adapter invocation failed" }
