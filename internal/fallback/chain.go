// Package fallback implements the Fallback Chain (spec.md §4.2): an ordered
// role-scoped list of adapters, gated by Rate Ledger and circuit-breaker
// state, that retries on typed failure.
package fallback

import (
	"context"
	"errors"
	"time"

	"github.com/andywolf/orchestra/internal/adapter"
	"github.com/andywolf/orchestra/internal/ratelimit"
	"github.com/andywolf/orchestra/internal/state"
)

// ErrExhaustedProviders is returned when every adapter in a role's chain is
// unavailable, rate-limited with no fallback, or breaker-tripped.
var ErrExhaustedProviders = errors.New("fallback: exhausted providers")

// Chain is a role-scoped ordered list of adapters, primary first.
type Chain struct {
	role     adapter.Role
	adapters []adapter.Adapter
	ledger   *ratelimit.Ledger
	breakers *ratelimit.BreakerBank
	cache    *adapter.ResponseCache
}

// NewChain constructs a Chain for role from adapters in priority order.
func NewChain(role adapter.Role, adapters []adapter.Adapter, ledger *ratelimit.Ledger, breakers *ratelimit.BreakerBank, cache *adapter.ResponseCache) *Chain {
	return &Chain{role: role, adapters: adapters, ledger: ledger, breakers: breakers, cache: cache}
}

// Outcome is the result of Invoke: the winning Result plus every Attempt
// recorded along the way (successful or not), in call order.
type Outcome struct {
	Result            adapter.Result
	Attempts          []state.Attempt
	FallbackRotations int
	Err               error
}

// Invoke tries each eligible adapter in order until one succeeds or the
// chain is exhausted. prompt/workingDir/deadline are passed through
// unmodified to each candidate's Invoke.
func (c *Chain) Invoke(ctx context.Context, prompt, workingDir string, deadline time.Duration) Outcome {
	var attempts []state.Attempt
	rotations := 0

	for i, a := range c.adapters {
		info := a.Info()

		if !a.IsAvailable(ctx) {
			continue
		}
		if c.breakers != nil && !c.breakers.Allow(info.Provider) {
			continue
		}

		decision := ratelimit.Decision{Proceed: true}
		if c.ledger != nil {
			decision = c.ledger.CheckBeforeCall(info.Provider, c.role)
		}
		if !decision.Proceed {
			continue
		}

		var cacheKey string
		if c.cache != nil {
			cacheKey = adapter.Key(info.Name, prompt, workingDir)
			if cached, ok := c.cache.Lookup(cacheKey); ok {
				return Outcome{Result: cached, Attempts: attempts, FallbackRotations: rotations}
			}
		}

		start := time.Now()
		result, err := a.Invoke(ctx, prompt, workingDir, deadline)
		latency := time.Since(start).Milliseconds()

		if i > 0 {
			rotations++
		}

		errorCode := state.ErrorCode(result.ErrorKind)

		attempt := state.Attempt{
			ModelID:          info.Model,
			Provider:         info.Provider,
			Role:             state.AgentRole(c.role),
			LatencyMs:        latency,
			Success:          err == nil && result.Success,
			ErrorCode:        errorCode,
			TokensUsed:       result.TokensUsed,
			EstimatedCostUsd: result.EstimatedCostUsd,
			Timestamp:        start,
		}
		attempts = append(attempts, attempt)

		if c.ledger != nil {
			_ = c.ledger.RecordUsage(info.Provider)
		}

		if err != nil {
			if c.breakers != nil {
				c.breakers.Record(info.Provider, false)
			}
			continue
		}

		if result.ErrorKind == adapter.ErrRateLimit && c.ledger != nil {
			_ = c.ledger.HandleRateLimitError(info.Provider)
		}

		if result.Success {
			if c.breakers != nil {
				c.breakers.Record(info.Provider, true)
			}
			if c.cache != nil {
				_ = c.cache.Store(cacheKey, result)
			}
			return Outcome{Result: result, Attempts: attempts, FallbackRotations: rotations}
		}

		// Any typed failure (RATE_LIMIT, TIMEOUT, CONTEXT_EXCEEDED,
		// API_ERROR) retries with the next eligible adapter, per spec.md
		// §4.2.
		if c.breakers != nil {
			c.breakers.Record(info.Provider, false)
		}
	}

	return Outcome{Attempts: attempts, FallbackRotations: rotations, Err: ErrExhaustedProviders}
}
