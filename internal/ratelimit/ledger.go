// Package ratelimit implements the Rate Ledger (spec.md §4.3): per-provider
// usage bookkeeping with learned limits, WARN/CRITICAL thresholds, and a
// static role-scoped fallback compatibility map.
package ratelimit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/andywolf/orchestra/internal/adapter"
	"github.com/andywolf/orchestra/internal/fsutil"
)

const (
	warnThreshold     = 0.80
	criticalThreshold = 0.95
)

// fallbackMap is the static compatibility map from spec.md §4.3: for each
// role, which providers a CRITICAL-usage primary may hand off to.
var fallbackMap = map[adapter.Role][]string{
	adapter.RoleArchitect:  {"gemini", "glm"},
	adapter.RoleExecutor:   {"sonnet", "codex"},
	adapter.RoleAuditor:    {"opus", "glm"},
	adapter.RoleConsultant: {"opus", "gemini"},
}

// Decision is the result of checkBeforeCall.
type Decision struct {
	Proceed          bool
	UseFallback      bool
	FallbackProvider string
	Reason           string
	WaitUntil        time.Time
}

// entry is the persisted snapshot of one provider's ledger row.
type entry struct {
	Provider           string    `json:"provider"`
	Used               int       `json:"used"`
	EstimatedLimit     int       `json:"estimatedLimit"`
	Confidence         float64   `json:"confidence"`
	LastResetUtc       time.Time `json:"lastResetUtc"`
	ResetPeriodSeconds int       `json:"resetPeriodSeconds"`
	NextResetUtc       time.Time `json:"nextResetUtc"`
}

type document struct {
	Entries map[string]entry `json:"entries"`
}

// Ledger is the process-wide rate ledger singleton, persisted as a single
// JSON document per spec.md §4.3 ("Durability").
type Ledger struct {
	mu      sync.Mutex
	path    string
	buckets map[string]*bucket
	confid  map[string]float64
	periods map[string]time.Duration
}

// DefaultResetPeriods mirrors typical provider billing windows; callers may
// override via config.
var DefaultResetPeriods = map[string]time.Duration{
	"sonnet": 24 * time.Hour,
	"opus":   24 * time.Hour,
	"codex":  3 * time.Hour,
	"gemini": 24 * time.Hour,
	"glm":    24 * time.Hour,
}

// New constructs a Ledger backed by path, loading existing state if
// present. Unknown providers get a default limit of estimatedDefaultLimit;
// RecordUsage only counts calls, and the limit changes only when
// HandleRateLimitError pins it to the observed usage (spec.md §4.3).
func New(path string) (*Ledger, error) {
	l := &Ledger{
		path:    path,
		buckets: make(map[string]*bucket),
		confid:  make(map[string]float64),
		periods: make(map[string]time.Duration),
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) ensure(provider string) *bucket {
	if b, ok := l.buckets[provider]; ok {
		return b
	}
	period := DefaultResetPeriods[provider]
	if period == 0 {
		period = 24 * time.Hour
	}
	l.periods[provider] = period
	b := newBucket(estimatedDefaultLimit, period)
	l.buckets[provider] = b
	l.confid[provider] = 1.0
	return b
}

const estimatedDefaultLimit = 100

// CheckBeforeCall reports whether provider may be called for role, and
// whether a fallback substitution should be applied instead.
func (l *Ledger) CheckBeforeCall(provider string, role adapter.Role) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.ensure(provider)
	used, limit, _, nextReset := b.snapshot()
	ratio := 0.0
	if limit > 0 {
		ratio = float64(used) / float64(limit)
	}

	if ratio < warnThreshold {
		return Decision{Proceed: true, Reason: "under WARN threshold"}
	}

	if ratio < criticalThreshold {
		return Decision{Proceed: true, Reason: "WARN: approaching rate limit"}
	}

	// CRITICAL: look for a fallback whose own ratio is below WARN.
	for _, candidate := range fallbackMap[role] {
		if candidate == provider {
			continue
		}
		cb := l.ensure(candidate)
		cUsed, cLimit, _, _ := cb.snapshot()
		cRatio := 0.0
		if cLimit > 0 {
			cRatio = float64(cUsed) / float64(cLimit)
		}
		if cRatio < warnThreshold {
			return Decision{
				Proceed:          true,
				UseFallback:      true,
				FallbackProvider: candidate,
				Reason:           "CRITICAL usage, substituting fallback provider",
			}
		}
	}

	return Decision{
		Proceed:   false,
		Reason:    "CRITICAL usage, no fallback under WARN threshold",
		WaitUntil: nextReset,
	}
}

// RecordUsage increments provider's used count and persists the ledger.
func (l *Ledger) RecordUsage(provider string) error {
	l.mu.Lock()
	b := l.ensure(provider)
	b.record()
	l.mu.Unlock()
	return l.save()
}

// HandleRateLimitError pins provider's confidence to 1.0 by pinning its
// limit at the current used count, per spec.md §3's RateLedger entry
// semantics, then persists.
func (l *Ledger) HandleRateLimitError(provider string) error {
	l.mu.Lock()
	b := l.ensure(provider)
	b.pin()
	l.confid[provider] = 1.0
	l.mu.Unlock()
	return l.save()
}

// Snapshot returns a copy of all entries for reporting (e.g. `status`/`doctor`
// CLI commands).
func (l *Ledger) Snapshot() map[string]entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]entry, len(l.buckets))
	for provider, b := range l.buckets {
		used, limit, lastReset, nextReset := b.snapshot()
		out[provider] = entry{
			Provider:           provider,
			Used:               used,
			EstimatedLimit:     limit,
			Confidence:         l.confid[provider],
			LastResetUtc:       lastReset,
			ResetPeriodSeconds: int(l.periods[provider].Seconds()),
			NextResetUtc:       nextReset,
		}
	}
	return out
}

func (l *Ledger) save() error {
	doc := document{Entries: l.Snapshot()}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rate ledger: %w", err)
	}
	return fsutil.WriteAtomic(l.path, raw)
}

func (l *Ledger) load() error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read rate ledger: %w", err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse rate ledger: %w", err)
	}
	for provider, e := range doc.Entries {
		period := time.Duration(e.ResetPeriodSeconds) * time.Second
		if period == 0 {
			period = 24 * time.Hour
		}
		b := newBucket(e.EstimatedLimit, period)
		b.used = e.Used
		b.lastReset = e.LastResetUtc
		b.nextReset = e.NextResetUtc
		l.buckets[provider] = b
		l.confid[provider] = e.Confidence
		l.periods[provider] = period
	}
	return nil
}
