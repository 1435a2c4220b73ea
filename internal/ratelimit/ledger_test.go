package ratelimit

import (
	"path/filepath"
	"testing"

	"github.com/andywolf/orchestra/internal/adapter"
)

func TestCheckBeforeCallProceedsUnderWarn(t *testing.T) {
	l, err := New(filepath.Join(t.TempDir(), "ledger.json"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	decision := l.CheckBeforeCall("sonnet", adapter.RoleExecutor)
	if !decision.Proceed || decision.UseFallback {
		t.Fatalf("expected plain proceed, got %+v", decision)
	}
}

func TestCheckBeforeCallSuggestsFallbackAtCritical(t *testing.T) {
	l, err := New(filepath.Join(t.TempDir(), "ledger.json"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	b := l.ensure("sonnet")
	b.limit = 100
	for i := 0; i < 96; i++ {
		b.record()
	}

	decision := l.CheckBeforeCall("sonnet", adapter.RoleExecutor)
	if !decision.Proceed || !decision.UseFallback || decision.FallbackProvider != "codex" {
		t.Fatalf("expected fallback to codex, got %+v", decision)
	}
}

func TestHandleRateLimitErrorPinsConfidence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := l.RecordUsage("glm"); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	if err := l.HandleRateLimitError("glm"); err != nil {
		t.Fatalf("HandleRateLimitError: %v", err)
	}

	snap := l.Snapshot()["glm"]
	if snap.Confidence != 1.0 {
		t.Fatalf("expected confidence pinned to 1.0, got %v", snap.Confidence)
	}
	if snap.Used != snap.EstimatedLimit {
		t.Fatalf("expected limit pinned to used count: used=%d limit=%d", snap.Used, snap.EstimatedLimit)
	}
}

func TestLedgerPersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := l.RecordUsage("gemini"); err != nil {
			t.Fatalf("RecordUsage: %v", err)
		}
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload New: %v", err)
	}
	snap := reloaded.Snapshot()["gemini"]
	if snap.Used != 5 {
		t.Fatalf("expected used=5 after reload, got %d", snap.Used)
	}
}
