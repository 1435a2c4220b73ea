package fallback

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/andywolf/orchestra/internal/adapter"
	"github.com/andywolf/orchestra/internal/ratelimit"
)

type scriptedAdapter struct {
	info   adapter.Info
	result adapter.Result
}

func (s *scriptedAdapter) Info() adapter.Info                  { return s.info }
func (s *scriptedAdapter) IsAvailable(ctx context.Context) bool { return true }
func (s *scriptedAdapter) Invoke(ctx context.Context, prompt, workingDir string, deadline time.Duration) (adapter.Result, error) {
	return s.result, nil
}

func newLedger(t *testing.T) *ratelimit.Ledger {
	t.Helper()
	l, err := ratelimit.New(filepath.Join(t.TempDir(), "ledger.json"))
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}
	return l
}

func TestInvokeSucceedsOnPrimary(t *testing.T) {
	primary := &scriptedAdapter{
		info:   adapter.Info{Name: "glm", Provider: "glm"},
		result: adapter.Result{Success: true, ErrorKind: adapter.ErrNone},
	}
	chain := NewChain(adapter.RoleArchitect, []adapter.Adapter{primary}, newLedger(t), ratelimit.NewBreakerBank(), nil)

	outcome := chain.Invoke(context.Background(), "do it", "/work", time.Second)
	if outcome.Err != nil {
		t.Fatalf("unexpected error: %v", outcome.Err)
	}
	if !outcome.Result.Success {
		t.Fatalf("expected success")
	}
	if len(outcome.Attempts) != 1 || outcome.FallbackRotations != 0 {
		t.Fatalf("unexpected attempts/rotations: %+v rotations=%d", outcome.Attempts, outcome.FallbackRotations)
	}
}

func TestInvokeFallsBackOnRateLimit(t *testing.T) {
	primary := &scriptedAdapter{
		info:   adapter.Info{Name: "gemini", Provider: "gemini"},
		result: adapter.Result{Success: false, ErrorKind: adapter.ErrRateLimit},
	}
	secondary := &scriptedAdapter{
		info:   adapter.Info{Name: "glm", Provider: "glm"},
		result: adapter.Result{Success: true, ErrorKind: adapter.ErrNone},
	}
	chain := NewChain(adapter.RoleArchitect, []adapter.Adapter{primary, secondary}, newLedger(t), ratelimit.NewBreakerBank(), nil)

	outcome := chain.Invoke(context.Background(), "do it", "/work", time.Second)
	if outcome.Err != nil {
		t.Fatalf("unexpected error: %v", outcome.Err)
	}
	if len(outcome.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(outcome.Attempts))
	}
	if outcome.Attempts[0].ErrorCode != "RATE_LIMIT" {
		t.Fatalf("expected first attempt to be RATE_LIMIT, got %v", outcome.Attempts[0].ErrorCode)
	}
	if outcome.FallbackRotations != 1 {
		t.Fatalf("expected 1 fallback rotation, got %d", outcome.FallbackRotations)
	}
}

func TestInvokeExhaustsProviders(t *testing.T) {
	failing := &scriptedAdapter{
		info:   adapter.Info{Name: "codex", Provider: "codex"},
		result: adapter.Result{Success: false, ErrorKind: adapter.ErrAPI},
	}
	chain := NewChain(adapter.RoleExecutor, []adapter.Adapter{failing}, newLedger(t), ratelimit.NewBreakerBank(), nil)

	outcome := chain.Invoke(context.Background(), "do it", "/work", time.Second)
	if outcome.Err != ErrExhaustedProviders {
		t.Fatalf("expected ErrExhaustedProviders, got %v", outcome.Err)
	}
}
