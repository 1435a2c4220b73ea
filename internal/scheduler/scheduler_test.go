package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andywolf/orchestra/internal/adapter"
	"github.com/andywolf/orchestra/internal/fallback"
	"github.com/andywolf/orchestra/internal/ratelimit"
	"github.com/andywolf/orchestra/internal/state"
	"github.com/andywolf/orchestra/internal/validate"
)

// writerAdapter writes fixed content to the file named by the prompt, so
// Execute's validator pass has something real to probe.
type writerAdapter struct {
	content string
	fail    bool
}

func (w *writerAdapter) Info() adapter.Info { return adapter.Info{Name: "stub", Provider: "stub"} }
func (w *writerAdapter) IsAvailable(ctx context.Context) bool { return true }
func (w *writerAdapter) Invoke(ctx context.Context, path, workingDir string, deadline time.Duration) (adapter.Result, error) {
	if w.fail {
		return adapter.Result{Success: false, ErrorKind: adapter.ErrContextExceeded}, nil
	}
	if err := os.WriteFile(filepath.Join(workingDir, path), []byte(w.content), 0o644); err != nil {
		return adapter.Result{Success: false, ErrorKind: adapter.ErrAPI}, err
	}
	return adapter.Result{Success: true, ErrorKind: adapter.ErrNone}, nil
}

func newTestChain(t *testing.T, a adapter.Adapter) *fallback.Chain {
	t.Helper()
	ledger, err := ratelimit.New(filepath.Join(t.TempDir(), "ledger.json"))
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}
	return fallback.NewChain(adapter.RoleExecutor, []adapter.Adapter{a}, ledger, ratelimit.NewBreakerBank(), nil)
}

func TestExecuteGeneratesAndValidatesFile(t *testing.T) {
	workDir := t.TempDir()
	chain := newTestChain(t, &writerAdapter{content: "package main\n\nfunc main() {}\n"})

	s := &Scheduler{
		Concurrency: 2,
		Executor:    chain,
		Validator:   validate.New(),
		PromptFor:   func(fp FilePlan, feedback string) string { return fp.Path },
		Deadline:    time.Second,
	}

	plan := []FilePlan{{Path: "main.go", Action: state.ActionCreate}}
	results := s.Execute(context.Background(), plan, workDir)

	r, ok := results["main.go"]
	if !ok {
		t.Fatalf("expected a result for main.go")
	}
	if r.Status != state.StatusGenerated {
		t.Fatalf("expected generated, got %v (errors=%v)", r.Status, r.ValidationResult)
	}
}

func TestExecuteRejectsInvalidSyntax(t *testing.T) {
	workDir := t.TempDir()
	chain := newTestChain(t, &writerAdapter{content: "package main\n\nfunc main( {\n"})

	s := &Scheduler{
		Executor:  chain,
		Validator: validate.New(),
		PromptFor: func(fp FilePlan, feedback string) string { return fp.Path },
		Deadline:  time.Second,
	}

	plan := []FilePlan{{Path: "broken.go", Action: state.ActionCreate}}
	results := s.Execute(context.Background(), plan, workDir)

	if results["broken.go"].Status != state.StatusRejected {
		t.Fatalf("expected rejected, got %v", results["broken.go"].Status)
	}
}

func TestExecuteMarksContextExceededRecoverable(t *testing.T) {
	workDir := t.TempDir()
	chain := newTestChain(t, &writerAdapter{fail: true})

	s := &Scheduler{
		Executor:  chain,
		Validator: validate.New(),
		PromptFor: func(fp FilePlan, feedback string) string { return fp.Path },
		Deadline:  time.Second,
	}

	plan := []FilePlan{{Path: "huge.go", Action: state.ActionCreate}}
	results := s.Execute(context.Background(), plan, workDir)

	r := results["huge.go"]
	if r.Status != state.StatusFailed || !r.Recoverable {
		t.Fatalf("expected failed+recoverable, got %+v", r)
	}
}

func TestExecuteRunsAuditHookInPipelineMode(t *testing.T) {
	workDir := t.TempDir()
	chain := newTestChain(t, &writerAdapter{content: "package main\n\nfunc main() {}\n"})

	var auditCalls int32
	s := &Scheduler{
		Pipeline:  true,
		Executor:  chain,
		Validator: validate.New(),
		PromptFor: func(fp FilePlan, feedback string) string { return fp.Path },
		AuditHook: func(ctx context.Context, fp FilePlan) error {
			atomic.AddInt32(&auditCalls, 1)
			return nil
		},
		Deadline: time.Second,
	}

	plan := []FilePlan{{Path: "main.go", Action: state.ActionCreate}}
	results := s.Execute(context.Background(), plan, workDir)

	if !results["main.go"].AuditStarted {
		t.Fatalf("expected AuditStarted to be true in pipeline mode")
	}
	if atomic.LoadInt32(&auditCalls) != 1 {
		t.Fatalf("expected audit hook to run once, got %d", auditCalls)
	}
}

func TestExecuteRespectsConcurrencyCeiling(t *testing.T) {
	workDir := t.TempDir()
	chain := newTestChain(t, &writerAdapter{content: "x: 1\n"})

	s := &Scheduler{
		Concurrency: 10, // more than len(plan); Execute should clamp
		Executor:    chain,
		Validator:   validate.New(),
		PromptFor:   func(fp FilePlan, feedback string) string { return fp.Path },
		Deadline:    time.Second,
	}

	plan := []FilePlan{{Path: "a.yaml", Action: state.ActionCreate}, {Path: "b.yaml", Action: state.ActionCreate}}
	results := s.Execute(context.Background(), plan, workDir)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for path, r := range results {
		if r.Status != state.StatusGenerated {
			t.Fatalf("expected %s generated, got %v", path, r.Status)
		}
	}
}
