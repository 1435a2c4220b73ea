package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andywolf/orchestra/internal/adapter"
	"github.com/andywolf/orchestra/internal/fallback"
	"github.com/andywolf/orchestra/internal/ratelimit"
	"github.com/andywolf/orchestra/internal/scheduler"
	"github.com/andywolf/orchestra/internal/state"
	"github.com/andywolf/orchestra/internal/validate"
)

// scriptedAdapter is a minimal adapter.Adapter fake whose Invoke writes a
// fixed file (when path is non-empty) and returns a fixed Result.
type scriptedAdapter struct {
	provider  string
	writePath string
	writeBody string
	result    adapter.Result
}

func (s *scriptedAdapter) Info() adapter.Info { return adapter.Info{Name: s.provider, Provider: s.provider} }
func (s *scriptedAdapter) IsAvailable(ctx context.Context) bool { return true }
func (s *scriptedAdapter) Invoke(ctx context.Context, prompt, workingDir string, deadline time.Duration) (adapter.Result, error) {
	if s.writePath != "" {
		if err := os.WriteFile(filepath.Join(workingDir, s.writePath), []byte(s.writeBody), 0o644); err != nil {
			return adapter.Result{}, err
		}
	}
	return s.result, nil
}

func newChain(t *testing.T, role adapter.Role, a adapter.Adapter) *fallback.Chain {
	t.Helper()
	ledger, err := ratelimit.New(filepath.Join(t.TempDir(), "ledger.json"))
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}
	return fallback.NewChain(role, []adapter.Adapter{a}, ledger, ratelimit.NewBreakerBank(), nil)
}

func TestRunCompletesOnFirstApprovedAudit(t *testing.T) {
	workDir := t.TempDir()

	architect := newChain(t, adapter.RoleArchitect, &scriptedAdapter{
		provider:  "glm",
		writePath: ".orchestra/plan",
		writeBody: "CREATE main.go\n",
		result:    adapter.Result{Success: true, ErrorKind: adapter.ErrNone},
	})
	executor := newChain(t, adapter.RoleExecutor, &scriptedAdapter{
		provider:  "codex",
		writePath: "main.go",
		writeBody: "package main\n\nfunc main() {}\n",
		result:    adapter.Result{Success: true, ErrorKind: adapter.ErrNone},
	})
	auditor := newChain(t, adapter.RoleAuditor, &scriptedAdapter{
		provider:  "glm",
		writePath: ".orchestra/audit",
		writeBody: "APPROVED\nlooks good\n",
		result:    adapter.Result{Success: true, ErrorKind: adapter.ErrNone},
	})
	consultant := newChain(t, adapter.RoleConsultant, &scriptedAdapter{
		result: adapter.Result{Success: true, ErrorKind: adapter.ErrNone},
	})

	manager := state.NewManager(workDir)
	o := New(workDir, manager, architect, executor, auditor, consultant, validate.New(), DefaultConfig())

	sched := &scheduler.Scheduler{Executor: executor, Validator: validate.New()}

	sess, err := o.Run(context.Background(), "build a hello world", sched)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.Phase != state.PhaseCompleted {
		t.Fatalf("expected completed, got %v (lastError=%s)", sess.Phase, sess.LastError)
	}
	if len(sess.Files) != 1 || sess.Files[0].Status != state.StatusGenerated {
		t.Fatalf("expected one generated file, got %+v", sess.Files)
	}
}

func TestRunFailsSessionWhenPlanMissing(t *testing.T) {
	workDir := t.TempDir()

	architect := newChain(t, adapter.RoleArchitect, &scriptedAdapter{
		result: adapter.Result{Success: true, ErrorKind: adapter.ErrNone}, // no plan file written
	})
	executor := newChain(t, adapter.RoleExecutor, &scriptedAdapter{result: adapter.Result{Success: true, ErrorKind: adapter.ErrNone}})
	auditor := newChain(t, adapter.RoleAuditor, &scriptedAdapter{result: adapter.Result{Success: true, ErrorKind: adapter.ErrNone}})
	consultant := newChain(t, adapter.RoleConsultant, &scriptedAdapter{result: adapter.Result{Success: true, ErrorKind: adapter.ErrNone}})

	manager := state.NewManager(workDir)
	o := New(workDir, manager, architect, executor, auditor, consultant, validate.New(), DefaultConfig())
	sched := &scheduler.Scheduler{Executor: executor, Validator: validate.New()}

	_, err := o.Run(context.Background(), "build something", sched)
	if err == nil {
		t.Fatalf("expected PlanMissing error")
	}

	sess := manager.Session()
	if !sess.Fatal {
		t.Fatalf("expected session marked fatal")
	}
}

func TestParsePlanExtractsCreateAndModify(t *testing.T) {
	plan := "Intro prose.\n\nCREATE main.go\n# a comment\nMODIFY README.md\nmore prose\n"
	files := ParsePlan(plan)
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %+v", len(files), files)
	}
	if files[0].Path != "main.go" || files[0].Action != state.ActionCreate {
		t.Fatalf("unexpected first entry: %+v", files[0])
	}
	if files[1].Path != "README.md" || files[1].Action != state.ActionModify {
		t.Fatalf("unexpected second entry: %+v", files[1])
	}
}

func TestParseAuditVerdictFailsClosedOnMalformedOutput(t *testing.T) {
	v := parseAuditVerdict("this is not a verdict")
	if v.Verdict != VerdictNeedsWork || !v.Malformed {
		t.Fatalf("expected fail-closed NEEDS_WORK, got %+v", v)
	}
}
