package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	sess, err := m.Init("create hello.py")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if sess.Iteration != 1 || sess.Phase != PhaseInit {
		t.Fatalf("unexpected initial session: %+v", sess)
	}

	reloaded := NewManager(dir)
	loaded, err := reloaded.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || loaded.SessionID != sess.SessionID {
		t.Fatalf("expected reloaded session to match, got %+v", loaded)
	}
}

func TestCanResumeRules(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	if _, err := m.Init("task"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if !m.CanResume() {
		t.Fatalf("expected fresh session to be resumable")
	}

	if err := m.SetPhase(PhaseCompleted); err != nil {
		t.Fatalf("SetPhase: %v", err)
	}
	if m.CanResume() {
		t.Fatalf("expected completed session to not be resumable")
	}
}

func TestAppendWorkflowStepUpdatesGlobalMetrics(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	if _, err := m.Init("task"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	step := WorkflowStep{
		ID:        "step-1",
		AgentRole: RoleExecutor,
		Status:    StepCompleted,
		Attempts: []Attempt{
			{Provider: "codex", Role: RoleExecutor, Success: true, TokensUsed: 100, LatencyMs: 500, ErrorCode: ErrorNone},
		},
	}
	if err := m.AppendWorkflowStep(step); err != nil {
		t.Fatalf("AppendWorkflowStep: %v", err)
	}

	sess := m.Session()
	if sess.GlobalMetrics.TotalAttempts != 1 || sess.GlobalMetrics.SuccessfulAttempts != 1 {
		t.Fatalf("unexpected metrics: %+v", sess.GlobalMetrics)
	}
	if len(sess.Workflow) != 1 {
		t.Fatalf("expected one workflow step, got %d", len(sess.Workflow))
	}
}

func TestCheckpointCreateAndRestore(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	if _, err := m.Init("task"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	scratchFile := filepath.Join(dir, "plan.md")
	if err := os.WriteFile(scratchFile, []byte("original plan"), 0o644); err != nil {
		t.Fatalf("write scratch file: %v", err)
	}

	cp, err := m.CreateCheckpoint("planning", []string{scratchFile})
	if err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}
	if cp.ID != "001" {
		t.Fatalf("expected first checkpoint id 001, got %s", cp.ID)
	}

	if err := os.WriteFile(scratchFile, []byte("mutated plan"), 0o644); err != nil {
		t.Fatalf("mutate scratch file: %v", err)
	}

	if err := m.RestoreCheckpoint(cp); err != nil {
		t.Fatalf("RestoreCheckpoint: %v", err)
	}

	restored, err := os.ReadFile(scratchFile)
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if string(restored) != "original plan" {
		t.Fatalf("expected restored content, got %q", restored)
	}
}

func TestClearRemovesSessionState(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	if _, err := m.Init("task"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	reloaded := NewManager(dir)
	loaded, err := reloaded.Load()
	if err != nil {
		t.Fatalf("Load after Clear: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected no session after Clear, got %+v", loaded)
	}
}
