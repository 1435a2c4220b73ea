package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andywolf/orchestra/internal/state"
)

func TestArchiveThenList(t *testing.T) {
	workDir := t.TempDir()

	sess := &state.Session{
		SessionID: "sess-1",
		Task:      "add retries",
		Phase:     state.PhaseCompleted,
		Iteration: 2,
		StartTime: time.Now().Add(-time.Hour),
	}
	if err := Archive(workDir, sess); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	path := filepath.Join(workDir, ".orchestra", "sessions", "sess-1", "state.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected archived state file at %s: %v", path, err)
	}

	summaries, err := List(workDir, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].SessionID != "sess-1" || summaries[0].Task != "add retries" {
		t.Fatalf("unexpected summary: %+v", summaries[0])
	}
}

func TestListOnEmptyWorkspaceReturnsNil(t *testing.T) {
	summaries, err := List(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if summaries != nil {
		t.Fatalf("expected nil summaries, got %+v", summaries)
	}
}

func TestListOrdersNewestFirstAndRespectsLimit(t *testing.T) {
	workDir := t.TempDir()
	base := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		sess := &state.Session{
			SessionID: id,
			Task:      "task-" + id,
			Phase:     state.PhaseCompleted,
			StartTime: base.Add(time.Duration(i) * time.Minute),
		}
		if err := Archive(workDir, sess); err != nil {
			t.Fatalf("Archive(%s): %v", id, err)
		}
	}

	summaries, err := List(workDir, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries with limit, got %d", len(summaries))
	}
	if summaries[0].SessionID != "c" || summaries[1].SessionID != "b" {
		t.Fatalf("expected newest-first order [c b], got [%s %s]", summaries[0].SessionID, summaries[1].SessionID)
	}
}

func TestCleanRemovesScratchButPreservesHistory(t *testing.T) {
	workDir := t.TempDir()
	orchestraDir := filepath.Join(workDir, ".orchestra")
	if err := os.MkdirAll(filepath.Join(orchestraDir, "checkpoints", "001-plan"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"state.json", "plan", "audit"} {
		if err := os.WriteFile(filepath.Join(orchestraDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	rateLimitsPath := filepath.Join(orchestraDir, "rate-limits.json")
	if err := os.WriteFile(rateLimitsPath, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Archive(workDir, &state.Session{SessionID: "sess-1", Phase: state.PhaseCompleted}); err != nil {
		t.Fatal(err)
	}

	if err := Clean(workDir); err != nil {
		t.Fatalf("Clean: %v", err)
	}

	if _, err := os.Stat(filepath.Join(orchestraDir, "state.json")); !os.IsNotExist(err) {
		t.Fatalf("expected state.json removed, got err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(orchestraDir, "checkpoints")); !os.IsNotExist(err) {
		t.Fatalf("expected checkpoints/ removed, got err=%v", err)
	}
	if _, err := os.Stat(rateLimitsPath); err != nil {
		t.Fatalf("expected rate-limits.json preserved: %v", err)
	}
	if _, err := os.Stat(filepath.Join(orchestraDir, "sessions", "sess-1", "state.json")); err != nil {
		t.Fatalf("expected archived history preserved: %v", err)
	}
}
