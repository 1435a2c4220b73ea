package experience

import (
	"path/filepath"
	"testing"
	"time"
)

func sampleExperience(reward float64) Experience {
	return Experience{
		Action:    Action{Strategy: "default"},
		Reward:    reward,
		Timestamp: time.Unix(0, 0),
	}
}

func TestAppendAndStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experience.jsonl")
	buf, err := New(path, 100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := buf.Append(sampleExperience(10)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := buf.Append(sampleExperience(-5)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	stats := buf.Stats()
	if stats.Total != 2 {
		t.Fatalf("expected 2 entries, got %d", stats.Total)
	}
	if stats.MeanReward != 2.5 {
		t.Fatalf("expected mean reward 2.5, got %v", stats.MeanReward)
	}
	if stats.SuccessRate != 0.5 {
		t.Fatalf("expected success rate 0.5, got %v", stats.SuccessRate)
	}
}

func TestWindowPrunesOldestPastCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experience.jsonl")
	buf, err := New(path, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := buf.Append(sampleExperience(float64(i))); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	window := buf.Window()
	if len(window) != 2 {
		t.Fatalf("expected window capped at 2, got %d", len(window))
	}
	if window[0].Reward != 3 || window[1].Reward != 4 {
		t.Fatalf("expected window to hold the two most recent entries, got %+v", window)
	}
}

func TestReloadRestoresWindowFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experience.jsonl")
	buf, err := New(path, 100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := buf.Append(sampleExperience(7)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	reloaded, err := New(path, 100)
	if err != nil {
		t.Fatalf("reload New: %v", err)
	}
	if len(reloaded.Window()) != 1 {
		t.Fatalf("expected 1 entry after reload, got %d", len(reloaded.Window()))
	}
}

func TestClearRemovesHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experience.jsonl")
	buf, err := New(path, 100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := buf.Append(sampleExperience(1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := buf.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(buf.Window()) != 0 {
		t.Fatalf("expected empty window after Clear")
	}

	reloaded, err := New(path, 100)
	if err != nil {
		t.Fatalf("reload New after clear: %v", err)
	}
	if len(reloaded.Window()) != 0 {
		t.Fatalf("expected empty window on reload after Clear")
	}
}
