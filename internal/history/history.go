// Package history implements the session history index backing the
// `history`/`clean` CLI commands (spec.md §6): a snapshot of each
// terminated session's state file under .orchestra/sessions/<sessionId>/,
// grounded on andymwolf-agentium/internal/memory/store.go's
// load-whole-document-then-write-sibling-file archival style.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/andywolf/orchestra/internal/fsutil"
	"github.com/andywolf/orchestra/internal/state"
)

// Summary is one archived session's listing row.
type Summary struct {
	SessionID string      `json:"sessionId"`
	Task      string      `json:"task"`
	Phase     state.Phase `json:"phase"`
	StartTime time.Time   `json:"startTime"`
	Iteration int         `json:"iteration"`
}

func sessionsDir(workDir string) string {
	return filepath.Join(workDir, ".orchestra", "sessions")
}

// Archive snapshots sess's state file under .orchestra/sessions/<sessionId>/
// so it survives a future Start overwriting .orchestra/state.json.
func Archive(workDir string, sess *state.Session) error {
	if sess == nil {
		return nil
	}
	raw, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session for history: %w", err)
	}
	dest := filepath.Join(sessionsDir(workDir), sess.SessionID, "state.json")
	return fsutil.WriteAtomic(dest, raw)
}

// List returns up to limit archived sessions, most recent first. limit<=0
// means no cap.
func List(workDir string, limit int) ([]Summary, error) {
	entries, err := os.ReadDir(sessionsDir(workDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var summaries []Summary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(sessionsDir(workDir), e.Name(), "state.json"))
		if err != nil {
			continue
		}
		var sess state.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			continue
		}
		summaries = append(summaries, Summary{
			SessionID: sess.SessionID,
			Task:      sess.Task,
			Phase:     sess.Phase,
			StartTime: sess.StartTime,
			Iteration: sess.Iteration,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartTime.After(summaries[j].StartTime)
	})

	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// Clean removes the session scratch (.orchestra/state.json, the role
// scratch files, and checkpoints/) but preserves the rate ledger and the
// archived sessions/ history index (spec.md §6's `clean`).
func Clean(workDir string) error {
	base := filepath.Join(workDir, ".orchestra")
	for _, name := range []string{"state.json", "plan", "audit", "help-needed", "solution"} {
		if err := os.Remove(filepath.Join(base, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	if err := os.RemoveAll(filepath.Join(base, "checkpoints")); err != nil {
		return fmt.Errorf("remove checkpoints: %w", err)
	}
	return nil
}
