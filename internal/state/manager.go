package state

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andywolf/orchestra/internal/fsutil"
)

// Manager is the State Manager (spec.md §4.4): durable session file +
// append-only checkpoint log + workflow-step ledger, rooted under a fixed
// per-workspace directory (.orchestra/), grounded on
// andymwolf-agentium/internal/memory/store.go's load/mutate/save shape but
// hardened to whole-document fsync-then-rename writes (fsutil.WriteAtomic).
type Manager struct {
	mu        sync.Mutex
	workDir   string
	sessPath  string
	checkptDir string
	session   *Session
}

// NewManager constructs a Manager rooted at workDir/.orchestra.
func NewManager(workDir string) *Manager {
	base := filepath.Join(workDir, ".orchestra")
	return &Manager{
		workDir:    workDir,
		sessPath:   filepath.Join(base, "state.json"),
		checkptDir: filepath.Join(base, "checkpoints"),
	}
}

// Init starts a fresh session for task, per spec.md §4.9's entry invariants:
// iteration=1, globalMetrics zeroed, scratch empty.
func (m *Manager) Init(task string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.session = &Session{
		SessionID:    uuid.NewString(),
		Task:         task,
		Phase:        PhaseInit,
		Iteration:    1,
		StartTime:    now,
		LastActivity: now,
		Files:        []File{},
		Workflow:     []WorkflowStep{},
		Checkpoints:  []Checkpoint{},
		CanResume:    true,
	}
	return m.session, m.persistLocked()
}

// Load reads the session file from .orchestra/state.json. If absent,
// returns (nil, nil) — there is nothing to resume.
func (m *Manager) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := os.ReadFile(m.sessPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	m.session = &sess
	return &sess, nil
}

// CanResume reports true iff session state exists, lastError is not marked
// fatal, and phase is not completed/max_iterations.
func (m *Manager) CanResume() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return false
	}
	if m.session.Fatal {
		return false
	}
	switch m.session.Phase {
	case PhaseCompleted, PhaseMaxIter:
		return false
	}
	return m.session.CanResume
}

// SetPhase transitions the session to phase and persists.
func (m *Manager) SetPhase(phase Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return fmt.Errorf("state: no active session")
	}
	m.session.Phase = phase
	m.session.LastActivity = time.Now()
	return m.persistLocked()
}

// SetIteration updates the current iteration count and persists.
func (m *Manager) SetIteration(n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return fmt.Errorf("state: no active session")
	}
	m.session.Iteration = n
	m.session.LastActivity = time.Now()
	return m.persistLocked()
}

// AppendWorkflowStep appends step to the workflow ledger. Steps are
// append-only and never edited once appended.
func (m *Manager) AppendWorkflowStep(step WorkflowStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return fmt.Errorf("state: no active session")
	}
	m.session.Workflow = append(m.session.Workflow, step)
	for _, a := range step.Attempts {
		m.session.GlobalMetrics.Record(a)
	}
	m.session.LastActivity = time.Now()
	return m.persistLocked()
}

// UpsertFile replaces the File with matching Path, or appends it if new.
func (m *Manager) UpsertFile(f File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return fmt.Errorf("state: no active session")
	}
	for i := range m.session.Files {
		if m.session.Files[i].Path == f.Path {
			m.session.Files[i] = f
			return m.persistLocked()
		}
	}
	m.session.Files = append(m.session.Files, f)
	return m.persistLocked()
}

// MarkLastError records a non-fatal or fatal error against the session.
func (m *Manager) MarkLastError(msg string, fatal bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return fmt.Errorf("state: no active session")
	}
	m.session.LastError = msg
	m.session.Fatal = fatal
	if fatal {
		m.session.CanResume = false
	}
	return m.persistLocked()
}

// CreateCheckpoint snapshots the scratch files named in copiedPaths into
// .orchestra/checkpoints/{id-label}/, and records a Checkpoint entry.
func (m *Manager) CreateCheckpoint(label string, copiedPaths []string) (Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Checkpoint{}, fmt.Errorf("state: no active session")
	}

	id := fmt.Sprintf("%03d", len(m.session.Checkpoints)+1)
	dest := filepath.Join(m.checkptDir, id+"-"+label)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return Checkpoint{}, fmt.Errorf("create checkpoint dir: %w", err)
	}

	for _, src := range copiedPaths {
		if err := copyFile(src, filepath.Join(dest, filepath.Base(src))); err != nil {
			return Checkpoint{}, fmt.Errorf("copy checkpoint file %s: %w", src, err)
		}
	}

	cp := Checkpoint{
		ID:          id,
		Phase:       m.session.Phase,
		Label:       label,
		CopiedPaths: copiedPaths,
		CreatedAt:   time.Now(),
	}
	m.session.Checkpoints = append(m.session.Checkpoints, cp)
	return cp, m.persistLocked()
}

// LatestApprovedCheckpoint returns the most recently created checkpoint, or
// false if none exist (used by the revert path).
func (m *Manager) LatestApprovedCheckpoint() (Checkpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || len(m.session.Checkpoints) == 0 {
		return Checkpoint{}, false
	}
	return m.session.Checkpoints[len(m.session.Checkpoints)-1], true
}

// CheckpointDir returns the directory holding a checkpoint's copied files.
func (m *Manager) CheckpointDir(cp Checkpoint) string {
	return filepath.Join(m.checkptDir, cp.ID+"-"+cp.Label)
}

// RestoreCheckpoint copies cp's snapshotted files back over their original
// paths, used by the RECOVERY-to-REVERTED escalation path (spec.md §4.9).
func (m *Manager) RestoreCheckpoint(cp Checkpoint) error {
	dir := m.CheckpointDir(cp)
	for _, original := range cp.CopiedPaths {
		src := filepath.Join(dir, filepath.Base(original))
		if err := copyFile(src, original); err != nil {
			return fmt.Errorf("restore checkpoint file %s: %w", original, err)
		}
	}
	return nil
}

// Clear removes the whole .orchestra/ directory, including the rate ledger
// and archived sessions. The `clean` CLI command does not call it; it uses
// history.Clean, which keeps those.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	base := filepath.Dir(m.sessPath)
	if err := os.RemoveAll(base); err != nil {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}

// Session returns the current in-memory session document.
func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *Manager) persistLocked() error {
	raw, err := json.MarshalIndent(m.session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return fsutil.WriteAtomic(m.sessPath, raw)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
