// Package experience implements the Experience Buffer (spec.md §4.7):
// a bounded append-only record of (state, action, reward) tuples, with a
// rolling in-memory window over a full on-disk history.
package experience

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/andywolf/orchestra/internal/reward"
)

// State is the normalized feature vector over the task (spec.md §4.7).
// Fixed-width; fields beyond what the task supplies are left at their zero
// value.
type State struct {
	TaskTypeOneHot    [13]float64 `json:"taskTypeOneHot"`
	DomainOneHot      [9]float64  `json:"domainOneHot"`
	Complexity        float64     `json:"complexity"` // ordinal: simple=0, medium=0.5, complex=1
	Risk              float64     `json:"risk"`        // ordinal: low=0, medium=0.5, high=1
	EstimatedTimeNorm float64     `json:"estimatedTimeNorm"`
	DomainDiversity   float64     `json:"domainDiversity"`
	SkillCount        float64     `json:"skillCount"`
	HistoricalSuccessRate float64 `json:"historicalSuccessRate"`
	TimeAccuracy      float64     `json:"timeAccuracy"`
	ResourceEfficiency float64    `json:"resourceEfficiency"`
	ConcurrentTasks   float64     `json:"concurrentTasks"`
	SystemLoad        float64     `json:"systemLoad"`
	AgentAvailability []float64   `json:"agentAvailability"`
}

// Action records which adapters/strategy were selected for the task.
type Action struct {
	Strategy string   `json:"strategy"`
	Adapters []string `json:"adapters"`
}

// Experience is one (state, action, reward) tuple.
type Experience struct {
	State     State            `json:"state"`
	Action    Action           `json:"action"`
	Reward    float64          `json:"reward"`
	Done      bool             `json:"done"`
	Metadata  reward.Breakdown `json:"metadata"`
	Timestamp time.Time        `json:"timestamp"`
}

// Stats summarizes the buffer's contents.
type Stats struct {
	Total       int                `json:"total"`
	MeanReward  float64            `json:"meanReward"`
	SuccessRate float64            `json:"successRate"`
	ByTaskType  map[string]int     `json:"byTaskType"`
	ByDomain    map[string]int     `json:"byDomain"`
}

// Buffer is the process-wide Experience Buffer singleton: append-only
// line-delimited JSON on disk plus a rolling in-memory window, grounded on
// andymwolf-agentium/internal/memory/store.go's Load/Update/prune pattern,
// generalized from free-text Signal entries to {state,action,reward}
// tuples.
type Buffer struct {
	mu       sync.Mutex
	path     string
	window   []Experience
	maxWindow int
}

// New constructs a Buffer backed by the JSONL file at path, with a rolling
// window capped at maxWindow entries (spec.md default 10000).
func New(path string, maxWindow int) (*Buffer, error) {
	if maxWindow <= 0 {
		maxWindow = 10000
	}
	b := &Buffer{path: path, maxWindow: maxWindow}
	if err := b.loadWindow(); err != nil {
		return nil, err
	}
	return b, nil
}

// Append adds exp to the on-disk history and the in-memory window,
// dropping the oldest window entry if the cap is exceeded.
func (b *Buffer) Append(exp Experience) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.appendDisk(exp); err != nil {
		return err
	}

	b.window = append(b.window, exp)
	if len(b.window) > b.maxWindow {
		b.window = b.window[len(b.window)-b.maxWindow:]
	}
	return nil
}

func (b *Buffer) appendDisk(exp Experience) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create experience dir: %w", err)
	}
	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open experience log: %w", err)
	}
	defer f.Close()

	raw, err := json.Marshal(exp)
	if err != nil {
		return fmt.Errorf("marshal experience: %w", err)
	}
	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("append experience: %w", err)
	}
	return f.Sync()
}

// loadWindow reads the tail of the on-disk log (up to maxWindow entries)
// into the in-memory window on startup.
func (b *Buffer) loadWindow() error {
	f, err := os.Open(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open experience log: %w", err)
	}
	defer f.Close()

	var all []Experience
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var exp Experience
		if err := json.Unmarshal(scanner.Bytes(), &exp); err != nil {
			continue // skip a corrupted line rather than fail the whole load
		}
		all = append(all, exp)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan experience log: %w", err)
	}

	if len(all) > b.maxWindow {
		all = all[len(all)-b.maxWindow:]
	}
	b.window = all
	return nil
}

// Stats computes summary statistics over the in-memory window.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := Stats{ByTaskType: map[string]int{}, ByDomain: map[string]int{}}
	if len(b.window) == 0 {
		return stats
	}

	var totalReward float64
	successes := 0
	for _, exp := range b.window {
		totalReward += exp.Reward
		if exp.Reward > 0 {
			successes++
		}
		stats.ByTaskType[exp.Action.Strategy]++
	}

	stats.Total = len(b.window)
	stats.MeanReward = totalReward / float64(stats.Total)
	stats.SuccessRate = float64(successes) / float64(stats.Total)
	return stats
}

// Export copies the full on-disk history to destPath.
func (b *Buffer) Export(destPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	raw, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read experience log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	return os.WriteFile(destPath, raw, 0o644)
}

// Clear removes the on-disk history and resets the in-memory window.
func (b *Buffer) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.window = nil
	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear experience log: %w", err)
	}
	return nil
}

// Window returns a copy of the current in-memory rolling window.
func (b *Buffer) Window() []Experience {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Experience, len(b.window))
	copy(out, b.window)
	return out
}
