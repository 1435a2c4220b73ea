// Package session implements the Session Driver (spec.md §4.10): the single
// run(task, overrides) -> Outcome entry point that resolves config, guards
// against clobbering a resumable session, wires every component together,
// runs the Phase Orchestrator, and folds the result into a reward and an
// Experience. Grounded on andymwolf-agentium's internal/controller package,
// which plays the same top-level-wiring role for the teacher's own
// iteration loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andywolf/orchestra/internal/adapter"
	_ "github.com/andywolf/orchestra/internal/adapter/claude"
	_ "github.com/andywolf/orchestra/internal/adapter/codex"
	_ "github.com/andywolf/orchestra/internal/adapter/gemini"
	_ "github.com/andywolf/orchestra/internal/adapter/glm"
	_ "github.com/andywolf/orchestra/internal/adapter/vision"
	"github.com/andywolf/orchestra/internal/cloudlog"
	"github.com/andywolf/orchestra/internal/config"
	"github.com/andywolf/orchestra/internal/experience"
	"github.com/andywolf/orchestra/internal/fallback"
	"github.com/andywolf/orchestra/internal/gitintegration"
	"github.com/andywolf/orchestra/internal/history"
	"github.com/andywolf/orchestra/internal/orchestra"
	"github.com/andywolf/orchestra/internal/orchestrator"
	"github.com/andywolf/orchestra/internal/ratelimit"
	"github.com/andywolf/orchestra/internal/reward"
	"github.com/andywolf/orchestra/internal/scheduler"
	"github.com/andywolf/orchestra/internal/state"
	"github.com/andywolf/orchestra/internal/validate"
)

// ErrResumableSessionExists is returned by Start when a prior session in
// the workspace can still be resumed; the caller must invoke Resume.
var ErrResumableSessionExists = errors.New("session: a resumable session already exists, run 'resume' instead")

// ErrNoResumableSession is returned by Resume when the workspace has no
// session left to continue.
var ErrNoResumableSession = errors.New("session: no resumable session found")

// Status classifies how a session ended (spec.md §6's exit-code table: 0=ok,
// 1=task-failed, 3=cancelled; a setup error, exit 2, never reaches Outcome
// at all — it surfaces as Start/Resume's error return instead).
type Status string

const (
	StatusOK        Status = "ok"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Outcome is the Session Driver's contract result (spec.md §4.10). Per
// spec.md §7's propagation policy, the Driver never raises a task failure
// to its caller as a Go error — ExhaustedProviders, PlanMissing, and
// StateCorrupted are folded into Status/Reason here instead. Only setup
// errors (bad config, an unopenable rate ledger/cache/experience file)
// are returned as an error alongside a nil Outcome.
type Outcome struct {
	Session   *state.Session
	Status    Status
	Reason    string
	Reward    float64
	Breakdown reward.Breakdown
}

// Driver wires every component into one run(task, overrides) -> Outcome
// call for one workspace.
type Driver struct {
	WorkDir string
}

// New constructs a Driver rooted at workDir (the directory containing, or
// to contain, .orchestra/).
func New(workDir string) *Driver {
	return &Driver{WorkDir: workDir}
}

// Start begins a fresh session for task. It refuses (silently, by
// returning ErrResumableSessionExists rather than overwriting anything) if
// a prior session in this workspace can still be resumed — spec.md §4.10
// step 2 requires the caller to explicitly invoke Resume instead.
func (d *Driver) Start(ctx context.Context, task string, opts ...config.Option) (*Outcome, error) {
	manager := state.NewManager(d.WorkDir)
	if _, err := manager.Load(); err != nil {
		return nil, fmt.Errorf("session: load existing session: %w", err)
	}
	if manager.CanResume() {
		return nil, ErrResumableSessionExists
	}
	return d.run(ctx, manager, task, opts...)
}

// Resume continues the most recently interrupted resumable session.
//
// Limitation: the Phase Orchestrator's entry invariants (spec.md §4.9:
// iteration=1, globalMetrics zeroed on every Run) mean this re-executes
// the original task from PLANNING rather than continuing mid-phase; true
// mid-phase continuation would require the orchestrator to accept an
// already-loaded Session instead of always Init-ing fresh, which is not
// yet built. Resume therefore recovers the task description and restarts
// it cleanly, which is still strictly better than losing the task text.
func (d *Driver) Resume(ctx context.Context, opts ...config.Option) (*Outcome, error) {
	manager := state.NewManager(d.WorkDir)
	sess, err := manager.Load()
	if err != nil {
		return nil, fmt.Errorf("session: load for resume: %w", err)
	}
	if sess == nil || !manager.CanResume() {
		return nil, ErrNoResumableSession
	}
	return d.run(ctx, manager, sess.Task, opts...)
}

func (d *Driver) run(ctx context.Context, manager *state.Manager, task string, opts ...config.Option) (*Outcome, error) {
	cfg, o, sched, err := d.wire(manager, opts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sess, runErr := o.Run(ctx, task, sched)

	outcome, err := d.finalize(cfg, sess, runErr, start)
	if err != nil {
		return nil, err
	}

	if outcome.Status != StatusCancelled {
		if err := history.Archive(d.WorkDir, sess); err != nil {
			logger := cloudlog.New(ctx, sess.SessionID)
			logger.Warnf("session history archive failed: %v", err)
		}
	}

	if outcome.Status == StatusOK && cfg.Git.AutoCommit {
		if err := gitintegration.Commit(ctx, d.WorkDir, task, cfg.Git.CommitMessageTemplate); err != nil {
			logger := cloudlog.New(ctx, sess.SessionID)
			logger.Warnf("git auto-commit failed: %v", err)
		}
	}

	return outcome, nil
}

// DryRun runs the Architect only and returns its plan text, bypassing
// state-machine iteration, checkpoints, reward capture, and git auto-commit
// entirely (spec.md §6's `dry-run <task>`).
func (d *Driver) DryRun(ctx context.Context, task string, opts ...config.Option) (string, error) {
	manager := state.NewManager(d.WorkDir)
	_, o, _, err := d.wire(manager, opts...)
	if err != nil {
		return "", err
	}
	return o.DryRun(ctx, task)
}

// wire resolves config and constructs the Rate Ledger, Response Cache,
// Fallback Chains, Validator, File Scheduler, and Phase Orchestrator shared
// by every entry point that needs to actually invoke adapters.
func (d *Driver) wire(manager *state.Manager, opts ...config.Option) (*config.Config, *orchestrator.Orchestrator, *scheduler.Scheduler, error) {
	cfg, err := config.Load(d.WorkDir, opts...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("session: load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("session: invalid config: %w", err)
	}

	// The State Manager normally creates .orchestra/ on its first write, but
	// the Rate Ledger and Response Cache below are opened before that
	// happens, so the directory has to exist upfront for them.
	if err := os.MkdirAll(filepath.Join(d.WorkDir, ".orchestra"), 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("session: create .orchestra dir: %w", err)
	}

	ledger, err := ratelimit.New(filepath.Join(d.WorkDir, ".orchestra", "rate-limits.json"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("session: open rate ledger: %w", err)
	}
	breakers := ratelimit.NewBreakerBank()

	var cache *adapter.ResponseCache
	if cfg.TUI.CacheEnabled {
		cache, err = adapter.OpenResponseCache(filepath.Join(d.WorkDir, ".orchestra", "response-cache.db"))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("session: open response cache: %w", err)
		}
	}

	architect, executor, auditor, consultant, err := buildChains(ledger, breakers, cache)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("session: build adapter chains: %w", err)
	}
	validator := validate.New()

	phaseCfg := cfg.ToPhaseConfig()
	o := orchestrator.New(d.WorkDir, manager, architect, executor, auditor, consultant, validator, phaseCfg)
	sched := &scheduler.Scheduler{
		Executor:  executor,
		Validator: validator,
		Pipeline:  cfg.Execution.Pipeline,
		AuditHook: pipelineAuditHook(d.WorkDir, manager, auditor, phaseCfg.AdapterDeadline),
	}

	return cfg, o, sched, nil
}

// pipelineAuditHook fires a real, overlapping per-file Auditor call the
// moment a file validates, concurrently with other workers still
// generating (spec.md §4.8 step 4 / §9 Open Question 3: pipeline mode
// means "yes, concurrently"). Recorded the same way
// internal/orchestrator's own recordStep records the per-iteration
// AUDITING call, so pipeline-mode attempts still count toward
// GlobalMetrics/cost and reward.
func pipelineAuditHook(workDir string, manager *state.Manager, auditor *fallback.Chain, deadline time.Duration) scheduler.AuditHook {
	return func(ctx context.Context, fp scheduler.FilePlan) error {
		start := time.Now()
		prompt := fmt.Sprintf(
			"Audit %s in isolation ahead of the full iteration review.\nThis is a pipeline-mode pre-audit: just form an opinion, no verdict file is read back.\n",
			fp.Path,
		)
		outcome := auditor.Invoke(ctx, prompt, workDir, deadline)

		status := state.StepCompleted
		if outcome.Err != nil {
			status = state.StepFailed
		}
		step := state.WorkflowStep{
			ID:         fmt.Sprintf("pipeline-audit-%s-%d", fp.Path, start.UnixNano()),
			AgentRole:  state.RoleAuditor,
			Status:     status,
			FilePath:   fp.Path,
			Attempts:   outcome.Attempts,
			StartTime:  start,
			EndTime:    time.Now(),
			DurationMs: time.Since(start).Milliseconds(),
		}
		return manager.AppendWorkflowStep(step)
	}
}

// finalize captures a reward and pushes an Experience regardless of how the
// run ended (spec.md §4.10 step 5: "on any outcome"), then folds runErr into
// Outcome.Status/Reason rather than returning it, per spec.md §7. The only
// errors finalize itself returns are setup errors (experience buffer wiring).
func (d *Driver) finalize(cfg *config.Config, sess *state.Session, runErr error, start time.Time) (*Outcome, error) {
	if sess == nil {
		return nil, runErr
	}

	status, reason := statusFor(sess, runErr)

	rctx := rewardContext(sess, start)
	score, breakdown := reward.Evaluate(rctx)

	buf, err := experience.New(filepath.Join(d.WorkDir, "data", "experience_buffer", "experiences.jsonl"), 0)
	if err != nil {
		return nil, fmt.Errorf("session: open experience buffer: %w", err)
	}

	exp := experience.Experience{
		Action: experience.Action{
			Strategy: string(cfg.Learning.Mode),
			Adapters: adapterNamesUsed(sess),
		},
		Reward:    score,
		Done:      true,
		Metadata:  breakdown,
		Timestamp: time.Now().UTC(),
	}
	if err := buf.Append(exp); err != nil {
		return nil, fmt.Errorf("session: append experience: %w", err)
	}

	return &Outcome{Session: sess, Status: status, Reason: reason, Reward: score, Breakdown: breakdown}, nil
}

// statusFor classifies the terminal session phase/error into an Outcome
// Status, folding ExhaustedProviders/PlanMissing/StateCorrupted/cancellation
// into Reason instead of letting them surface as a returned error.
func statusFor(sess *state.Session, runErr error) (Status, string) {
	if errors.Is(runErr, orchestra.ErrUserCancelled) || sess.Phase == state.PhaseCancelled {
		return StatusCancelled, errString(runErr)
	}
	if sess.Phase == state.PhaseCompleted {
		return StatusOK, ""
	}
	reason := errString(runErr)
	if reason == "" {
		reason = sess.LastError
	}
	return StatusFailed, reason
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func rewardContext(sess *state.Session, start time.Time) reward.Context {
	errCount := 0
	testsPassed := true
	for _, f := range sess.Files {
		if f.Status == state.StatusFailed || f.Status == state.StatusRejected {
			errCount++
		}
		if f.ValidationResult != nil && f.ValidationResult.TestsRan && !f.ValidationResult.TestsPassed {
			testsPassed = false
		}
	}

	rotations := 0
	var tiers []reward.CostTier
	for _, step := range sess.Workflow {
		if len(step.Attempts) > 1 {
			rotations += len(step.Attempts) - 1
		}
		for _, a := range step.Attempts {
			if a.Success {
				tiers = append(tiers, providerTier(a.Provider))
			}
		}
	}

	return reward.Context{
		PhaseCompleted:       sess.Phase == state.PhaseCompleted,
		EstimatedMinutes:     5 * float64(maxOne(len(sess.Files))),
		ActualMinutes:        time.Since(start).Minutes(),
		ResourcesUsed:        sess.GlobalMetrics.TotalAttempts,
		MinimumResources:     len(sess.Files),
		ErrorCount:           errCount,
		PostGenModifications: 0,
		SafetyViolations:     sess.Fatal,
		TestsPassed:          testsPassed,
		TotalCostUsd:         sess.GlobalMetrics.TotalCostEstimate,
		AdapterTiers:         tiers,
		FallbackRotations:    rotations,
	}
}

func maxOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// providerTier maps a provider name back to its cost tier, mirroring each
// adapter package's own Info().Tier assignment (kept here rather than
// imported, since internal/reward intentionally has no internal/adapter
// dependency).
func providerTier(provider string) reward.CostTier {
	switch provider {
	case "glm":
		return reward.TierCheap
	case "codex", "sonnet", "gemini":
		return reward.TierMedium
	case "opus":
		return reward.TierExpensive
	default:
		return reward.TierMedium
	}
}

func adapterNamesUsed(sess *state.Session) []string {
	seen := map[string]bool{}
	var names []string
	for _, step := range sess.Workflow {
		for _, a := range step.Attempts {
			if a.Success && !seen[a.Provider] {
				seen[a.Provider] = true
				names = append(names, a.Provider)
			}
		}
	}
	return names
}

// buildChains assembles the four role-scoped Fallback Chains from the
// registry (spec.md §4.1/§4.2), with fallback ordering matching
// internal/ratelimit's static compatibility map: architect hands off to
// gemini/glm, executor to codex, auditor to glm plus a vision pass,
// consultant to gemini. Every adapter package self-registers its factories
// via init() (claude/codex/gemini/glm/vision); buildChains is the one place
// those factories are actually exercised, through adapter.Get rather than
// each package's own New, so the registry built by internal/adapter does
// real work instead of sitting beside it unused.
func buildChains(ledger *ratelimit.Ledger, breakers *ratelimit.BreakerBank, cache *adapter.ResponseCache) (architect, executor, auditor, consultant *fallback.Chain, err error) {
	named := func(names ...string) ([]adapter.Adapter, error) {
		adapters := make([]adapter.Adapter, 0, len(names))
		for _, name := range names {
			a, err := adapter.Get(name)
			if err != nil {
				return nil, fmt.Errorf("adapter chain: %w", err)
			}
			adapters = append(adapters, a)
		}
		return adapters, nil
	}

	architectAdapters, err := named("claude-opus", "gemini", "glm")
	if err != nil {
		return nil, nil, nil, nil, err
	}
	executorAdapters, err := named("claude-sonnet", "codex")
	if err != nil {
		return nil, nil, nil, nil, err
	}
	auditorAdapters, err := named("claude-opus", "glm", "claude-vision")
	if err != nil {
		return nil, nil, nil, nil, err
	}
	consultantAdapters, err := named("claude-opus", "gemini")
	if err != nil {
		return nil, nil, nil, nil, err
	}

	architect = fallback.NewChain(adapter.RoleArchitect, architectAdapters, ledger, breakers, cache)
	executor = fallback.NewChain(adapter.RoleExecutor, executorAdapters, ledger, breakers, cache)
	auditor = fallback.NewChain(adapter.RoleAuditor, auditorAdapters, ledger, breakers, cache)
	consultant = fallback.NewChain(adapter.RoleConsultant, consultantAdapters, ledger, breakers, cache)
	return architect, executor, auditor, consultant, nil
}
