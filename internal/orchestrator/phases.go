package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andywolf/orchestra/internal/fallback"
	"github.com/andywolf/orchestra/internal/orchestra"
	"github.com/andywolf/orchestra/internal/scheduler"
	"github.com/andywolf/orchestra/internal/state"
	"github.com/andywolf/orchestra/internal/validate"
)

// Config resolves the Phase Orchestrator's tunables (spec.md §4.11's
// execution.*/tui.* keys); the Config Resolver (C11) populates this from
// defaults, .orchestrarc.json, env, and call-site overrides.
type Config struct {
	MaxIterations       int // default 3, hard cap 10
	MaxRecoveryAttempts int // default 3
	AutoRevertOnFailure bool
	Pipeline            bool // execution.pipeline: overlap audit with generation
	Concurrency         int  // default 3
	AdapterDeadline     time.Duration
	ConsultDeadline     time.Duration // default 5 min, shorter than AdapterDeadline
	SoftWallClock       time.Duration // default 30 min

	// ReviewHook implements PLAN_REVIEW's optional collaborator. Nil means
	// no collaborator is attached, so the plan auto-approves.
	ReviewHook func(plan string) (approved bool, edited string)

	// TestGate implements test.runAfterGeneration (spec.md §4.11): when
	// set, it must return true for an APPROVED audit verdict to actually
	// transition to COMPLETED. A false result is treated like NEEDS_WORK.
	// Nil means no test gate is configured.
	TestGate func(ctx context.Context, workDir string) (bool, error)

	// SkipAudit implements `start --no-audit` (spec.md §6): the AUDITING
	// phase is bypassed entirely and every iteration auto-approves, subject
	// only to TestGate if one is configured.
	SkipAudit bool
}

// DefaultConfig returns spec.md's stated defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:       3,
		MaxRecoveryAttempts: 3,
		Concurrency:         3,
		AdapterDeadline:     10 * time.Minute,
		ConsultDeadline:     5 * time.Minute,
		SoftWallClock:       30 * time.Minute,
	}
}

// Orchestrator drives the plan -> execute -> audit -> (consult) -> recover
// loop (spec.md §4.9), delegating each phase to a role-scoped Fallback
// Chain and the File Scheduler, grounded on
// andymwolf-agentium/internal/controller/controller.go's Run/runIteration
// structure (phase field on a durable record, one iteration of work per
// loop pass, termination decided by a small set of terminal phases).
type Orchestrator struct {
	cfg Config

	workDir    string
	scratchDir string

	manager    *state.Manager
	architect  *fallback.Chain
	executor   *fallback.Chain
	auditor    *fallback.Chain
	consultant *fallback.Chain
	validator  *validate.Validator

	consecutiveAuditFailures int
	consecutiveValidationFailures int
}

// New constructs an Orchestrator rooted at workDir, with .orchestra/ scratch
// files (plan/audit/help-needed/solution) per spec.md §6's persisted
// layout.
func New(workDir string, manager *state.Manager, architect, executor, auditor, consultant *fallback.Chain, validator *validate.Validator, cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		workDir:    workDir,
		scratchDir: filepath.Join(workDir, ".orchestra"),
		manager:    manager,
		architect:  architect,
		executor:   executor,
		auditor:    auditor,
		consultant: consultant,
		validator:  validator,
	}
}

func (o *Orchestrator) scratchPath(name string) string { return filepath.Join(o.scratchDir, name) }

func (o *Orchestrator) readScratch(name string) (string, error) {
	raw, err := os.ReadFile(o.scratchPath(name))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (o *Orchestrator) scratchExists(name string) bool {
	_, err := os.Stat(o.scratchPath(name))
	return err == nil
}

// recordStep invokes chain, folds its Attempts into one WorkflowStep, and
// returns the winning Result's OutputArtifact plus any chain-exhaustion error.
func (o *Orchestrator) recordStep(ctx context.Context, role state.AgentRole, prompt string, chain *fallback.Chain, deadline time.Duration) (string, error) {
	start := time.Now()
	outcome := chain.Invoke(ctx, prompt, o.workDir, deadline)

	status := state.StepCompleted
	if outcome.Err != nil {
		status = state.StepFailed
	}
	step := state.WorkflowStep{
		ID:         fmt.Sprintf("%s-%d", role, start.UnixNano()),
		AgentRole:  role,
		Status:     status,
		Attempts:   outcome.Attempts,
		StartTime:  start,
		EndTime:    time.Now(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err := o.manager.AppendWorkflowStep(step); err != nil {
		return "", fmt.Errorf("append workflow step: %w", err)
	}
	if outcome.Err != nil {
		return "", orchestra.ErrExhaustedProviders
	}
	return outcome.Result.OutputArtifact, nil
}

// runPlanning invokes the Architect; success requires a non-empty plan
// scratch file (spec.md §4.9's PLANNING).
func (o *Orchestrator) runPlanning(ctx context.Context, task string) error {
	prompt := buildArchitectPrompt(task, o.scratchPath("plan"))
	if _, err := o.recordStep(ctx, state.RoleArchitect, prompt, o.architect, o.cfg.AdapterDeadline); err != nil {
		return err
	}

	plan, err := o.readScratch("plan")
	if err != nil || strings.TrimSpace(plan) == "" {
		_ = o.manager.MarkLastError(orchestra.ErrPlanMissing.Error(), true)
		return orchestra.ErrPlanMissing
	}

	_, err = o.manager.CreateCheckpoint("plan", []string{o.scratchPath("plan")})
	return err
}

// runPlanReview auto-approves absent a collaborator (spec.md §4.9's
// PLAN_REVIEW).
func (o *Orchestrator) runPlanReview() (approved bool, err error) {
	plan, err := o.readScratch("plan")
	if err != nil {
		return false, err
	}
	if o.cfg.ReviewHook == nil {
		return true, nil
	}
	ok, edited := o.cfg.ReviewHook(plan)
	if ok && edited != "" {
		if err := os.WriteFile(o.scratchPath("plan"), []byte(edited), 0o644); err != nil {
			return false, fmt.Errorf("write reviewed plan: %w", err)
		}
	}
	return ok, nil
}

// executingResult is EXECUTING's per-iteration summary.
type executingResult struct {
	files       map[string]scheduler.FileResult
	helpNeeded  bool
}

// runExecuting parses the plan into a file list and runs it through the
// File Scheduler, persisting per-file status as each completes (spec.md
// §4.9's EXECUTING and §4.8's File Scheduler contract).
func (o *Orchestrator) runExecuting(ctx context.Context, sched *scheduler.Scheduler, iteration int, feedback string, resumePaths map[string]bool) (executingResult, error) {
	plan, err := o.readScratch("plan")
	if err != nil {
		return executingResult{}, fmt.Errorf("read plan for execution: %w", err)
	}
	filePlans := ParsePlan(plan)

	sched.PromptFor = func(fp scheduler.FilePlan, _ string) string {
		return buildExecutorPrompt(fp, plan, feedback, resumePaths[fp.Path])
	}

	results := sched.Execute(ctx, filePlans, o.workDir)

	for path, r := range results {
		var attempts []state.Attempt
		attempts = append(attempts, r.Attempts...)
		var vr *state.ValidationResult
		if r.ValidationResult != nil {
			vr = &state.ValidationResult{
				SyntaxOK: r.ValidationResult.Valid,
				Complete: r.ValidationResult.Valid,
				Language: r.ValidationResult.Language,
			}
			for _, e := range r.ValidationResult.Errors {
				vr.Issues = append(vr.Issues, e)
			}
		}
		var action state.FileAction
		for _, fp := range filePlans {
			if fp.Path == path {
				action = fp.Action
			}
		}
		if err := o.manager.UpsertFile(state.File{
			Path:             path,
			Action:           action,
			Status:           r.Status,
			ValidationResult: vr,
			Attempts:         attempts,
		}); err != nil {
			return executingResult{}, fmt.Errorf("persist file status: %w", err)
		}
	}

	_, err = o.manager.CreateCheckpoint(fmt.Sprintf("exec-%d", iteration), []string{o.scratchPath("plan")})
	if err != nil {
		return executingResult{}, err
	}

	return executingResult{files: results, helpNeeded: o.scratchExists("help-needed")}, nil
}

// runConsulting hands the help-needed file to the Consultant and writes its
// reply to the solution file (spec.md §4.9's CONSULTING).
func (o *Orchestrator) runConsulting(ctx context.Context) error {
	help, err := o.readScratch("help-needed")
	if err != nil {
		return fmt.Errorf("read help-needed: %w", err)
	}

	prompt := buildConsultantPrompt(help, o.scratchPath("solution"))
	if _, err := o.recordStep(ctx, state.RoleConsultant, prompt, o.consultant, o.cfg.ConsultDeadline); err != nil {
		return err
	}

	if err := os.Remove(o.scratchPath("help-needed")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove consumed help-needed file: %w", err)
	}
	return nil
}

// runAuditing invokes the Auditor over the plan and changed files, then
// parses its verdict (spec.md §4.9's AUDITING).
func (o *Orchestrator) runAuditing(ctx context.Context, iteration int, changedFiles []string) (AuditVerdict, error) {
	plan, err := o.readScratch("plan")
	if err != nil {
		return AuditVerdict{}, fmt.Errorf("read plan for audit: %w", err)
	}

	prompt := buildAuditorPrompt(plan, changedFiles, o.scratchPath("audit"))
	if _, err := o.recordStep(ctx, state.RoleAuditor, prompt, o.auditor, o.cfg.AdapterDeadline); err != nil {
		return AuditVerdict{}, err
	}

	audit, err := o.readScratch("audit")
	if err != nil {
		return AuditVerdict{}, fmt.Errorf("read audit file: %w", err)
	}
	verdict := parseAuditVerdict(audit)

	if _, err := o.manager.CreateCheckpoint(fmt.Sprintf("audit-%d", iteration), []string{o.scratchPath("audit")}); err != nil {
		return AuditVerdict{}, err
	}

	if verdict.Verdict == VerdictNeedsWork {
		o.consecutiveAuditFailures++
	} else {
		o.consecutiveAuditFailures = 0
	}

	return verdict, nil
}

// runRecovery re-validates every planned file, returns the paths that fail
// validation, and decides whether to escalate to REVERTED or MAX_ITERATIONS
// (spec.md §4.9's RECOVERY). It does not regenerate anything itself; the
// next EXECUTING iteration regenerates every planned file.
func (o *Orchestrator) runRecovery(ctx context.Context) (incomplete []string, escalate state.Phase, err error) {
	sess := o.manager.Session()
	if sess == nil {
		return nil, "", fmt.Errorf("recovery: no active session")
	}

	for _, f := range sess.Files {
		result, verr := o.validator.ValidateFile(ctx, filepath.Join(o.workDir, f.Path), "")
		if verr != nil || !result.Valid {
			incomplete = append(incomplete, f.Path)
		}
	}

	sess.RecoveryAttempts++
	if err := o.manager.SetPhase(state.PhaseRecovery); err != nil {
		return incomplete, "", err
	}

	if sess.RecoveryAttempts > o.cfg.MaxRecoveryAttempts {
		if o.cfg.AutoRevertOnFailure {
			if cp, ok := o.manager.LatestApprovedCheckpoint(); ok {
				if err := o.manager.RestoreCheckpoint(cp); err != nil {
					return incomplete, "", fmt.Errorf("restore checkpoint on revert: %w", err)
				}
			}
			return incomplete, state.PhaseReverted, nil
		}
		return incomplete, state.PhaseMaxIter, nil
	}

	return incomplete, "", nil
}

func buildArchitectPrompt(task, planPath string) string {
	var sb strings.Builder
	sb.WriteString("You are the architect for this task.\n\n")
	sb.WriteString("Task: " + task + "\n\n")
	sb.WriteString("Write a plan to " + planPath + ". One line per file, either:\n")
	sb.WriteString("  CREATE <path>\n  MODIFY <path>\n")
	sb.WriteString("Prose explaining the plan may surround the directive lines.\n")
	return sb.String()
}

func buildExecutorPrompt(fp scheduler.FilePlan, plan, feedback string, resume bool) string {
	var sb strings.Builder
	sb.WriteString("You are the executor. Write the file at " + fp.Path + " (" + string(fp.Action) + ").\n\n")
	sb.WriteString("## Plan\n\n" + plan + "\n\n")
	if feedback != "" {
		sb.WriteString("## Feedback from the previous audit\n\n" + feedback + "\n\n")
	}
	if resume {
		sb.WriteString("This file was left partially generated last attempt (ran out of context). ")
		sb.WriteString("Resume from where the partial content left off instead of starting over.\n\n")
	}
	sb.WriteString("If you are blocked on an algorithmic question you cannot resolve yourself, ")
	sb.WriteString("write it to the help-needed scratch file and stop; a consultant will answer it.\n")
	return sb.String()
}

func buildConsultantPrompt(help, solutionPath string) string {
	var sb strings.Builder
	sb.WriteString("An executor is blocked on an algorithmic question:\n\n")
	sb.WriteString(help)
	sb.WriteString("\n\nWrite your answer to " + solutionPath + ".\n")
	return sb.String()
}

func buildAuditorPrompt(plan string, changedFiles []string, auditPath string) string {
	var sb strings.Builder
	sb.WriteString("Audit the following changes against the plan.\n\n")
	sb.WriteString("## Plan\n\n" + plan + "\n\n")
	sb.WriteString("## Changed files\n\n")
	for _, f := range changedFiles {
		sb.WriteString("- " + f + "\n")
	}
	sb.WriteString("\nWrite your verdict to " + auditPath + ". The first line must be exactly\n")
	sb.WriteString("APPROVED or NEEDS_WORK; if NEEDS_WORK, the rest of the file is feedback\n")
	sb.WriteString("for the executor.\n")
	return sb.String()
}
