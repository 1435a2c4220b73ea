package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/andywolf/orchestra/internal/orchestra"
	"github.com/andywolf/orchestra/internal/scheduler"
	"github.com/andywolf/orchestra/internal/state"
)

// Run drives the full state machine in spec.md §4.9's diagram:
//
//	INIT -> PLANNING -> PLAN_REVIEW -> EXECUTING ->
//	  (CONSULTING? ->) AUDITING ->
//	    APPROVED -> more iterations needed? no -> COMPLETED
//	    NEEDS_WORK -> EXECUTING (iteration+1)
//	    UNRECOVERABLE -> RECOVERY -> EXECUTING | REVERTED | MAX_ITERATIONS
//
// sched's Executor/Validator must already point at o's chain/validator; Run
// sets sched.Concurrency, Pipeline and Deadline, and runExecuting sets
// sched.PromptFor on each iteration.
func (o *Orchestrator) Run(ctx context.Context, task string, sched *scheduler.Scheduler) (*state.Session, error) {
	sess, err := o.manager.Init(task)
	if err != nil {
		return nil, err
	}

	sched.Concurrency = o.cfg.Concurrency
	sched.Pipeline = o.cfg.Pipeline
	sched.Deadline = o.cfg.AdapterDeadline

	start := time.Now()

	if err := o.manager.SetPhase(state.PhasePlanning); err != nil {
		return nil, err
	}
	if err := o.runPlanning(ctx, task); err != nil {
		return o.manager.Session(), err
	}

	if err := o.manager.SetPhase(state.PhasePlanReview); err != nil {
		return nil, err
	}
	approved, err := o.runPlanReview()
	if err != nil {
		return o.manager.Session(), err
	}
	if !approved {
		if err := o.manager.SetPhase(state.PhaseReverted); err != nil {
			return nil, err
		}
		return o.manager.Session(), nil
	}

	var feedback string
	resumePaths := map[string]bool{}

	for iteration := 1; iteration <= maxInt(o.cfg.MaxIterations, 1) && iteration <= 10; iteration++ {
		if cancelled(ctx) {
			return o.finishCancelled()
		}
		if time.Since(start) > o.cfg.SoftWallClock && o.cfg.SoftWallClock > 0 {
			// Soft wall clock: no new phase starts; the loop simply stops
			// advancing and the session is left at its current phase for a
			// future resume, per spec.md §5's cancellation/timeout note.
			return o.manager.Session(), nil
		}

		if err := o.manager.SetIteration(iteration); err != nil {
			return nil, err
		}
		if err := o.manager.SetPhase(state.PhaseExecuting); err != nil {
			return nil, err
		}

		execResult, err := o.runExecuting(ctx, sched, iteration, feedback, resumePaths)
		if err != nil {
			return o.manager.Session(), err
		}

		if execResult.helpNeeded {
			if err := o.manager.SetPhase(state.PhaseConsulting); err != nil {
				return nil, err
			}
			if err := o.runConsulting(ctx); err != nil {
				return o.manager.Session(), err
			}
			if err := o.manager.SetPhase(state.PhaseExecuting); err != nil {
				return nil, err
			}
			execResult, err = o.runExecuting(ctx, sched, iteration, feedback, resumePaths)
			if err != nil {
				return o.manager.Session(), err
			}
		}

		resumePaths = map[string]bool{}
		failedCount := 0
		var changedFiles []string
		for path, r := range execResult.files {
			changedFiles = append(changedFiles, path)
			if r.Status == state.StatusFailed {
				failedCount++
				if r.Recoverable {
					resumePaths[path] = true
				}
			}
		}
		if failedCount > 0 {
			o.consecutiveValidationFailures++
		} else {
			o.consecutiveValidationFailures = 0
		}

		if o.consecutiveAuditFailures >= 2 || o.consecutiveValidationFailures > 1 {
			phase, err := o.handleRecovery(ctx)
			if err != nil {
				return nil, err
			}
			if phase != "" {
				return o.manager.Session(), nil
			}
			continue
		}

		if err := o.manager.SetPhase(state.PhaseAuditing); err != nil {
			return nil, err
		}
		verdict := AuditVerdict{Verdict: VerdictApproved}
		if !o.cfg.SkipAudit {
			var err error
			verdict, err = o.runAuditing(ctx, iteration, changedFiles)
			if err != nil {
				return o.manager.Session(), err
			}
		}

		if verdict.Verdict == VerdictApproved {
			gatePassed := true
			if o.cfg.TestGate != nil {
				var gateErr error
				gatePassed, gateErr = o.cfg.TestGate(ctx, o.workDir)
				if gateErr != nil {
					return o.manager.Session(), gateErr
				}
			}
			if gatePassed {
				if err := o.manager.SetPhase(state.PhaseCompleted); err != nil {
					return nil, err
				}
				return o.manager.Session(), nil
			}
			feedback = "tests failed after generation; fix the failing tests"
			continue
		}

		feedback = verdict.Feedback
		if o.consecutiveAuditFailures >= 2 {
			phase, err := o.handleRecovery(ctx)
			if err != nil {
				return nil, err
			}
			if phase != "" {
				return o.manager.Session(), nil
			}
		}
	}

	if err := o.manager.SetPhase(state.PhaseMaxIter); err != nil {
		return nil, err
	}
	return o.manager.Session(), nil
}

// DryRun executes only the Architect step and returns the resulting plan
// text, without a PLAN_REVIEW, EXECUTING, or any checkpoint (spec.md §6's
// `dry-run <task>`: "run Architect only, print plan, no checkpoints").
func (o *Orchestrator) DryRun(ctx context.Context, task string) (string, error) {
	if _, err := o.manager.Init(task); err != nil {
		return "", err
	}
	if err := o.manager.SetPhase(state.PhasePlanning); err != nil {
		return "", err
	}
	prompt := buildArchitectPrompt(task, o.scratchPath("plan"))
	if _, err := o.recordStep(ctx, state.RoleArchitect, prompt, o.architect, o.cfg.AdapterDeadline); err != nil {
		return "", err
	}
	plan, err := o.readScratch("plan")
	if err != nil || strings.TrimSpace(plan) == "" {
		return "", orchestra.ErrPlanMissing
	}
	return plan, nil
}

// handleRecovery runs RECOVERY and reports the terminal phase it landed on,
// or "" if the session should keep iterating in EXECUTING.
func (o *Orchestrator) handleRecovery(ctx context.Context) (state.Phase, error) {
	_, escalate, err := o.runRecovery(ctx)
	if err != nil {
		return "", err
	}
	o.consecutiveAuditFailures = 0
	o.consecutiveValidationFailures = 0
	if escalate == "" {
		return "", nil
	}
	if err := o.manager.SetPhase(escalate); err != nil {
		return "", err
	}
	return escalate, nil
}

func (o *Orchestrator) finishCancelled() (*state.Session, error) {
	if err := o.manager.SetPhase(state.PhaseCancelled); err != nil {
		return nil, err
	}
	return o.manager.Session(), orchestra.ErrUserCancelled
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return errors.Is(ctx.Err(), context.Canceled)
	default:
		return false
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
