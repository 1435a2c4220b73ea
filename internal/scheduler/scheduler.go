// Package scheduler implements the File Scheduler (spec.md §4.8): a
// concurrency-bounded, dependency-free worker pool producing one artifact
// per file, with optional pipeline-mode overlap of per-file audit and
// generation.
package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andywolf/orchestra/internal/fallback"
	"github.com/andywolf/orchestra/internal/state"
	"github.com/andywolf/orchestra/internal/validate"
)

// FilePlan is one entry in the flat, dependency-free file list the
// Architect's plan resolves to.
type FilePlan struct {
	Path   string
	Action state.FileAction
}

// FileResult is the per-file outcome of one scheduler pass.
type FileResult struct {
	Path             string
	Status           state.FileStatus
	Attempts         []state.Attempt
	ValidationResult *validate.Result
	Recoverable      bool
	AuditStarted     bool // pipeline mode: an Auditor call was enqueued for this file
}

// PromptBuilder builds the Executor prompt for one file given the plan
// text and any prior feedback (e.g. validator rejection reason, or a
// "resume from partial" flag after CONTEXT_EXCEEDED).
type PromptBuilder func(fp FilePlan, feedback string) string

// AuditHook is invoked in pipeline mode immediately after a file validates,
// overlapping with other workers still generating. The hook runs
// synchronously on the calling worker's goroutine, so that worker's pool
// slot stays occupied until the hook returns; pipeline mode's overlap comes
// from multiple workers running concurrently, not from a second pool.
type AuditHook func(ctx context.Context, fp FilePlan) error

// Scheduler runs the worker pool described in spec.md §4.8.
type Scheduler struct {
	Concurrency int
	Pipeline    bool
	Executor    *fallback.Chain
	Validator   *validate.Validator
	AuditHook   AuditHook // called only when Pipeline is enabled
	PromptFor   PromptBuilder
	Deadline    time.Duration
}

// Execute runs the worker pool over plan in workingDir. Results are
// reported by path; dispatch order follows plan order but cross-file
// completion ordering is undefined, per spec.md §4.8's ordering note.
func (s *Scheduler) Execute(ctx context.Context, plan []FilePlan, workingDir string) map[string]FileResult {
	concurrency := s.Concurrency
	if concurrency <= 0 || concurrency > len(plan) {
		if len(plan) > 0 {
			concurrency = len(plan)
		} else {
			concurrency = 1
		}
	}

	results := make(map[string]FileResult, len(plan))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, fp := range plan {
		fp := fp
		g.Go(func() error {
			result := s.runOne(gctx, fp, workingDir, "")
			mu.Lock()
			results[fp.Path] = result
			mu.Unlock()
			return nil
		})
	}

	// Execute never fails the group: per-file failures are reported in the
	// result map, not propagated as a pool-wide error (spec.md's
	// CONTEXT_EXCEEDED backpressure marks a file failed+recoverable rather
	// than aborting the other workers).
	_ = g.Wait()
	return results
}

func (s *Scheduler) runOne(ctx context.Context, fp FilePlan, workingDir, feedback string) FileResult {
	result := FileResult{Path: fp.Path, Status: state.StatusGenerating}

	prompt := fp.Path
	if s.PromptFor != nil {
		prompt = s.PromptFor(fp, feedback)
	}

	outcome := s.Executor.Invoke(ctx, prompt, workingDir, s.Deadline)
	result.Attempts = outcome.Attempts

	if outcome.Err != nil {
		result.Status = state.StatusFailed
		for _, a := range outcome.Attempts {
			if a.ErrorCode == state.ErrorContextExceeded {
				result.Recoverable = true
			}
		}
		return result
	}

	result.Status = state.StatusValidating
	vr, err := s.Validator.ValidateFile(ctx, filepath.Join(workingDir, fp.Path), "")
	if err != nil {
		result.Status = state.StatusFailed
		return result
	}
	result.ValidationResult = &validate.Result{Valid: vr.Valid, Language: vr.Language, Errors: vr.Errors, Issues: vr.Issues}

	if !vr.Valid {
		result.Status = state.StatusRejected
		return result
	}

	result.Status = state.StatusGenerated

	if s.Pipeline && s.AuditHook != nil {
		result.AuditStarted = true
		_ = s.AuditHook(ctx, fp)
	}

	return result
}
