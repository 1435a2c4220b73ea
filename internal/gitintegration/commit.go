// Package gitintegration implements the Session Driver's optional
// auto-commit step (spec.md §4.10 step 6, §4.11 git.*): stage every
// changed file and commit with a conventional-commit message template,
// never push. A thin os/exec porcelain wrapper, the same subprocess-shelling
// idiom andymwolf-agentium's internal/controller/docker.go uses for every
// external tool it drives — no go-git dependency, since no repo in the
// example pack imports one.
package gitintegration

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultCommitMessageTemplate is used when git.commitMessageTemplate is
// unset in config.
const DefaultCommitMessageTemplate = "feat: {task}\n\nGenerated by an automated coding session."

// Commit stages every changed file under workDir and commits using
// template, with "{task}" replaced by task. Never pushes. No-op (returns
// nil) if there is nothing to commit.
func Commit(ctx context.Context, workDir, task, template string) error {
	if template == "" {
		template = DefaultCommitMessageTemplate
	}

	dirty, err := hasChanges(ctx, workDir)
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}

	if err := run(ctx, workDir, "add", "-A"); err != nil {
		return fmt.Errorf("git add: %w", err)
	}

	message := strings.ReplaceAll(template, "{task}", task)
	if err := run(ctx, workDir, "commit", "-m", message); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

// hasChanges reports whether `git status --porcelain` shows any changes,
// mirroring the teacher's internal/scope/validator.go's use of
// "git status --porcelain" as the comprehensive (tracked + untracked)
// change-detection source.
func hasChanges(ctx context.Context, workDir string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = workDir
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return strings.TrimSpace(out.String()) != "", nil
}

func run(ctx context.Context, workDir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return nil
}
