// Package vision wraps a vision-capable CLI invocation used specifically
// for screenshot audit: the Auditor role, given a rendered UI screenshot
// path alongside the task description, judging visual correctness.
package vision

import (
	"context"
	"os/exec"
	"time"

	"github.com/andywolf/orchestra/internal/adapter"
)

// Adapter implements adapter.Adapter for a vision-capable backend. It
// reuses the claude CLI (the screenshot path travels inside the prompt text;
// no separate argument carries it) rather than a separate binary,
// since no distinct vision CLI is named in the provider compatibility map.
type Adapter struct {
	model string
	bin   string
}

// New constructs a vision-capable adapter.
func New() *Adapter {
	return &Adapter{model: "opus", bin: "claude"}
}

// Info returns the adapter's static identity and capabilities.
func (a *Adapter) Info() adapter.Info {
	return adapter.Info{
		Name:     "claude-vision",
		Model:    a.model,
		Provider: "opus",
		Roles:    []adapter.Role{adapter.RoleAuditor},
		Tier:     adapter.TierExpensive,
		Vision:   true,
	}
}

// IsAvailable checks the claude binary resolves on PATH.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	_, err := exec.LookPath(a.bin)
	return err == nil
}

// Invoke runs claude in print mode; prompt is expected to already embed
// both the screenshot path and the expected verdict-file path.
func (a *Adapter) Invoke(ctx context.Context, prompt, workingDir string, deadline time.Duration) (adapter.Result, error) {
	spec := adapter.RunSpec{
		Binary: a.bin,
		Args: []string{
			"--print",
			"--model", a.model,
			"--dangerously-skip-permissions",
			prompt,
		},
		WorkDir: workingDir,
	}

	raw, err := adapter.Run(ctx, spec, deadline)
	if err != nil {
		return adapter.Result{Success: false, ErrorKind: adapter.ErrAPI, ErrorMessage: err.Error()}, nil
	}

	kind := adapter.ClassifyError(raw, raw.ExitCode == 0)
	return adapter.Result{
		Success:      kind == adapter.ErrNone,
		ExitCode:     raw.ExitCode,
		DurationMs:   raw.DurationMs,
		ErrorKind:    kind,
		ErrorMessage: raw.Stderr,
	}, nil
}

func init() {
	adapter.Register("claude-vision", func() adapter.Adapter { return New() })
}
