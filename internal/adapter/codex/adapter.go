// Package codex wraps OpenAI's `codex` CLI as an Adapter. Routed primarily
// as a fallback executor behind claude-sonnet per the static compatibility
// map (executor -> {sonnet, codex}).
package codex

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/andywolf/orchestra/internal/adapter"
)

// Adapter implements adapter.Adapter for the Codex CLI.
type Adapter struct {
	model string
	bin   string
}

// New constructs a Codex adapter. model defaults to "codex" if empty.
func New(model string) *Adapter {
	if model == "" {
		model = "codex"
	}
	return &Adapter{model: model, bin: "codex"}
}

// Info returns the adapter's static identity and capabilities.
func (a *Adapter) Info() adapter.Info {
	return adapter.Info{
		Name:     "codex",
		Model:    a.model,
		Provider: "codex",
		Roles:    []adapter.Role{adapter.RoleExecutor},
		Tier:     adapter.TierMedium,
	}
}

// IsAvailable checks the codex binary resolves on PATH and OPENAI_API_KEY
// is set, matching the teacher's env-gated availability checks.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath(a.bin); err != nil {
		return false
	}
	return os.Getenv("OPENAI_API_KEY") != ""
}

// Invoke runs codex in non-interactive exec mode against workingDir.
func (a *Adapter) Invoke(ctx context.Context, prompt, workingDir string, deadline time.Duration) (adapter.Result, error) {
	spec := adapter.RunSpec{
		Binary: a.bin,
		Args: []string{
			"exec",
			"--full-auto",
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
	adapter.Register("codex", func() adapter.Adapter { return New("codex") })
}
