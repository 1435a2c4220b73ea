// Package claude wraps the `claude` CLI as an Adapter. It can fill any of
// the four roles depending on which model it is configured with (sonnet is
// typically routed as executor, opus as architect/auditor/consultant), per
// the role chains that internal/session's buildChains constructs.
package claude

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/andywolf/orchestra/internal/adapter"
)

// Adapter implements adapter.Adapter for the Claude CLI.
type Adapter struct {
	model string // "sonnet" or "opus"
	bin   string
}

// New constructs a Claude adapter for the given model name.
func New(model string) *Adapter {
	return &Adapter{model: model, bin: "claude"}
}

func (a *Adapter) tier() adapter.CostTier {
	if a.model == "opus" {
		return adapter.TierExpensive
	}
	return adapter.TierMedium
}

// Info returns the adapter's static identity and capabilities.
func (a *Adapter) Info() adapter.Info {
	return adapter.Info{
		Name:     fmt.Sprintf("claude-%s", a.model),
		Model:    a.model,
		Provider: a.model,
		Roles:    []adapter.Role{adapter.RoleArchitect, adapter.RoleExecutor, adapter.RoleAuditor, adapter.RoleConsultant},
		Tier:     a.tier(),
	}
}

// IsAvailable checks the claude binary resolves on PATH.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	_, err := exec.LookPath(a.bin)
	return err == nil
}

// Invoke runs claude in non-interactive print mode against workingDir.
// prompt must already reference the scratch file path(s) the caller expects
// to find populated afterward; Invoke does not inspect stdout for
// orchestration signals.
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
	adapter.Register("claude-sonnet", func() adapter.Adapter { return New("sonnet") })
	adapter.Register("claude-opus", func() adapter.Adapter { return New("opus") })
}
