// Package glm wraps Zhipu's GLM CLI as an Adapter. It is the cheapest tier
// and appears as a fallback for both architect and auditor in the static
// compatibility map, consistent with ZAI_API_KEY being the one required
// provider credential (primary executor provider per spec.md's env vars).
package glm

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/andywolf/orchestra/internal/adapter"
)

// Adapter implements adapter.Adapter for the GLM CLI.
type Adapter struct {
	model string
	bin   string
}

// New constructs a GLM adapter for the given model name.
func New(model string) *Adapter {
	if model == "" {
		model = "glm-4.6"
	}
	return &Adapter{model: model, bin: "glm"}
}

// Info returns the adapter's static identity and capabilities.
func (a *Adapter) Info() adapter.Info {
	return adapter.Info{
		Name:     "glm",
		Model:    a.model,
		Provider: "glm",
		Roles:    []adapter.Role{adapter.RoleArchitect, adapter.RoleAuditor},
		Tier:     adapter.TierCheap,
	}
}

// IsAvailable checks the glm binary resolves on PATH and ZAI_API_KEY is set.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath(a.bin); err != nil {
		return false
	}
	return os.Getenv("ZAI_API_KEY") != ""
}

// Invoke runs glm in non-interactive mode against workingDir.
func (a *Adapter) Invoke(ctx context.Context, prompt, workingDir string, deadline time.Duration) (adapter.Result, error) {
	spec := adapter.RunSpec{
		Binary: a.bin,
		Args: []string{
			"--model", a.model,
			"--non-interactive",
			prompt,
		},
		Env:     map[string]string{"ZAI_API_KEY": os.Getenv("ZAI_API_KEY")},
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
	adapter.Register("glm", func() adapter.Adapter { return New("") })
}
