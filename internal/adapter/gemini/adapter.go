// Package gemini wraps Google's `gemini` CLI as an Adapter. Routed as an
// architect/consultant fallback per the static compatibility map.
package gemini

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/andywolf/orchestra/internal/adapter"
)

// Adapter implements adapter.Adapter for the Gemini CLI.
type Adapter struct {
	model string
	bin   string
}

// New constructs a Gemini adapter for the given model name.
func New(model string) *Adapter {
	if model == "" {
		model = "gemini-2.5-pro"
	}
	return &Adapter{model: model, bin: "gemini"}
}

// Info returns the adapter's static identity and capabilities.
func (a *Adapter) Info() adapter.Info {
	return adapter.Info{
		Name:     "gemini",
		Model:    a.model,
		Provider: "gemini",
		Roles:    []adapter.Role{adapter.RoleArchitect, adapter.RoleConsultant},
		Tier:     adapter.TierMedium,
	}
}

// IsAvailable checks the gemini binary resolves on PATH and GEMINI_API_KEY
// is set.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath(a.bin); err != nil {
		return false
	}
	return os.Getenv("GEMINI_API_KEY") != ""
}

// Invoke runs gemini in non-interactive prompt mode against workingDir.
func (a *Adapter) Invoke(ctx context.Context, prompt, workingDir string, deadline time.Duration) (adapter.Result, error) {
	spec := adapter.RunSpec{
		Binary: a.bin,
		Args: []string{
			"--model", a.model,
			"--yolo",
			"--prompt", prompt,
		},
		Env:     map[string]string{"GEMINI_API_KEY": os.Getenv("GEMINI_API_KEY")},
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
	adapter.Register("gemini", func() adapter.Adapter { return New("") })
}
