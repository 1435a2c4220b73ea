package validate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// probeRust invokes rustc's metadata-only emission mode against path, per
// spec.md §4.5's "invoke a parse-only mode of the toolchain with a short
// timeout" for statically typed compiled languages. No Go-native Rust
// parser exists in the example pack or its transitive dependency graph, so
// this shells out exactly the way the teacher's own controller shells out
// to external tools (internal/controller/docker.go), bounded by a short
// deadline.
func probeRust(ctx context.Context, path string, timeout time.Duration) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := filepath.Join(os.TempDir(), "orchestra-rustc-metadata")
	cmd := exec.CommandContext(runCtx, "rustc",
		"--edition", "2021",
		"--crate-type", "lib",
		"--emit=metadata",
		"-o", out,
		path,
	)
	defer os.Remove(out)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("rust syntax error: %s", string(output))
	}
	return nil
}
