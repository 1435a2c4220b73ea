package validate

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// pythonASTCheck is the script run under `python3 -c`, printing nothing on
// success and a SyntaxError traceback on failure.
const pythonASTCheck = `
import ast, sys
with open(sys.argv[1], "r", encoding="utf-8") as f:
    source = f.read()
ast.parse(source, filename=sys.argv[1])
`

// probePython parses path as a Python abstract syntax tree via a short-lived
// `python3 -c` subprocess. No Go-native Python parser exists in the example
// pack, so this follows the same external-toolchain-probe idiom as
// probeRust, using Python's own ast module as the authority on what parses.
func probePython(ctx context.Context, path string, timeout time.Duration) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "python3", "-c", pythonASTCheck, path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("python syntax error: %s", string(output))
	}
	return nil
}
