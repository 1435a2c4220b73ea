// Package cli implements the orchestra CLI surface (spec.md §6):
// start/resume/pipeline/watch/dry-run/status/plan/history/validate/clean/
// doctor/init, each a thin cobra command wired over internal/session.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/andywolf/orchestra/internal/version"
	"github.com/spf13/cobra"
)

var workDir string

var rootCmd = &cobra.Command{
	Use:   "orchestra",
	Short: "Multi-agent coding session orchestrator",
	Long: `orchestra drives a multi-phase coding session (PLANNING, EXECUTING,
AUDITING, ...) across a fallback chain of AI-provider CLIs, with durable
state, rate limiting, and a learned reward signal.

Example:
  orchestra start "add retry logic to the payments client"
  orchestra status`,
}

// Execute runs the root command against ctx (so RunE handlers can observe
// cancellation via cmd.Context()) and returns the process exit code
// (spec.md §6: 0=ok, 1=task-failed, 2=setup-error, 3=cancelled).
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if code, ok := exitCodeOf(err); ok {
			return code
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return ExitSetupError
	}
	return ExitOK
}

func init() {
	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVar(&workDir, "workdir", ".", "workspace directory")
}
