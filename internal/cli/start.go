package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andywolf/orchestra/internal/config"
	"github.com/andywolf/orchestra/internal/session"
)

var (
	startParallel      bool
	startNoAudit       bool
	startMaxIterations int
)

var startCmd = &cobra.Command{
	Use:   "start <task>",
	Short: "Launch a new session for task",
	Long: `start launches a new multi-agent coding session for task. It refuses
to run if a prior session in this workspace is still resumable; run
'resume' instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []config.Option{config.WithParallel(startParallel), config.WithSkipAudit(startNoAudit)}
		if startMaxIterations > 0 {
			opts = append(opts, config.WithMaxIterations(startMaxIterations))
		}
		return runSession(cmd, func(d *session.Driver) (*session.Outcome, error) {
			return d.Start(cmd.Context(), args[0], opts...)
		})
	},
}

func init() {
	startCmd.Flags().BoolVar(&startParallel, "parallel", false, "run file generation concurrently")
	startCmd.Flags().BoolVar(&startNoAudit, "no-audit", false, "skip the AUDITING phase and auto-approve every iteration")
	startCmd.Flags().IntVar(&startMaxIterations, "max-iterations", 0, "override execution.maxIterations (0 = use configured default)")
	rootCmd.AddCommand(startCmd)
}

// runSession runs fn, prints the outcome, and maps it to the process exit
// code spec.md §6 names (0=ok, 1=task-failed, 3=cancelled); a non-nil error
// from fn is always a setup error (exit 2).
func runSession(cmd *cobra.Command, fn func(*session.Driver) (*session.Outcome, error)) error {
	d := session.New(workDir)
	outcome, err := fn(d)
	if err != nil {
		return newExitError(ExitSetupError, err)
	}

	printOutcome(cmd, outcome)

	switch outcome.Status {
	case session.StatusOK:
		return nil
	case session.StatusCancelled:
		return newExitError(ExitCancelled, fmt.Errorf("session cancelled"))
	default:
		return newExitError(ExitTaskFailed, fmt.Errorf("%s", outcome.Reason))
	}
}

func printOutcome(cmd *cobra.Command, o *session.Outcome) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session %s: %s\n", o.Session.SessionID, o.Status)
	if o.Reason != "" {
		fmt.Fprintf(out, "  reason: %s\n", o.Reason)
	}
	fmt.Fprintf(out, "  phase: %s, iteration: %d\n", o.Session.Phase, o.Session.Iteration)
	fmt.Fprintf(out, "  reward: %.3f\n", o.Reward)
}
