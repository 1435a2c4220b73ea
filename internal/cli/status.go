package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andywolf/orchestra/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current session's phase, iteration, and recent steps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := state.NewManager(workDir)
		sess, err := manager.Load()
		if err != nil {
			return newExitError(ExitSetupError, err)
		}
		if sess == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "no session in this workspace")
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "session:    %s\n", sess.SessionID)
		fmt.Fprintf(out, "task:       %s\n", sess.Task)
		fmt.Fprintf(out, "phase:      %s\n", sess.Phase)
		fmt.Fprintf(out, "iteration:  %d\n", sess.Iteration)
		fmt.Fprintf(out, "resumable:  %t\n", manager.CanResume())
		fmt.Fprintf(out, "files:      %d\n", len(sess.Files))
		fmt.Fprintf(out, "cost:       $%.4f\n", sess.GlobalMetrics.TotalCostEstimate)
		if sess.LastError != "" {
			fmt.Fprintf(out, "last error: %s\n", sess.LastError)
		}

		limit := len(sess.Workflow)
		if limit > 5 {
			limit = 5
		}
		if limit > 0 {
			fmt.Fprintln(out, "\nrecent steps:")
			for _, step := range sess.Workflow[len(sess.Workflow)-limit:] {
				fmt.Fprintf(out, "  [%s] %s %s (%d attempts)\n", step.Status, step.AgentRole, step.FilePath, len(step.Attempts))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
