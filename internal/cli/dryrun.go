package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andywolf/orchestra/internal/session"
)

var dryRunCmd = &cobra.Command{
	Use:   "dry-run <task>",
	Short: "Run the Architect only and print the resulting plan",
	Long: `dry-run invokes only the Architect for task and prints the plan it
produces. No PLAN_REVIEW, EXECUTING, AUDITING, or checkpoint is created.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := session.New(workDir)
		plan, err := d.DryRun(cmd.Context(), args[0])
		if err != nil {
			return newExitError(ExitSetupError, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), plan)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dryRunCmd)
}
