package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andywolf/orchestra/internal/history"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the current session's scratch state and checkpoints",
	Long: `clean removes .orchestra/state.json, the role scratch files, and
checkpoints/, but preserves the rate ledger and the archived sessions/
history index.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := history.Clean(workDir); err != nil {
			return newExitError(ExitSetupError, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cleaned session state")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
