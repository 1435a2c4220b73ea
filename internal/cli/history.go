package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andywolf/orchestra/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summaries, err := history.List(workDir, historyLimit)
		if err != nil {
			return newExitError(ExitSetupError, err)
		}
		if len(summaries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no archived sessions")
			return nil
		}
		out := cmd.OutOrStdout()
		for _, s := range summaries {
			fmt.Fprintf(out, "%s  %-12s  iter=%-2d  %s  %s\n",
				s.StartTime.Format("2006-01-02 15:04:05"), s.Phase, s.Iteration, s.SessionID, s.Task)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of sessions to list")
	rootCmd.AddCommand(historyCmd)
}
