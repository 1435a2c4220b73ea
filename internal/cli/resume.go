package cli

import (
	"github.com/spf13/cobra"

	"github.com/andywolf/orchestra/internal/session"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue the most recently interrupted resumable session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, func(d *session.Driver) (*session.Outcome, error) {
			return d.Resume(cmd.Context())
		})
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
