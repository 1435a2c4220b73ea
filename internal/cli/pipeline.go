package cli

import (
	"github.com/spf13/cobra"

	"github.com/andywolf/orchestra/internal/config"
	"github.com/andywolf/orchestra/internal/session"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline <task>",
	Short: "Launch a new session with overlap mode on",
	Long: `pipeline is equivalent to 'start' except execution.pipeline is forced
on: each file gets its own Auditor call as soon as it validates, on the
worker that generated it, while the other workers keep generating
(spec.md §5).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, func(d *session.Driver) (*session.Outcome, error) {
			return d.Start(cmd.Context(), args[0], config.WithPipeline(true))
		})
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
}
