package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andywolf/orchestra/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .orchestrarc.json in the workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPath(workDir)
		if _, err := os.Stat(path); err == nil && !initForce {
			return newExitError(ExitSetupError, fmt.Errorf("%s already exists (use --force to overwrite)", path))
		}

		cfg, err := config.Load(workDir)
		if err != nil {
			return newExitError(ExitSetupError, err)
		}

		raw, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return newExitError(ExitSetupError, err)
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return newExitError(ExitSetupError, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing .orchestrarc.json")
	rootCmd.AddCommand(initCmd)
}
