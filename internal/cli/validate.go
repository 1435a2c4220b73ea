package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/andywolf/orchestra/internal/state"
	"github.com/andywolf/orchestra/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Re-run the Validator against the current session's files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := state.NewManager(workDir)
		sess, err := manager.Load()
		if err != nil {
			return newExitError(ExitSetupError, err)
		}
		if sess == nil || len(sess.Files) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no session files to validate")
			return nil
		}

		v := validate.New()
		out := cmd.OutOrStdout()
		failures := 0
		for _, f := range sess.Files {
			path := filepath.Join(workDir, f.Path)
			result, err := v.ValidateFile(cmd.Context(), path, "")
			if err != nil {
				fmt.Fprintf(out, "%s: SKIP (%v)\n", f.Path, err)
				continue
			}
			if result.Valid {
				fmt.Fprintf(out, "%s: OK (%s)\n", f.Path, result.Language)
				continue
			}
			failures++
			fmt.Fprintf(out, "%s: INVALID (%s)\n", f.Path, result.Language)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  error: %s\n", e)
			}
			for _, issue := range result.Issues {
				fmt.Fprintf(out, "  issue: %s\n", issue)
			}
		}

		if failures > 0 {
			return newExitError(ExitTaskFailed, fmt.Errorf("%d file(s) failed validation", failures))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
