package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/andywolf/orchestra/internal/adapter"
	_ "github.com/andywolf/orchestra/internal/adapter/claude"
	_ "github.com/andywolf/orchestra/internal/adapter/codex"
	_ "github.com/andywolf/orchestra/internal/adapter/gemini"
	_ "github.com/andywolf/orchestra/internal/adapter/glm"
	_ "github.com/andywolf/orchestra/internal/adapter/vision"
	"github.com/andywolf/orchestra/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Probe every provider CLI for availability and check config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		names := adapter.List()
		sort.Strings(names)

		adapters := make([]adapter.Adapter, 0, len(names))
		for _, name := range names {
			a, err := adapter.Get(name)
			if err != nil {
				return newExitError(ExitSetupError, err)
			}
			adapters = append(adapters, a)
		}

		unavailable := 0
		for _, a := range adapters {
			available := a.IsAvailable(ctx)
			status := "OK"
			if !available {
				status = "UNAVAILABLE"
				unavailable++
			}
			fmt.Fprintf(out, "%-16s %s\n", a.Info().Name, status)
		}

		cfg, err := config.Load(workDir)
		if err != nil {
			fmt.Fprintf(out, "config: INVALID (%v)\n", err)
			return newExitError(ExitSetupError, err)
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(out, "config: INVALID (%v)\n", err)
			return newExitError(ExitSetupError, err)
		}
		fmt.Fprintln(out, "config: OK")

		if unavailable == len(adapters) {
			return newExitError(ExitSetupError, fmt.Errorf("no provider CLI is available"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
