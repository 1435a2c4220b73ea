package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/andywolf/orchestra/internal/config"
	"github.com/andywolf/orchestra/internal/session"
)

// debounce batches workspace-change events so a burst of saves (an editor
// writing several files at once) triggers one re-run, not one per file
// (spec.md §6's `watch <task>`: "re-trigger on workspace change, debounced
// 500 ms").
const watchDebounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch <task>",
	Short: "start, then re-run task on every debounced workspace change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task := args[0]
		out := cmd.OutOrStdout()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return newExitError(ExitSetupError, fmt.Errorf("create watcher: %w", err))
		}
		defer watcher.Close()

		if err := addWatchTree(watcher, workDir); err != nil {
			return newExitError(ExitSetupError, fmt.Errorf("watch workspace: %w", err))
		}

		runOnce := func() error {
			d := session.New(workDir)
			outcome, err := d.Start(cmd.Context(), task, config.WithSkipAudit(startNoAudit))
			if err != nil {
				fmt.Fprintf(out, "setup error: %v\n", err)
				return nil
			}
			printOutcome(cmd, outcome)
			return nil
		}

		if err := runOnce(); err != nil {
			return err
		}

		ctx := cmd.Context()
		var timer *time.Timer
		fire := make(chan struct{}, 1)
		for {
			select {
			case <-ctx.Done():
				return newExitError(ExitCancelled, ctx.Err())
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if shouldIgnore(ev.Name) {
					continue
				}
				if timer == nil {
					timer = time.AfterFunc(watchDebounce, func() { fire <- struct{}{} })
				} else {
					timer.Reset(watchDebounce)
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Fprintf(out, "watch error: %v\n", werr)
			case <-fire:
				fmt.Fprintln(out, "workspace change detected, re-running")
				if err := runOnce(); err != nil {
					return err
				}
			}
		}
	},
}

// shouldIgnore filters out changes under .orchestra/ and .git/ so the
// Driver's own writes don't re-trigger itself.
func shouldIgnore(name string) bool {
	return strings.Contains(name, "/.orchestra/") || strings.Contains(name, "/.git/")
}

func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	return watcher.Add(root)
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
