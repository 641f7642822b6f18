// Package cmdlog records the outcome of each CLI command.
package cmdlog

import (
	"time"

	"github.com/spf13/cobra"

	"feedsync/internal/logging"
	"feedsync/internal/metrics"
)

// Run executes f under the name cmd, counting the run and logging how it ended.
func Run(cmd string, f func() error) error {
	start := time.Now()
	metrics.IncCommandRun(cmd)
	err := f()
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		metrics.IncCommandError(cmd)
		logging.Error(cmd+"_error", map[string]any{"error": err, "elapsed_ms": elapsed})
	} else {
		logging.Info(cmd+"_ok", map[string]any{"elapsed_ms": elapsed})
	}
	return err
}

// Wrap adapts a cobra RunE so it goes through Run under the command's name.
func Wrap(f func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return Run(cmd.Name(), func() error { return f(cmd, args) })
	}
}
