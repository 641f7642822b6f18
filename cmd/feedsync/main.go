package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"feedsync/internal/logging"
	"feedsync/internal/theme"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type syncOptions struct {
	configPath string
	feedPath   string
}

func newRootCmd() *cobra.Command {
	opts := &syncOptions{}
	root := &cobra.Command{
		Use:           "feedsync",
		Short:         "Merge recent tweets and photos into a JSON feed",
		Long:          theme.Banner(true) + "\nRuns sync when no command is given.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          syncRunE(opts),
	}
	addSyncFlags(root, opts)
	root.AddCommand(newSyncCmd(), newInitCmd())
	return root
}
