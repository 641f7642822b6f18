package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"feedsync/internal/cmdlog"
	"feedsync/internal/config"
	"feedsync/internal/theme"
)

func newInitCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: cmdlog.Wrap(func(cmd *cobra.Command, args []string) error {
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			theme.PrintBanner(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Config written to:", abs)
			return nil
		}),
	}
	cmd.Flags().StringVar(&path, "path", "./feedsync.yaml", "path to write config")
	return cmd
}
