package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"feedsync/internal/cmdlog"
	"feedsync/internal/config"
	"feedsync/internal/feedstore"
	"feedsync/internal/igclient"
	"feedsync/internal/jobs"
	"feedsync/internal/logging"
	"feedsync/internal/metrics"
	"feedsync/internal/xclient"
)

func newSyncCmd() *cobra.Command {
	opts := &syncOptions{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch new tweets and photos and merge them into the feed",
		Args:  cobra.NoArgs,
		RunE:  syncRunE(opts),
	}
	addSyncFlags(cmd, opts)
	return cmd
}

func addSyncFlags(cmd *cobra.Command, opts *syncOptions) {
	cmd.Flags().StringVar(&opts.configPath, "config", "./feedsync.yaml", "path to the config file")
	cmd.Flags().StringVar(&opts.feedPath, "feed", "", "feed file to update (overrides feed.path)")
}

func syncRunE(opts *syncOptions) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("sync", func() error {
			return runSync(cmd.Context(), afero.NewOsFs(), cmd.OutOrStdout(), *opts)
		})
	}
}

func runSync(ctx context.Context, fs afero.Fs, out io.Writer, opts syncOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", opts.configPath, err)
	}
	if opts.feedPath != "" {
		cfg.Feed.Path = opts.feedPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", opts.configPath, err)
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	timeout, _ := cfg.RequestTimeout()
	if !cfg.Credentials.Twitter.IsValid() {
		logging.Warn("twitter_credentials_incomplete", nil)
	}
	if cfg.Credentials.Instagram.AccessToken == "" {
		logging.Warn("instagram_token_missing", nil)
	}
	tw := xclient.NewV1Client(cfg.API.TwitterBaseURL, cfg.Credentials.Twitter, xclient.Options{
		Timeout:           timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
	})
	ig := igclient.NewClient(cfg.API.InstagramBaseURL, cfg.Credentials.Instagram.AccessToken, igclient.Options{
		Timeout:           timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
	})

	res, err := jobs.SyncFeed(ctx, feedstore.Open(fs, cfg.Feed.Path), tw, ig, cfg.Account)
	if werr := metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
		logging.Warn("metrics_textfile_failed", map[string]any{"path": cfg.Metrics.Textfile, "error": werr})
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "added %d tweets and %d photos\n", res.Tweets, res.Photos)
	return nil
}
