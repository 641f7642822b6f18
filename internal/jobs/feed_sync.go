package jobs

import (
	"context"
	"errors"
	"time"

	"feedsync/internal/config"
	"feedsync/internal/feedstore"
	"feedsync/internal/ingest"
	"feedsync/internal/logging"
	"feedsync/internal/metrics"
	"feedsync/internal/model"
)

// Result summarizes one sync run.
type Result struct {
	Init   bool
	Tweets int
	Photos int
	// FetchErrors holds non-fatal fetch failures; their partial items were kept.
	FetchErrors []error
}

// SyncFeed fetches tweets and photos newer than what the store already
// holds, merges them in and rewrites the store.
// Transport failures inside a fetcher are logged and degrade to partial
// results. Malformed provider data, storage errors and cancellation abort
// the run before the store is rewritten; a first run's empty store is
// already on disk by then.
func SyncFeed(ctx context.Context, store *feedstore.Store, timeline ingest.TimelineSource, media ingest.MediaSource, acct config.AccountConfig) (Result, error) {
	start := time.Now()
	metrics.Runs.Inc()
	defer metrics.ObserveRunDuration(start)

	res, err := syncFeed(ctx, store, timeline, media, acct)
	if err != nil {
		metrics.RunErrors.Inc()
	}
	return res, err
}

func syncFeed(ctx context.Context, store *feedstore.Store, timeline ingest.TimelineSource, media ingest.MediaSource, acct config.AccountConfig) (Result, error) {
	var res Result
	var feed []model.Item
	var wm feedstore.Watermark

	exists, err := store.Exists()
	if err != nil {
		return res, err
	}
	if !exists {
		if err := store.Initialize(); err != nil {
			return res, err
		}
		res.Init = true
		logging.Info("feed_initialized", map[string]any{"path": store.Path()})
	} else {
		feed, err = store.Load()
		if err != nil {
			return res, err
		}
		wm = feedstore.Watermarks(feed)
		logging.Info("feed_loaded", map[string]any{
			"path": store.Path(), "items": len(feed),
			"last_tweet": wm.TweetID, "last_photo": wm.PhotoTime,
		})
	}

	tweets, err := ingest.Tweets(ctx, timeline, acct.TwitterUsername, wm.TweetID)
	if err := res.absorb(ctx, err); err != nil {
		return res, err
	}
	photos, err := ingest.Photos(ctx, media, acct.InstagramUserID, wm.PhotoTime, res.Init)
	if err := res.absorb(ctx, err); err != nil {
		return res, err
	}

	fresh := make([]model.Item, 0, len(tweets)+len(photos))
	fresh = append(fresh, tweets...)
	fresh = append(fresh, photos...)
	if err := store.Save(Merge(fresh, feed)); err != nil {
		return res, err
	}

	res.Tweets = len(tweets)
	res.Photos = len(photos)
	metrics.AddItems(string(model.SourceTweet), res.Tweets)
	metrics.AddItems(string(model.SourceInsta), res.Photos)
	logging.Info("feed_saved", map[string]any{
		"path": store.Path(), "tweets": res.Tweets, "photos": res.Photos,
		"total": len(fresh) + len(feed), "fetch_errors": len(res.FetchErrors),
	})
	return res, nil
}

// absorb records a non-fatal fetch error and returns the ones that end the run.
func (r *Result) absorb(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if err == nil {
		return nil
	}
	var fe *ingest.FetchError
	if !errors.As(err, &fe) {
		return err
	}
	metrics.IncFetchError(string(fe.Source), string(fe.Kind))
	if fe.Kind == ingest.KindData {
		logging.Error("fetch_malformed", map[string]any{"source": string(fe.Source), "page": fe.Page, "error": fe.Err})
		return fe
	}
	logging.Warn("fetch_failed", map[string]any{"source": string(fe.Source), "page": fe.Page, "error": fe.Err})
	r.FetchErrors = append(r.FetchErrors, fe)
	return nil
}

// Merge places fresh items ahead of stored ones and stable-sorts the lot
// newest first, so equal timestamps keep fresh before stored and, within
// fresh, the order they were fetched in.
func Merge(fresh, stored []model.Item) []model.Item {
	out := make([]model.Item, 0, len(fresh)+len(stored))
	out = append(out, fresh...)
	out = append(out, stored...)
	model.SortNewestFirst(out)
	return out
}
