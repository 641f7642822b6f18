package ingest

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"feedsync/internal/logging"
	"feedsync/internal/model"
	"feedsync/internal/util"
	"feedsync/internal/xclient"
)

const timelinePageSize = 200

// TimelineSource is the part of xclient.V1Client the tweet fetcher needs.
type TimelineSource interface {
	UserTimeline(ctx context.Context, q xclient.TimelineQuery) ([]xclient.Status, error)
}

// Tweets pages username's timeline back from newest until an empty page,
// keeping only statuses newer than sinceID (all of them when sinceID is empty).
// On failure the items gathered so far are returned with a *FetchError.
func Tweets(ctx context.Context, src TimelineSource, username, sinceID string) ([]model.Item, error) {
	var out []model.Item
	var maxID string
	prevMax := uint64(math.MaxUint64)
	for page := 1; ; page++ {
		statuses, err := src.UserTimeline(ctx, xclient.TimelineQuery{
			ScreenName: username,
			SinceID:    sinceID,
			MaxID:      maxID,
			Count:      timelinePageSize,
		})
		if err != nil {
			return out, newFetchError(model.SourceTweet, page, err)
		}
		if len(statuses) == 0 {
			return out, nil
		}
		lowest := uint64(math.MaxUint64)
		for _, s := range statuses {
			it, id, err := tweetItem(s)
			if err != nil {
				return out, newFetchError(model.SourceTweet, page, err)
			}
			out = append(out, it)
			if id < lowest {
				lowest = id
			}
			logging.Debug("tweet_fetched", map[string]any{"id": it.ID, "text": util.Preview(s.Text, 60)})
		}
		logging.Debug("tweet_page", map[string]any{"page": page, "count": len(statuses)})
		// max_id is inclusive, so step below the oldest id seen.
		if lowest == 0 || lowest-1 >= prevMax {
			return out, nil
		}
		prevMax = lowest - 1
		maxID = strconv.FormatUint(prevMax, 10)
	}
}

func tweetItem(s xclient.Status) (model.Item, uint64, error) {
	id, err := strconv.ParseUint(s.IDStr, 10, 64)
	if err != nil {
		return model.Item{}, 0, fmt.Errorf("%w: status id %q", xclient.ErrMalformed, s.IDStr)
	}
	created, err := time.Parse(xclient.CreatedAtLayout, s.CreatedAt)
	if err != nil {
		return model.Item{}, 0, fmt.Errorf("%w: status %s created_at %q", xclient.ErrMalformed, s.IDStr, s.CreatedAt)
	}
	return model.Item{
		Type:        model.SourceTweet,
		ID:          s.IDStr,
		CreatedTime: created.UTC(),
		Tweet: &model.Tweet{
			FavoriteCount: s.FavoriteCount,
			RetweetCount:  s.RetweetCount,
			Text:          s.Text,
		},
	}, id, nil
}
