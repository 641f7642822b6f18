package ingest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"feedsync/internal/igclient"
	"feedsync/internal/logging"
	"feedsync/internal/model"
	"feedsync/internal/util"
)

// MaxPhotoPages bounds the number of recent-media requests per run.
const MaxPhotoPages = 100

// MediaSource is the part of igclient.Client the photo fetcher needs.
type MediaSource interface {
	RecentMedia(ctx context.Context, userID, nextURL string) (igclient.Page, error)
}

// Photos follows the recent-media cursor for up to MaxPhotoPages pages.
// An item is kept when initRun is set or it was created strictly after since
// (unix seconds). The filter does not stop pagination.
// On failure the items gathered so far are returned with a *FetchError.
func Photos(ctx context.Context, src MediaSource, userID string, since int64, initRun bool) ([]model.Item, error) {
	var out []model.Item
	next := ""
	for page := 1; page <= MaxPhotoPages; page++ {
		p, err := src.RecentMedia(ctx, userID, next)
		if err != nil {
			return out, newFetchError(model.SourceInsta, page, err)
		}
		kept := 0
		for _, m := range p.Media {
			it, err := photoItem(m)
			if err != nil {
				return out, newFetchError(model.SourceInsta, page, err)
			}
			if initRun || it.CreatedTime.Unix() > since {
				out = append(out, it)
				kept++
			}
		}
		logging.Debug("photo_page", map[string]any{"page": page, "count": len(p.Media), "kept": kept})
		if p.NextURL == "" {
			break
		}
		next = p.NextURL
	}
	return out, nil
}

func photoItem(m igclient.Media) (model.Item, error) {
	if m.ID == "" {
		return model.Item{}, fmt.Errorf("%w: media without id", igclient.ErrMalformed)
	}
	secs, err := strconv.ParseInt(m.CreatedTime, 10, 64)
	if err != nil {
		return model.Item{}, fmt.Errorf("%w: media %s created_time %q", igclient.ErrMalformed, m.ID, m.CreatedTime)
	}
	if m.Images == nil {
		return model.Item{}, fmt.Errorf("%w: media %s has no images", igclient.ErrMalformed, m.ID)
	}
	var caption *string
	if m.Caption != nil {
		text := m.Caption.Text
		caption = &text
		logging.Debug("photo_caption", map[string]any{"id": m.ID, "caption": util.Preview(text, 60)})
	}
	return model.Item{
		Type:        model.SourceInsta,
		ID:          m.ID,
		CreatedTime: time.Unix(secs, 0).UTC(),
		Photo: &model.Photo{
			Caption: caption,
			Filter:  m.Filter,
			Images: model.Images{
				LowResolution:      image(m.Images.LowResolution),
				StandardResolution: image(m.Images.StandardResolution),
				Thumbnail:          image(m.Images.Thumbnail),
			},
			LikeCount: m.Likes.Count,
			Link:      m.Link,
			Location:  location(m.Location),
		},
	}, nil
}

func image(i igclient.Image) model.Image {
	return model.Image{URL: i.URL, Width: i.Width, Height: i.Height}
}

func location(l *igclient.Location) model.Location {
	if l == nil {
		return model.Location{}
	}
	out := model.Location{ID: l.ID.String(), Name: l.Name}
	if l.Latitude != nil && l.Longitude != nil {
		out.Point = &model.Point{Latitude: *l.Latitude, Longitude: *l.Longitude}
	}
	return out
}
