package jobs

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/afero"

	"feedsync/internal/config"
	"feedsync/internal/feedstore"
	"feedsync/internal/igclient"
	"feedsync/internal/ingest"
	"feedsync/internal/model"
	"feedsync/internal/xclient"
)

var acct = config.AccountConfig{TwitterUsername: "someone", InstagramUserID: "4714782"}

type fakeTimeline struct {
	pages   [][]xclient.Status
	err     error // returned once the pages run out
	queries []xclient.TimelineQuery
}

func (f *fakeTimeline) UserTimeline(ctx context.Context, q xclient.TimelineQuery) ([]xclient.Status, error) {
	f.queries = append(f.queries, q)
	if len(f.pages) == 0 {
		return nil, f.err
	}
	p := f.pages[0]
	f.pages = f.pages[1:]
	return p, nil
}

type fakeMedia struct {
	pages []igclient.Page
	err   error
	calls int
}

func (f *fakeMedia) RecentMedia(ctx context.Context, userID, nextURL string) (igclient.Page, error) {
	f.calls++
	if len(f.pages) == 0 {
		return igclient.Page{}, f.err
	}
	p := f.pages[0]
	f.pages = f.pages[1:]
	return p, nil
}

func rubyDate(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(xclient.CreatedAtLayout)
}

func st(id string, unix int64) xclient.Status {
	return xclient.Status{IDStr: id, CreatedAt: rubyDate(unix), Text: "tweet " + id}
}

func md(id string, unix int64) igclient.Media {
	return igclient.Media{
		ID:          id,
		CreatedTime: strconv.FormatInt(unix, 10),
		Images:      &igclient.Images{},
		Link:        "https://instagram.com/p/" + id,
	}
}

func ids(items []model.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func sameIDs(got []model.Item, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestSyncFeedFirstRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := feedstore.Open(fs, "/data/feed.json")
	tl := &fakeTimeline{pages: [][]xclient.Status{{st("300", 5), st("100", 3)}}}
	ig := &fakeMedia{pages: []igclient.Page{{Media: []igclient.Media{md("p1", 4)}}}}

	res, err := SyncFeed(context.Background(), store, tl, ig, acct)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !res.Init || res.Tweets != 2 || res.Photos != 1 || len(res.FetchErrors) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if tl.queries[0].SinceID != "" {
		t.Fatalf("first run must not send since_id: %+v", tl.queries[0])
	}
	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !sameIDs(got, "300", "p1", "100") {
		t.Fatalf("unexpected order %v", ids(got))
	}
}

func TestSyncFeedUsesWatermarks(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := feedstore.Open(fs, "/feed.json")
	if err := store.Save([]model.Item{
		{Type: model.SourceTweet, ID: "100", CreatedTime: time.Unix(3, 0).UTC(), Tweet: &model.Tweet{}},
		{Type: model.SourceInsta, ID: "p0", CreatedTime: time.Unix(2, 0).UTC(), Photo: &model.Photo{}},
	}); err != nil {
		t.Fatal(err)
	}
	tl := &fakeTimeline{pages: [][]xclient.Status{{st("300", 5)}}}
	// p0 comes back from the provider and must be filtered out.
	ig := &fakeMedia{pages: []igclient.Page{{Media: []igclient.Media{md("p1", 4), md("p0", 2)}}}}

	res, err := SyncFeed(context.Background(), store, tl, ig, acct)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Init || res.Tweets != 1 || res.Photos != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if tl.queries[0].SinceID != "100" {
		t.Fatalf("expected since_id 100, got %+v", tl.queries[0])
	}
	got, _ := store.Load()
	if !sameIDs(got, "300", "p1", "100", "p0") {
		t.Fatalf("unexpected order %v", ids(got))
	}
}

func TestSyncFeedNothingNewLeavesFeedIntact(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := feedstore.Open(fs, "/feed.json")
	stored := []model.Item{{Type: model.SourceTweet, ID: "7", CreatedTime: time.Unix(9, 0).UTC(), Tweet: &model.Tweet{Text: "x"}}}
	if err := store.Save(stored); err != nil {
		t.Fatal(err)
	}
	res, err := SyncFeed(context.Background(), store, &fakeTimeline{}, &fakeMedia{}, acct)
	if err != nil || res.Tweets != 0 || res.Photos != 0 {
		t.Fatalf("unexpected %+v %v", res, err)
	}
	got, _ := store.Load()
	if !sameIDs(got, "7") {
		t.Fatalf("unexpected feed %v", ids(got))
	}
}

func TestSyncFeedKeepsPhotosWhenTweetsFail(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := feedstore.Open(fs, "/feed.json")
	tl := &fakeTimeline{
		pages: [][]xclient.Status{{st("50", 8)}},
		err:   errors.New("connection reset"),
	}
	ig := &fakeMedia{pages: []igclient.Page{{Media: []igclient.Media{md("p1", 4)}}}}

	res, err := SyncFeed(context.Background(), store, tl, ig, acct)
	if err != nil {
		t.Fatalf("transport failures must not abort the run: %v", err)
	}
	if res.Tweets != 1 || res.Photos != 1 || len(res.FetchErrors) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	var fe *ingest.FetchError
	if !errors.As(res.FetchErrors[0], &fe) || fe.Source != model.SourceTweet || fe.Kind != ingest.KindTransport {
		t.Fatalf("unexpected fetch error %v", res.FetchErrors[0])
	}
	got, _ := store.Load()
	if !sameIDs(got, "50", "p1") {
		t.Fatalf("unexpected feed %v", ids(got))
	}
}

func TestSyncFeedDataErrorDoesNotSave(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := feedstore.Open(fs, "/feed.json")
	stored := []model.Item{{Type: model.SourceTweet, ID: "7", CreatedTime: time.Unix(9, 0).UTC(), Tweet: &model.Tweet{}}}
	if err := store.Save(stored); err != nil {
		t.Fatal(err)
	}
	before, _ := afero.ReadFile(fs, "/feed.json")

	tl := &fakeTimeline{pages: [][]xclient.Status{{st("8", 10)}}}
	bad := md("p1", 4)
	bad.Images = nil
	ig := &fakeMedia{pages: []igclient.Page{{Media: []igclient.Media{bad}}}}

	_, err := SyncFeed(context.Background(), store, tl, ig, acct)
	if !ingest.IsData(err) {
		t.Fatalf("expected data error, got %v", err)
	}
	after, _ := afero.ReadFile(fs, "/feed.json")
	if string(before) != string(after) {
		t.Fatalf("feed was rewritten:\n%s", after)
	}
}

func TestSyncFeedCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := feedstore.Open(fs, "/feed.json")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SyncFeed(ctx, store, &fakeTimeline{}, &fakeMedia{}, acct)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	// The first run's empty feed is already on disk.
	got, err := store.Load()
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty feed, got %v %v", got, err)
	}
}

func TestMergeOrder(t *testing.T) {
	at := func(id string, unix int64) model.Item {
		return model.Item{ID: id, CreatedTime: time.Unix(unix, 0).UTC()}
	}
	fresh := []model.Item{at("T1", 5), at("T2", 3), at("P1", 4), at("P2", 5)}
	stored := []model.Item{at("S1", 5), at("S2", 1)}
	got := Merge(fresh, stored)
	if !sameIDs(got, "T1", "P2", "S1", "P1", "T2", "S2") {
		t.Fatalf("unexpected order %v", ids(got))
	}
}
