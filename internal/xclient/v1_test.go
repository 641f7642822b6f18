package xclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"feedsync/internal/config"
)

func newTestClient(baseURL string) *V1Client {
	c := NewV1Client(baseURL, config.TwitterCredentials{
		ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "at", AccessSecret: "as",
	}, Options{Timeout: 2 * time.Second})
	c.nowFn = func() time.Time { return time.Unix(1318622958, 0) }
	c.nonceFn = func() string { return "nonce" }
	return c
}

// Reference request from Twitter's "Creating a signature" guide.
func TestSignatureMatchesReference(t *testing.T) {
	params := map[string]string{
		"status":                 "Hello Ladies + Gentlemen, a signed OAuth request!",
		"include_entities":       "true",
		"oauth_consumer_key":     "xvz1evFS4wEEPTGEFPHBog",
		"oauth_nonce":            "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1318622958",
		"oauth_token":            "370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb",
		"oauth_version":          "1.0",
	}
	got := signature("POST", "https://api.twitter.com/1.1/statuses/update.json", params,
		"kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw", "LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE")
	if got != "hCtSmYh+iHYCEqBWrE7C7hYmtUk=" {
		t.Fatalf("signature mismatch: %s", got)
	}
}

func TestUserTimelineSendsSignedQuery(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/statuses/user_timeline.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("screen_name") != "someone" || q.Get("since_id") != "10" || q.Get("count") != "200" {
			t.Errorf("unexpected query %v", q)
		}
		if _, ok := q["max_id"]; ok {
			t.Errorf("max_id should be omitted when empty")
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "OAuth ") || !strings.Contains(auth, `oauth_consumer_key="ck"`) || !strings.Contains(auth, "oauth_signature=") {
			t.Errorf("bad Authorization header %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id_str":"12","created_at":"Wed Aug 27 13:08:45 +0000 2008","favorite_count":4,"retweet_count":2,"text":"hi"}]`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL + "/")
	got, err := c.UserTimeline(context.Background(), TimelineQuery{ScreenName: "someone", SinceID: "10", Count: 500})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	want := Status{IDStr: "12", CreatedAt: "Wed Aug 27 13:08:45 +0000 2008", FavoriteCount: 4, RetweetCount: 2, Text: "hi"}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("unexpected statuses %+v", got)
	}
	if _, err := time.Parse(CreatedAtLayout, got[0].CreatedAt); err != nil {
		t.Fatalf("layout does not parse wire timestamp: %v", err)
	}
}

func TestUserTimelineAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"code":32,"message":"Could not authenticate you."}]}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).UserTimeline(context.Background(), TimelineQuery{ScreenName: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != 401 || apiErr.Code != 32 || apiErr.Message != "Could not authenticate you." {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if errors.Is(err, ErrMalformed) {
		t.Fatal("api error must not be reported as malformed")
	}
}

func TestUserTimelineMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).UserTimeline(context.Background(), TimelineQuery{ScreenName: "x"})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestUserTimelineRequiresScreenName(t *testing.T) {
	if _, err := newTestClient("http://unused").UserTimeline(context.Background(), TimelineQuery{}); err == nil {
		t.Fatal("expected error")
	}
}
