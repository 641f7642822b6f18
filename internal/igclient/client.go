// Package igclient reads a user's recent media from the Instagram API v1.
package igclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"feedsync/internal/metrics"
)

const recentMediaEndpoint = "/users/media/recent"

// ErrMalformed marks responses that could not be mapped to the expected schema.
var ErrMalformed = errors.New("malformed instagram response")

// APIError is a non-2xx reply, with the message from the meta envelope if any.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("instagram api status %d", e.StatusCode)
	}
	return fmt.Sprintf("instagram api status %d: %s: %s", e.StatusCode, e.Type, e.Message)
}

// Page is one response of the recent-media endpoint.
// NextURL is empty on the last page.
type Page struct {
	Media   []Media
	NextURL string
}

// Media mirrors the fields of a media object we map into the feed.
type Media struct {
	ID          string    `json:"id"`
	CreatedTime string    `json:"created_time"` // unix seconds as a string
	Caption     *Caption  `json:"caption"`
	Filter      string    `json:"filter"`
	Images      *Images   `json:"images"`
	Likes       Count     `json:"likes"`
	Link        string    `json:"link"`
	Location    *Location `json:"location"`
}

type Caption struct {
	Text string `json:"text"`
}

type Images struct {
	LowResolution      Image `json:"low_resolution"`
	StandardResolution Image `json:"standard_resolution"`
	Thumbnail          Image `json:"thumbnail"`
}

type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Count struct {
	Count int `json:"count"`
}

type Location struct {
	ID        json.Number `json:"id"`
	Name      string      `json:"name"`
	Latitude  *float64    `json:"latitude"`
	Longitude *float64    `json:"longitude"`
}

type envelope struct {
	Pagination struct {
		NextURL string `json:"next_url"`
	} `json:"pagination"`
	Meta struct {
		Code         int    `json:"code"`
		ErrorType    string `json:"error_type"`
		ErrorMessage string `json:"error_message"`
	} `json:"meta"`
	Data []Media `json:"data"`
}

// Client is an access-token client for the v1 API.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// Options tune the transport; zero values mean defaults.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
}

func NewClient(baseURL, accessToken string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		lim = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		limiter:     lim,
	}
}

// RecentMedia fetches the first page for userID, or the page at nextURL
// when it is non-empty. nextURL is used verbatim as returned by the API.
func (c *Client) RecentMedia(ctx context.Context, userID, nextURL string) (Page, error) {
	u := nextURL
	if u == "" {
		if userID == "" {
			return Page{}, errors.New("empty user id")
		}
		u = fmt.Sprintf("%s/users/%s/media/recent/?access_token=%s",
			c.baseURL, url.PathEscape(userID), url.QueryEscape(c.accessToken))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("Accept", "application/json")
	if err := c.limiter.Wait(ctx); err != nil {
		return Page{}, err
	}
	metrics.IncAPIRequest(recentMediaEndpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, err
	}
	var env envelope
	decodeErr := json.Unmarshal(b, &env)
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Type = env.Meta.ErrorType
			apiErr.Message = env.Meta.ErrorMessage
		}
		return Page{}, apiErr
	}
	if decodeErr != nil {
		return Page{}, fmt.Errorf("%w: decode recent media: %v", ErrMalformed, decodeErr)
	}
	return Page{Media: env.Data, NextURL: env.Pagination.NextURL}, nil
}
