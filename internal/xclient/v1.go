package xclient

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"feedsync/internal/config"
	"feedsync/internal/metrics"
)

const timelinePath = "/statuses/user_timeline.json"

// CreatedAtLayout is the timestamp layout of v1.1 status objects,
// e.g. "Wed Aug 27 13:08:45 +0000 2008".
const CreatedAtLayout = time.RubyDate

// ErrMalformed marks responses that could not be mapped to the expected schema.
var ErrMalformed = errors.New("malformed twitter response")

// APIError is a non-2xx reply from the API.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("twitter api status %d", e.StatusCode)
	}
	return fmt.Sprintf("twitter api status %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
}

// Status is the subset of a v1.1 status object we keep.
type Status struct {
	IDStr         string `json:"id_str"`
	CreatedAt     string `json:"created_at"`
	FavoriteCount int    `json:"favorite_count"`
	RetweetCount  int    `json:"retweet_count"`
	Text          string `json:"text"`
}

// TimelineQuery selects one page of a user's timeline.
// Empty SinceID/MaxID are left out of the request.
type TimelineQuery struct {
	ScreenName string
	SinceID    string
	MaxID      string
	Count      int
}

// V1Client calls the v1.1 REST API with OAuth 1.0a user credentials.
type V1Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string

	nowFn   func() time.Time
	nonceFn func() string
}

// Options tune the transport; zero values mean defaults.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
}

func NewV1Client(baseURL string, creds config.TwitterCredentials, opts Options) *V1Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &V1Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: opts.Timeout},
		limiter:        newLimiter(opts.RequestsPerSecond),
		ConsumerKey:    creds.ConsumerKey,
		ConsumerSecret: creds.ConsumerSecret,
		AccessToken:    creds.AccessToken,
		AccessSecret:   creds.AccessSecret,
		nowFn:          time.Now,
		nonceFn:        func() string { return strconv.FormatInt(rand.Int63(), 36) },
	}
}

// UserTimeline returns one page of statuses posted by q.ScreenName, newest first.
func (c *V1Client) UserTimeline(ctx context.Context, q TimelineQuery) ([]Status, error) {
	if q.ScreenName == "" {
		return nil, errors.New("empty screen name")
	}
	params := map[string]string{
		"screen_name": q.ScreenName,
		"count":       strconv.Itoa(clamp(q.Count, 1, 200)),
	}
	if q.SinceID != "" {
		params["since_id"] = q.SinceID
	}
	if q.MaxID != "" {
		params["max_id"] = q.MaxID
	}
	endpoint := c.baseURL + timelinePath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+encodeQuery(params), nil)
	if err != nil {
		return nil, err
	}
	c.oauth1Sign(req, params)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	metrics.IncAPIRequest(timelinePath)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, decodeAPIError(resp)
	}
	var out []Status
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode timeline: %v", ErrMalformed, err)
	}
	return out, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Errors []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(b, &body) == nil && len(body.Errors) > 0 {
		apiErr.Code = body.Errors[0].Code
		apiErr.Message = body.Errors[0].Message
	}
	return apiErr
}

func (c *V1Client) oauth1Sign(req *http.Request, queryParams map[string]string) {
	oauth := map[string]string{
		"oauth_consumer_key":     c.ConsumerKey,
		"oauth_nonce":            c.nonceFn(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(c.nowFn().Unix(), 10),
		"oauth_token":            c.AccessToken,
		"oauth_version":          "1.0",
	}
	all := map[string]string{}
	for k, v := range oauth {
		all[k] = v
	}
	for k, v := range queryParams {
		all[k] = v
	}
	baseURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
	oauth["oauth_signature"] = signature(req.Method, baseURL, all, c.ConsumerSecret, c.AccessSecret)

	hdrKeys := make([]string, 0, len(oauth))
	for k := range oauth {
		hdrKeys = append(hdrKeys, k)
	}
	sort.Strings(hdrKeys)
	authParts := make([]string, 0, len(hdrKeys))
	for _, k := range hdrKeys {
		authParts = append(authParts, fmt.Sprintf("%s=\"%s\"", rfc3986(k), rfc3986(oauth[k])))
	}
	req.Header.Set("Authorization", "OAuth "+strings.Join(authParts, ", "))
	req.Header.Set("Accept", "application/json")
}

// signature computes the HMAC-SHA1 OAuth signature over all request params.
func signature(method, baseURL string, params map[string]string, consumerSecret, tokenSecret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	paramParts := make([]string, 0, len(keys))
	for _, k := range keys {
		paramParts = append(paramParts, rfc3986(k)+"="+rfc3986(params[k]))
	}
	base := strings.ToUpper(method) + "&" + rfc3986(baseURL) + "&" + rfc3986(strings.Join(paramParts, "&"))
	signingKey := rfc3986(consumerSecret) + "&" + rfc3986(tokenSecret)
	mac := hmac.New(sha1.New, []byte(signingKey))
	_, _ = mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func encodeQuery(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, rfc3986(k)+"="+rfc3986(m[k]))
	}
	return strings.Join(parts, "&")
}

// RFC 3986 percent-encoding for OAuth
func rfc3986(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(url.QueryEscape(s), "+", "%20"), "*", "%2A")
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
