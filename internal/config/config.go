package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures the tracked accounts, credentials for both services, and
// where the feed lives.
type Config struct {
	Account     AccountConfig     `yaml:"account"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Feed        FeedConfig        `yaml:"feed"`
	API         APIConfig         `yaml:"api"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type AccountConfig struct {
	TwitterUsername string `yaml:"twitterUsername"`
	InstagramUserID string `yaml:"instagramUserId"`
}

type CredentialsConfig struct {
	Twitter   TwitterCredentials   `yaml:"twitter"`
	Instagram InstagramCredentials `yaml:"instagram"`
}

// TwitterCredentials are OAuth1.0a user credentials for the v1.1 API.
// Empty fields are read from TWITTER_* env vars.
type TwitterCredentials struct {
	ConsumerKey    string `yaml:"consumerKey"`
	ConsumerSecret string `yaml:"consumerSecret"`
	AccessToken    string `yaml:"accessToken"`
	AccessSecret   string `yaml:"accessSecret"`
}

// IsValid reports whether all four OAuth values are present.
func (c TwitterCredentials) IsValid() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

// InstagramCredentials; only AccessToken is sent on requests.
type InstagramCredentials struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	AccessToken  string `yaml:"accessToken"`
}

type FeedConfig struct {
	Path string `yaml:"path"`
}

type APIConfig struct {
	TwitterBaseURL   string `yaml:"twitterBaseURL"`
	InstagramBaseURL string `yaml:"instagramBaseURL"`
	// Timeout for a single HTTP request, e.g. "30s"
	Timeout string `yaml:"timeout"`
	// Client-side pacing between page requests. 0 means unlimited.
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type MetricsConfig struct {
	// If set, metrics are written here in textfile-collector format after each run.
	Textfile string `yaml:"textfile"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Feed: FeedConfig{Path: "feed.json"},
		API: APIConfig{
			TwitterBaseURL:   "https://api.twitter.com/1.1",
			InstagramBaseURL: "https://api.instagram.com/v1",
			Timeout:          "30s",
		},
		Log: LogConfig{Level: "info"},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	setFromEnv(&c.Credentials.Twitter.ConsumerKey, "TWITTER_CONSUMER_KEY")
	setFromEnv(&c.Credentials.Twitter.ConsumerSecret, "TWITTER_CONSUMER_SECRET")
	setFromEnv(&c.Credentials.Twitter.AccessToken, "TWITTER_ACCESS_TOKEN")
	setFromEnv(&c.Credentials.Twitter.AccessSecret, "TWITTER_ACCESS_SECRET")
	setFromEnv(&c.Credentials.Instagram.ClientID, "INSTAGRAM_CLIENT_ID")
	setFromEnv(&c.Credentials.Instagram.ClientSecret, "INSTAGRAM_CLIENT_SECRET")
	setFromEnv(&c.Credentials.Instagram.AccessToken, "INSTAGRAM_ACCESS_TOKEN")
	if v := os.Getenv("FEEDSYNC_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func setFromEnv(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

// Validate checks the fields a sync run cannot do without.
func (c Config) Validate() error {
	var errs []error
	if c.Account.TwitterUsername == "" {
		errs = append(errs, errors.New("account.twitterUsername is required"))
	}
	if c.Account.InstagramUserID == "" {
		errs = append(errs, errors.New("account.instagramUserId is required"))
	}
	if c.Feed.Path == "" {
		errs = append(errs, errors.New("feed.path is required"))
	}
	if _, err := c.RequestTimeout(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RequestTimeout parses API.Timeout, defaulting to 30s when empty.
func (c Config) RequestTimeout() (time.Duration, error) {
	if c.API.Timeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 0, errors.New("api.timeout: " + err.Error())
	}
	return d, nil
}

// Load reads YAML config from path on top of Default().
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
