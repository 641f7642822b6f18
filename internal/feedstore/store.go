// Package feedstore persists the aggregated feed as a single JSON array.
package feedstore

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"feedsync/internal/model"
)

// Store reads and writes the feed file at one path.
type Store struct {
	fs   afero.Fs
	path string
}

// Open returns a store rooted on fs. Nothing is touched until first use.
func Open(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Exists() (bool, error) {
	ok, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return false, fmt.Errorf("stat feed %s: %w", s.path, err)
	}
	return ok, nil
}

// Initialize writes an empty feed.
func (s *Store) Initialize() error {
	return s.Save(nil)
}

// Load decodes the whole feed. The file must exist.
func (s *Store) Load() ([]model.Item, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("read feed %s: %w", s.path, err)
	}
	var items []model.Item
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("decode feed %s: %w", s.path, err)
	}
	return items, nil
}

// Save replaces the feed with items, indented by two spaces.
// Data goes to a sibling temp file first and is renamed into place.
func (s *Store) Save(items []model.Item) error {
	if items == nil {
		items = []model.Item{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create feed dir %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp feed: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp feed %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp feed %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp feed %s: %w", tmpName, err)
	}
	if err := s.fs.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp feed %s: %w", tmpName, err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace feed %s: %w", s.path, err)
	}
	return nil
}

// Watermark marks the newest stored item of each source.
type Watermark struct {
	TweetID   string // empty when no tweet is stored
	PhotoTime int64  // unix seconds, 0 when no photo is stored
}

// Watermarks scans a newest-first feed for the first tweet and first photo.
func Watermarks(items []model.Item) Watermark {
	var w Watermark
	var tweetFound, photoFound bool
	for _, it := range items {
		switch {
		case it.Type == model.SourceTweet && !tweetFound:
			w.TweetID = it.ID
			tweetFound = true
		case it.Type == model.SourceInsta && !photoFound:
			w.PhotoTime = it.CreatedTime.Unix()
			photoFound = true
		}
		if tweetFound && photoFound {
			break
		}
	}
	return w
}
