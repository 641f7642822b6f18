package model

import (
	"sort"
	"time"
)

// Source identifies which service an item came from.
type Source string

const (
	SourceTweet Source = "tweet"
	SourceInsta Source = "insta"
)

// Item is a single entry of the aggregated feed.
// Exactly one of Tweet or Photo is set, matching Type. Variant fields are
// flattened next to the common ones when encoded.
type Item struct {
	Type        Source    `json:"type"`
	ID          string    `json:"id"`
	CreatedTime time.Time `json:"created_time"`
	*Tweet
	*Photo
}

// Tweet holds the microblogging-specific fields of an Item.
type Tweet struct {
	FavoriteCount int    `json:"favorite_count"`
	RetweetCount  int    `json:"retweet_count"`
	Text          string `json:"text"`
}

// Photo holds the photo-sharing-specific fields of an Item.
type Photo struct {
	Caption   *string  `json:"caption"`
	Filter    string   `json:"filter"`
	Images    Images   `json:"images"`
	LikeCount int      `json:"like_count"`
	Link      string   `json:"link"`
	Location  Location `json:"location"`
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

// Location encodes as {} when the provider sent none.
type Location struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Point *Point `json:"point,omitempty"`
}

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SortNewestFirst orders items by CreatedTime descending.
// The sort is stable: items with equal times keep their relative order.
func SortNewestFirst(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedTime.After(items[j].CreatedTime)
	})
}

// Count returns how many items are of the given source.
func Count(items []Item, src Source) int {
	n := 0
	for _, it := range items {
		if it.Type == src {
			n++
		}
	}
	return n
}
