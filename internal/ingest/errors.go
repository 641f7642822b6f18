package ingest

import (
	"errors"
	"fmt"

	"feedsync/internal/igclient"
	"feedsync/internal/model"
	"feedsync/internal/xclient"
)

// Kind separates failures worth degrading around from ones that are not.
type Kind string

const (
	// KindTransport covers network failures, timeouts and API error replies.
	KindTransport Kind = "transport"
	// KindData covers provider payloads that do not fit the expected schema.
	KindData Kind = "data"
)

// FetchError is returned next to whatever items were collected before it.
type FetchError struct {
	Source model.Source
	Kind   Kind
	Page   int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s page %d (%s): %v", e.Source, e.Page, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func newFetchError(src model.Source, page int, err error) *FetchError {
	kind := KindTransport
	if errors.Is(err, xclient.ErrMalformed) || errors.Is(err, igclient.ErrMalformed) {
		kind = KindData
	}
	return &FetchError{Source: src, Kind: kind, Page: page, Err: err}
}

// IsData reports whether err carries a data-shape failure.
func IsData(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindData
}
