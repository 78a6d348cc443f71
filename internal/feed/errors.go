package feed

import (
	"errors"
	"fmt"
)

// ErrMissingMovieID is returned before any network I/O when the movie
// identifier is empty.
var ErrMissingMovieID = errors.New("movie identifier is required")

// FetchError collapses transport failures, non-2xx statuses and malformed
// payloads from the showtime feed into one typed error. Message carries the
// upstream details/error field when the feed supplied one.
type FetchError struct {
	Op         string // "cities" or "shows"
	StatusCode int    // zero when the request never completed
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("fetch %s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("fetch %s: upstream returned status %d", e.Op, e.StatusCode)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }
