package poewatch

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when the controller has no cache store or
	// no remote source. It must be fixed before anything else can work.
	ErrNotConfigured = errors.New("poewatch: cache store not configured")

	// ErrRefreshInProgress is returned when a refresh is requested while
	// another one is running. Callers can retry later or read what is cached.
	ErrRefreshInProgress = errors.New("poewatch: an update is already in progress")

	// ErrRemoteFetch is returned for network failures and non-2xx responses
	// from poe.watch. Use errors.As with *FetchError for details.
	ErrRemoteFetch = errors.New("poewatch: couldn't fetch from poe.watch")

	// ErrBadResponse is returned when poe.watch answers with JSON we cannot use
	ErrBadResponse = errors.New("poewatch: unexpected response body")
)

// FetchError describes a failed request to the remote API
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("GET %s: %s: %s", e.URL, e.Status, e.Body)
}

// Unwrap lets errors.Is match both ErrRemoteFetch and the transport error
func (e *FetchError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrRemoteFetch, e.Err}
	}
	return []error{ErrRemoteFetch}
}
