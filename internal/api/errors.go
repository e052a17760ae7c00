package api

import (
	"errors"
	"fmt"
)

// ErrAuthExpired is returned when the server rejects the bearer token
// of an authenticated request with 401. The client has already cleared
// its token by the time the error is returned; navigating to the login
// screen is the session observer's reaction, not the transport's.
var ErrAuthExpired = errors.New("authentication expired")

// Error is a non-2xx response from the API. Detail carries the
// server-provided message when one was present in the body.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Detail)
	}

	return fmt.Sprintf("api: unexpected status %d", e.Status)
}

// NetworkError reports a request that produced no HTTP response at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("api: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
