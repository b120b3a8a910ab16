package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedResponse marks a 2xx response whose body could not be
// decoded. The server answered, so this is neither a transport failure
// nor a rejection; cached fallbacks must not mask it.
var ErrMalformedResponse = errors.New("malformed response body")

// Error is a non-2xx response from the backend. It is distinguishable
// from transport-level failures, which surface as wrapped *url.Error
// values instead.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api error (%d): %s", e.Status, e.Body)
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

// IsCredentialError reports whether err (or any error in its chain) is a
// 4xx response, i.e. the server understood and rejected the request.
// Callers should not retry these without changed input.
func IsCredentialError(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status >= 400 && apiErr.Status < 500
}

// IsAuthError reports whether err is specifically an authentication
// rejection (401), meaning the current token is missing or no longer
// accepted.
func IsAuthError(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized
}

// IsNetworkError reports whether err is a transport failure: the
// request never produced an HTTP response. These may be retried by
// explicit user action.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return false
	}
	return !errors.Is(err, ErrMalformedResponse)
}
