package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"mushaf/internal/corpus"
)

// ErrBadURL is returned for URLs the client will not request. Retrying
// cannot fix it.
var ErrBadURL = errors.New("unsupported URL")

// HTTPError represents a non-2xx response.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("HTTP %s for %s", e.Status, e.URL)
	}
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// Retryable reports whether the status is worth another attempt: server
// errors and rate limiting.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsNotFound returns true if this is a 404 error.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Classify maps an error from a single attempt to its ErrorKind. Errors
// that are not recognised are treated as transient network failures.
func Classify(err error) corpus.ErrorKind {
	if err == nil {
		return corpus.KindNone
	}
	if errors.Is(err, context.Canceled) {
		return corpus.KindCanceled
	}
	if errors.Is(err, ErrBadURL) {
		return corpus.KindRemote
	}
	if errors.Is(err, corpus.ErrMalformed) {
		return corpus.KindMalformed
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Retryable() {
			return corpus.KindTransient
		}
		return corpus.KindRemote
	}
	return corpus.KindTransient
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
