// Package apierr provides shared error sentinels and retry infrastructure
// for the embedding backends. Backend-specific failures are classified into
// these sentinels at the adapter boundary.
//
// Backends map transport errors to these sentinels using
// fmt.Errorf("%s: %w", msg, sentinel). Callers check with
// errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import "errors"

// Sentinel errors for embedding backend failures.
var (
	// ErrModelUnavailable indicates no embedding backend could be initialized.
	// This is fatal for the extraction stage.
	ErrModelUnavailable = errors.New("no embedding backend available")

	// ErrRateLimit indicates the backend rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTimeout indicates a backend request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates backend authentication failed.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")
)

// IsRetryable reports whether an error is transient and worth another
// attempt. Rate limits and timeouts are retryable; auth failures and bad
// requests require user action and are not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout)
}
