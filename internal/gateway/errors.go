package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingBaseURL indicates the gateway was configured without a
	// provider address.
	ErrMissingBaseURL = errors.New("gateway: base url is required")

	// ErrMissingRegistry indicates the gateway was constructed without a
	// model registry to enforce.
	ErrMissingRegistry = errors.New("gateway: model registry is required")

	// ErrMalformedEnvelope indicates the provider answered with an envelope
	// the gateway cannot interpret. A shape change is permanent, not
	// transient, so callers must not retry it.
	ErrMalformedEnvelope = errors.New("gateway: malformed provider envelope")
)

// StatusError is a provider rejection carried by a status code: any
// non-retryable 4xx, an envelope-level failure code, or a 5xx that survived
// the whole retry budget.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: provider status %d: %s", e.Status, e.Body)
}

// NetworkError is a transport-level failure (dial, reset, timeout) that
// survived the whole retry budget.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("gateway: network failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RateLimitError reports that the provider kept answering 429 through the
// whole retry budget, amplified cooldowns included.
type RateLimitError struct {
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("gateway: rate limited after %d attempts", e.Attempts)
}

// Retryable reports whether err could have succeeded on another attempt.
// Useful to callers deciding between rescheduling a poll and declaring a
// task dead.
func Retryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status >= 500
	}
	return false
}
