package integrations

import (
	"errors"
	"fmt"
)

// UpstreamRequestError is returned when the Canvas API answers with a
// non-success status.
type UpstreamRequestError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *UpstreamRequestError) Error() string {
	return fmt.Sprintf("canvas API returned status %d for %s: %s", e.StatusCode, e.Endpoint, e.Body)
}

// UpstreamUnavailableError is returned when the Canvas API could not be
// reached at all (DNS, connection refused, per-call timeout).
type UpstreamUnavailableError struct {
	Endpoint string
	Err      error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("canvas API unavailable for %s: %v", e.Endpoint, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

func IsUnavailable(err error) bool {
	var unavailable *UpstreamUnavailableError
	return errors.As(err, &unavailable)
}

// StatusCode returns the HTTP status carried by an UpstreamRequestError, or 0.
func StatusCode(err error) int {
	var reqErr *UpstreamRequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}
