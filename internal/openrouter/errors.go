package openrouter

import (
	"errors"
	"fmt"
)

// APIError is a response the provisioning API answered with a status code
// outside the call's success set. Detail holds the trimmed response body,
// capped at a few KB, for the operator's eyes.
type APIError struct {
	Op     string
	Target string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.Target, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
}

// IsAPIError reports whether err is (or wraps) an *APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
