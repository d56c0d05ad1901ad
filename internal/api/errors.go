package api

import (
	"errors"
	"fmt"
)

var (
	// ErrEndpointNotConfigured is returned when the endpoint for an operation is empty.
	ErrEndpointNotConfigured = errors.New("endpoint not configured")

	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrMissingField is returned when a response lacks a required field.
	ErrMissingField = errors.New("response is missing a required field")

	// ErrResponseTooLarge is returned when a response body exceeds MaxResponseSize.
	ErrResponseTooLarge = errors.New("response exceeds size limit")
)

// StatusError is returned when a service answers with a non-2xx HTTP status.
type StatusError struct {
	// Method is the HTTP method of the failed request.
	Method string
	// URL is the request URL.
	URL string
	// StatusCode is the HTTP status code.
	StatusCode int
	// Body is the (possibly truncated) response body.
	Body string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}
