package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrMissingToken is returned by New when no API token is configured.
	ErrMissingToken = errors.New("api token is required")

	// ErrInvalidBaseURL is returned by New when the base URL is not an
	// absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base url")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// classify maps an HTTP status to an ErrorClass. 2xx and 3xx yield "".
func classify(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// APIError is returned for every non-2xx response.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	ErrorClass ErrorClass

	// Message is the upstream error message when the body carried one,
	// otherwise the HTTP status text.
	Message string

	// Body is the (truncated) raw response body.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("ninox %s error (status %d) on %s %s: %s",
		e.ErrorClass, e.StatusCode, e.Method, e.Endpoint, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
