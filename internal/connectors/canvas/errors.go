package canvas

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
)

// Canvas-specific errors.
var (
	// ErrNoDownloadURL indicates a file record had no signed download URL.
	ErrNoDownloadURL = errors.New("canvas: file has no download URL")

	// ErrForeignNextLink indicates a pagination link pointed at another host.
	ErrForeignNextLink = errors.New("canvas: pagination link points at a different host")

	// ErrConfigMissingBaseURL indicates the base URL was not set.
	ErrConfigMissingBaseURL = errors.New("canvas: base URL is required")

	// ErrConfigMissingToken indicates the API token was not set.
	ErrConfigMissingToken = errors.New("canvas: API token is required")
)

// RateLimitError is returned when the context ends while waiting out a
// rate limit.
type RateLimitError struct {
	RetryAt time.Time
	URL     string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("canvas: rate limited until %s (URL: %s)", e.RetryAt.Format(time.RFC3339), e.URL)
}

// Unwrap allows errors.Is(err, domain.ErrRateLimited).
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// APIError represents a Canvas API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("canvas: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap maps the status code onto the domain error taxonomy.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return domain.ErrAuthInvalid
	case e.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case e.StatusCode == http.StatusForbidden:
		return domain.ErrForbidden
	case e.StatusCode >= http.StatusInternalServerError:
		return domain.ErrServerError
	default:
		return nil
	}
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return errors.Is(err, domain.ErrNotFound)
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return errors.Is(err, domain.ErrAuthInvalid)
}

// IsServerError checks if the error is a 5xx that exhausted its retries.
func IsServerError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// statusMessage builds an error message from a response body.
// Canvas returns {"errors":[{"message":"..."}]} on most failures.
func statusMessage(status int, body []byte) string {
	if msg := parseErrorBody(body); msg != "" {
		return msg
	}
	return http.StatusText(status)
}
