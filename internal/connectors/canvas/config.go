package canvas

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default API request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultDownloadTimeout is the timeout for file downloads.
	DefaultDownloadTimeout = 60 * time.Second

	// DefaultPerPage is the page size requested from list endpoints.
	DefaultPerPage = 100

	// MaxAttempts is the number of attempts for 5xx and transport errors.
	MaxAttempts = 3

	// APIPath is appended to the base URL.
	APIPath = "/api/v1"

	// AcceptHeader asks Canvas to encode IDs as strings.
	AcceptHeader = "application/json+canvas-string-ids"
)

// DefaultRetryDelays is the backoff schedule for transient failures.
var DefaultRetryDelays = []time.Duration{1 * time.Second, 5 * time.Second, 15 * time.Second}

// Config holds client configuration.
type Config struct {
	// BaseURL is the institution's Canvas root, e.g. https://canvas.example.edu.
	BaseURL string

	// Token is the personal access token.
	Token string

	// RateLimitThreshold is the remaining quota below which the client
	// pauses for ThrottleDelay after each request.
	RateLimitThreshold float64

	// ThrottleDelay is the pause taken when quota runs low.
	ThrottleDelay time.Duration

	// RequestsPerSecond is the proactive throttle rate. Negative disables it.
	RequestsPerSecond float64

	// Timeout bounds each API request.
	Timeout time.Duration

	// DownloadTimeout bounds each file download.
	DownloadTimeout time.Duration

	// PerPage is the page size for list endpoints.
	PerPage int

	// MaxAttempts bounds attempts for 5xx and transport errors.
	MaxAttempts int

	// RetryDelays is the backoff schedule between attempts.
	RetryDelays []time.Duration

	// DefaultRetryAfter is used when a throttled 403 carries no Retry-After.
	DefaultRetryAfter time.Duration

	// HTTPClient is the base client. Its transport is wrapped to add the
	// bearer token. Defaults to http.DefaultClient's transport.
	HTTPClient *http.Client
}

// withDefaults returns a copy with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.BaseURL = strings.TrimSuffix(c.BaseURL, APIPath)
	if c.RateLimitThreshold == 0 {
		c.RateLimitThreshold = DefaultRateLimitThreshold
	}
	if c.ThrottleDelay == 0 {
		c.ThrottleDelay = DefaultThrottleDelay
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = DefaultDownloadTimeout
	}
	if c.PerPage <= 0 {
		c.PerPage = DefaultPerPage
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = MaxAttempts
	}
	if len(c.RetryDelays) == 0 {
		c.RetryDelays = DefaultRetryDelays
	}
	if c.DefaultRetryAfter == 0 {
		c.DefaultRetryAfter = DefaultRetryAfter
	}
	return c
}

// Validate checks required fields.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrConfigMissingBaseURL
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return ErrConfigMissingBaseURL
	}
	if strings.TrimSpace(c.Token) == "" {
		return ErrConfigMissingToken
	}
	return nil
}

// retryDelay returns the backoff before the attempt following failure n
// (zero-based). The schedule's last entry repeats if it runs out.
func (c Config) retryDelay(n int) time.Duration {
	if n < len(c.RetryDelays) {
		return c.RetryDelays[n]
	}
	return c.RetryDelays[len(c.RetryDelays)-1]
}
