package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/logger"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// Client is a Canvas REST API client.
type Client struct {
	cfg         Config
	apiBase     *url.URL
	http        *http.Client // Authenticated
	download    *http.Client // Unauthenticated, for signed file URLs
	rateLimiter *RateLimiter
	sleep       sleepFunc
}

// ListPage is one page of a list response.
type ListPage struct {
	// Items are the raw JSON elements of the page.
	Items []json.RawMessage

	// Next is the absolute URL of the following page, empty on the last.
	Next string

	// Single is true when the body was an object rather than a list.
	// Pagination stops after a single-item page.
	Single bool
}

// NewClient creates a Canvas client with bearer-token authentication.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	apiBase, err := url.Parse(cfg.BaseURL + APIPath)
	if err != nil {
		return nil, fmt.Errorf("canvas: parse base URL: %w", err)
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	)
	tc := oauth2.NewClient(context.WithValue(context.Background(), oauth2.HTTPClient, base), ts)
	tc.Timeout = cfg.Timeout

	rl := NewRateLimiter(cfg.RequestsPerSecond, cfg.RateLimitThreshold)

	return &Client{
		cfg:         cfg,
		apiBase:     apiBase,
		http:        tc,
		download:    &http.Client{Transport: base.Transport, Timeout: cfg.DownloadTimeout},
		rateLimiter: rl,
		sleep:       sleepContext,
	}, nil
}

// RateLimiter returns the shared rate limiter.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// BaseURL returns the configured Canvas root.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// endpointURL builds an absolute API URL from an endpoint path and params.
func (c *Client) endpointURL(endpoint string, params url.Values) string {
	u := *c.apiBase
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// FetchPage fetches a single page of a list endpoint.
func (c *Client) FetchPage(ctx context.Context, endpoint string, params url.Values) (*ListPage, error) {
	return c.fetchPageURL(ctx, c.endpointURL(endpoint, params))
}

// fetchPageURL fetches one page by absolute URL.
func (c *Client) fetchPageURL(ctx context.Context, rawURL string) (*ListPage, error) {
	resp, err := c.do(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	page := &ListPage{}
	trimmed := bytes.TrimSpace(resp.body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &page.Items); err != nil {
			return nil, fmt.Errorf("canvas: decode list %s: %w", rawURL, err)
		}
	} else {
		if len(trimmed) == 0 {
			trimmed = []byte("null")
		}
		page.Items = []json.RawMessage{json.RawMessage(trimmed)}
		page.Single = true
		return page, nil
	}

	next := ParseNextLink(resp.header.Get("Link"))
	if next != "" && !sameHost(c.apiBase, next) {
		return nil, fmt.Errorf("%w: %s", ErrForeignNextLink, next)
	}
	page.Next = next
	return page, nil
}

// ListAll walks every page of a list endpoint and returns all items.
// Pagination requests per_page items and follows rel="next" links verbatim.
func (c *Client) ListAll(ctx context.Context, endpoint string, params url.Values) ([]json.RawMessage, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	q.Set("per_page", strconv.Itoa(c.cfg.PerPage))

	var all []json.RawMessage
	next := c.endpointURL(endpoint, q)
	pages := 0

	for next != "" {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return all, ctx.Err()
		default:
		}

		page, err := c.fetchPageURL(ctx, next)
		if err != nil {
			return all, err
		}
		pages++
		all = append(all, page.Items...)
		if page.Single {
			break
		}
		next = page.Next
	}

	logger.Debug("canvas: %s returned %d items over %d pages", endpoint, len(all), pages)
	return all, nil
}

// Get fetches a single object and decodes it into out.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, out any) error {
	rawURL := c.endpointURL(endpoint, params)
	resp, err := c.do(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("canvas: decode %s: %w", rawURL, err)
	}
	return nil
}

// listAs walks a list endpoint and decodes every item as T.
func listAs[T any](ctx context.Context, c *Client, endpoint string, params url.Values) ([]T, error) {
	raw, err := c.ListAll(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		if string(r) == "null" {
			continue
		}
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("canvas: decode %s item: %w", endpoint, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// response is a fully read successful response.
type response struct {
	status int
	header http.Header
	body   []byte
}

// do issues a GET with the retry policy:
// a rate-limit 403 waits out Retry-After and retries without consuming
// attempts, any other 403 fails,
// 5xx and transport errors retry up to MaxAttempts, 401/404/other fail.
//
//nolint:gocyclo // Status dispatch is clearer as one switch.
func (c *Client) do(ctx context.Context, rawURL string) (*response, error) {
	failures := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Wait for rate limit
		if err := c.rateLimiter.Wait(ctx); err != nil {
			if retryAt := c.rateLimiter.RetryAt(); retryAt.After(time.Now()) {
				return nil, &RateLimitError{RetryAt: retryAt, URL: rawURL}
			}
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		resp, err := c.get(ctx, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			if failures >= c.cfg.MaxAttempts {
				return nil, fmt.Errorf("canvas: request failed after %d attempts (URL: %s): %w", failures, rawURL, err)
			}
			delay := c.cfg.retryDelay(failures - 1)
			logger.Warn("canvas: request error, retrying in %s: %v", delay, err)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.status >= 200 && resp.status < 300:
			if c.rateLimiter.BelowThreshold() {
				logger.Warn("canvas: rate limit warning, %.0f requests remaining", c.rateLimiter.Remaining())
				if err := c.sleep(ctx, c.cfg.ThrottleDelay); err != nil {
					return nil, err
				}
			}
			return resp, nil

		case resp.status == http.StatusForbidden:
			if !rateLimitExceeded(resp.header, resp.body) {
				return nil, &APIError{StatusCode: resp.status, Message: statusMessage(resp.status, resp.body), URL: rawURL}
			}
			// The next Wait blocks every caller until the deadline passes.
			wait := parseRetryAfter(resp.header, c.cfg.DefaultRetryAfter)
			c.rateLimiter.RecordRetryAfter(wait)
			logger.Warn("canvas: rate limited, waiting %s", wait)
			continue

		case resp.status == http.StatusNotFound, resp.status == http.StatusUnauthorized:
			return nil, &APIError{StatusCode: resp.status, Message: statusMessage(resp.status, resp.body), URL: rawURL}

		case resp.status >= http.StatusInternalServerError:
			failures++
			apiErr := &APIError{StatusCode: resp.status, Message: statusMessage(resp.status, resp.body), URL: rawURL}
			if failures >= c.cfg.MaxAttempts {
				return nil, apiErr
			}
			delay := c.cfg.retryDelay(failures - 1)
			logger.Warn("canvas: server error %d, retrying in %s", resp.status, delay)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue

		default:
			return nil, &APIError{StatusCode: resp.status, Message: statusMessage(resp.status, resp.body), URL: rawURL}
		}
	}
}

// get performs one authenticated request and reads the body.
func (c *Client) get(ctx context.Context, rawURL string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("canvas: build request: %w", err)
	}
	req.Header.Set("Accept", AcceptHeader)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.rateLimiter.UpdateFromResponse(resp)

	var reader io.Reader = resp.Body
	if resp.StatusCode >= 300 {
		reader = io.LimitReader(resp.Body, maxErrorBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("canvas: read body: %w", err)
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// downloadURL fetches a signed file URL without the bearer token.
// At most limit bytes are read; larger bodies fail.
func (c *Client) downloadURL(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("canvas: build download request: %w", err)
	}

	resp, err := c.download.Do(req)
	if err != nil {
		return nil, fmt.Errorf("canvas: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode), URL: redactQuery(rawURL)}
	}

	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("canvas: read download: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: download exceeds %d bytes", domain.ErrFileTooLarge, limit)
	}
	return data, nil
}

// redactQuery strips the signature from a file URL before it is logged.
func redactQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}
