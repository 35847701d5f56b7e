// Package canvas provides a client for the Canvas LMS REST API.
//
// The client authenticates with a personal access token, follows
// Link-header pagination, and applies the retry policy Canvas needs:
//
//   - 403 responses are rate limiting. The client sleeps for the server's
//     Retry-After and reissues the same request, indefinitely.
//   - 5xx responses and transport failures are retried a bounded number of
//     times with a fixed backoff schedule.
//   - 401 and 404 fail immediately.
//
// A single Client is safe for concurrent use and shares its rate limit
// state across every caller, so one token's quota is visible to all workers.
package canvas
