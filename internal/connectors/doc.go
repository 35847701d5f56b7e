// Package connectors holds the clients for the remote systems content is
// ingested from. Each subpackage speaks one API.
//
//   - canvas: Canvas LMS REST API (pagination, retry, rate limiting)
package connectors
