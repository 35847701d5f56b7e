package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown content type or file format.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrIngestInProgress indicates an ingestion run is already active.
	ErrIngestInProgress = errors.New("ingest in progress")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// Authentication Errors.

	// ErrAuthRequired indicates no API token is configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the API rejected the credentials.
	// It is fatal for an ingestion run.
	ErrAuthInvalid = errors.New("authentication invalid")

	// Remote API Errors.

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrForbidden indicates the token lacks permission for a resource.
	ErrForbidden = errors.New("forbidden")

	// ErrServerError indicates the API kept failing with 5xx responses.
	ErrServerError = errors.New("server error")

	// Processing Errors.

	// ErrExtractionFailed indicates a binary document yielded no text.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrFileTooLarge indicates a file exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// Configuration Errors.

	// ErrConfigInvalid indicates a configuration value failed validation.
	ErrConfigInvalid = errors.New("invalid configuration")
)
