package domain

import (
	"fmt"
	"strings"
)

// Default settings values.
const (
	DefaultChunkSize          = 500
	DefaultChunkOverlap       = 50
	DefaultBatchSize          = 100
	DefaultWorkers            = 4
	DefaultRateLimitThreshold = 100
	DefaultMaxFileSizeMB      = 50
	DefaultEmbeddingModel     = "nomic-embed-text"
	DefaultOllamaBaseURL      = "http://localhost:11434"
	DefaultStateBackend       = StateBackendSQLite
)

// StateBackend selects where the tracker persists its state.
type StateBackend string

// Available state backends.
const (
	// StateBackendSQLite stores one row per item in a local database.
	StateBackendSQLite StateBackend = "sqlite"

	// StateBackendFile stores a single JSON document.
	StateBackendFile StateBackend = "file"

	// StateBackendMemory keeps state for the lifetime of the process.
	StateBackendMemory StateBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StateBackend) IsValid() bool {
	switch b {
	case StateBackendSQLite, StateBackendFile, StateBackendMemory:
		return true
	default:
		return false
	}
}

// CanvasSettings holds the LMS connection configuration.
type CanvasSettings struct {
	// BaseURL is the institution's Canvas root, without /api/v1.
	BaseURL string

	// Token is the personal access token.
	Token string

	// CourseIDs are the courses ingested when none are given explicitly.
	CourseIDs []string

	// RateLimitThreshold triggers a short self-throttle when the
	// remaining quota drops below it.
	RateLimitThreshold float64
}

// IsConfigured returns true if the connection can be attempted.
func (c CanvasSettings) IsConfigured() bool {
	return c.BaseURL != "" && c.Token != ""
}

// ChunkSettings holds the chunker configuration, measured in words.
type ChunkSettings struct {
	Size    int
	Overlap int
}

// IngestSettings holds pipeline configuration.
type IngestSettings struct {
	// BatchSize is the number of chunks embedded and upserted per call.
	BatchSize int

	// Workers bounds the number of courses processed concurrently.
	Workers int

	// MaxFileSizeMB is the largest file downloaded for extraction.
	MaxFileSizeMB int

	// ContentTypes are the handlers run by default.
	ContentTypes []ContentType

	// PruneDeleted flags items that disappeared from the source and
	// removes their chunks.
	PruneDeleted bool
}

// StateSettings holds tracker persistence configuration.
type StateSettings struct {
	Backend StateBackend

	// Path is the database or JSON file location.
	Path string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Model is the embedding model name.
	Model string

	// BaseURL is the Ollama endpoint.
	BaseURL string
}

// IsConfigured returns true if an embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	return e.Model != "" && e.BaseURL != ""
}

// VectorSettings holds vector index configuration.
type VectorSettings struct {
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory index.
	DatabaseURL string

	// Table is the chunk table name.
	Table string
}

// SearchSettings holds keyword index configuration.
type SearchSettings struct {
	// IndexPath is the bleve index directory. Empty disables keyword indexing.
	IndexPath string
}

// Settings is the full application configuration.
type Settings struct {
	Canvas    CanvasSettings
	Chunk     ChunkSettings
	Ingest    IngestSettings
	State     StateSettings
	Embedding EmbeddingSettings
	Vector    VectorSettings
	Search    SearchSettings
}

// DefaultContentTypes returns the handlers run when none are configured.
func DefaultContentTypes() []ContentType {
	return []ContentType{
		ContentTypeModule,
		ContentTypePage,
		ContentTypeAssignment,
		ContentTypeAnnouncement,
		ContentTypeDiscussion,
		ContentTypeFile,
	}
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	return Settings{
		Canvas: CanvasSettings{
			RateLimitThreshold: DefaultRateLimitThreshold,
		},
		Chunk: ChunkSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Ingest: IngestSettings{
			BatchSize:     DefaultBatchSize,
			Workers:       DefaultWorkers,
			MaxFileSizeMB: DefaultMaxFileSizeMB,
			ContentTypes:  DefaultContentTypes(),
			PruneDeleted:  true,
		},
		State: StateSettings{
			Backend: DefaultStateBackend,
		},
		Embedding: EmbeddingSettings{
			Model:   DefaultEmbeddingModel,
			BaseURL: DefaultOllamaBaseURL,
		},
		Vector: VectorSettings{
			Table: "canvas_chunks",
		},
	}
}

// Validate checks that the settings are internally consistent.
func (s Settings) Validate() error {
	var problems []string
	if s.Chunk.Size <= 0 {
		problems = append(problems, "chunk size must be positive")
	}
	if s.Chunk.Overlap < 0 || s.Chunk.Overlap >= s.Chunk.Size {
		problems = append(problems, "chunk overlap must be in [0, chunk size)")
	}
	if s.Ingest.BatchSize <= 0 {
		problems = append(problems, "batch size must be positive")
	}
	if s.Ingest.Workers <= 0 {
		problems = append(problems, "workers must be positive")
	}
	if s.Ingest.MaxFileSizeMB <= 0 {
		problems = append(problems, "max file size must be positive")
	}
	if !s.State.Backend.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown state backend %q", s.State.Backend))
	}
	for _, t := range s.Ingest.ContentTypes {
		if !t.IsValid() {
			problems = append(problems, fmt.Sprintf("unknown content type %q", t))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// MaxFileSizeBytes returns the file size limit in bytes.
func (s IngestSettings) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}
