package driven

import (
	"context"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
)

// KeywordIndex provides full-text indexing of chunks.
type KeywordIndex interface {
	// Index adds or replaces chunks, keyed by chunk ID.
	Index(ctx context.Context, chunks []domain.Chunk) error

	// Delete removes chunks by ID.
	Delete(ctx context.Context, ids []string) error

	// Search performs a keyword search and returns matching chunk IDs with scores.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)

	// Reset removes every document from the index.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// SearchHit represents a search result from the engine.
type SearchHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the relevance score.
	Score float64
}
