package driven

import "context"

// VectorIndex stores chunk vectors alongside their text and metadata.
// Records are keyed by chunk ID so upserting the same ID overwrites.
type VectorIndex interface {
	// Upsert inserts or replaces records.
	Upsert(ctx context.Context, records []VectorRecord) error

	// Delete removes records by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// Query returns the k records nearest to the vector whose metadata
	// matches every key in filter.
	Query(ctx context.Context, vector []float32, k int, filter map[string]any) ([]VectorMatch, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Reset removes every record.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorRecord is one chunk as stored in the index.
type VectorRecord struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// VectorMatch represents a similarity query result.
type VectorMatch struct {
	VectorRecord

	// Similarity is the cosine similarity score.
	Similarity float64
}
