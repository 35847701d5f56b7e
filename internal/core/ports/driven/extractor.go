package driven

import (
	"context"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
)

// TextExtractor converts document bytes into plain text.
type TextExtractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Extract returns the text of the document.
	// Returns domain.ErrExtractionFailed when no text could be recovered.
	Extract(ctx context.Context, content []byte) (string, error)
}

// Chunker splits extracted text into overlapping windows.
type Chunker interface {
	// Split returns the text windows. Empty input yields none.
	Split(text string) []string

	// Chunk splits text and copies meta onto every chunk.
	Chunk(text string, meta domain.ItemMetadata) []domain.Chunk
}
