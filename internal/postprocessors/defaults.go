// Package postprocessors builds the text post-processing stages from settings.
package postprocessors

import (
	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/postprocessors/chunker"
)

// NewChunker creates a chunker from chunk settings.
// Non-positive values fall back to the chunker defaults.
func NewChunker(s domain.ChunkSettings) *chunker.Processor {
	var opts []chunker.Option
	if s.Size > 0 {
		opts = append(opts, chunker.WithChunkSize(s.Size))
	}
	if s.Overlap >= 0 {
		opts = append(opts, chunker.WithOverlap(s.Overlap))
	}
	return chunker.New(opts...)
}

// ChunkerFromConfig creates a chunker from generic config.
// Supported config keys:
//   - chunk_size (int): Words per chunk (default: 500)
//   - overlap (int): Overlapping words between chunks (default: 50)
func ChunkerFromConfig(cfg map[string]any) *chunker.Processor {
	s := domain.ChunkSettings{Size: domain.DefaultChunkSize, Overlap: domain.DefaultChunkOverlap}
	if cfg != nil {
		if size, ok := getIntFromConfig(cfg, "chunk_size"); ok && size > 0 {
			s.Size = size
		}
		if overlap, ok := getIntFromConfig(cfg, "overlap"); ok && overlap >= 0 {
			s.Overlap = overlap
		}
	}
	return NewChunker(s)
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
