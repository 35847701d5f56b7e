package postprocessors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
)

func TestNewChunker(t *testing.T) {
	p := NewChunker(domain.ChunkSettings{Size: 200, Overlap: 20})
	assert.Equal(t, 200, p.ChunkSize())
	assert.Equal(t, 20, p.Overlap())

	p = NewChunker(domain.ChunkSettings{})
	assert.Equal(t, domain.DefaultChunkSize, p.ChunkSize())
	assert.Equal(t, 0, p.Overlap())
}

func TestChunkerFromConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfg         map[string]any
		wantSize    int
		wantOverlap int
	}{
		{"nil config", nil, 500, 50},
		{"int values", map[string]any{"chunk_size": 100, "overlap": 10}, 100, 10},
		{"int64 values", map[string]any{"chunk_size": int64(300), "overlap": int64(30)}, 300, 30},
		{"float values", map[string]any{"chunk_size": 250.0, "overlap": 25.0}, 250, 25},
		{"wrong types", map[string]any{"chunk_size": "big", "overlap": true}, 500, 50},
		{"overlap clamped", map[string]any{"chunk_size": 40, "overlap": 80}, 40, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ChunkerFromConfig(tt.cfg)
			assert.Equal(t, tt.wantSize, p.ChunkSize())
			assert.Equal(t, tt.wantOverlap, p.Overlap())
		})
	}
}
