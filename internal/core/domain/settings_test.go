package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 500, s.Chunk.Size)
	assert.Equal(t, 50, s.Chunk.Overlap)
	assert.Equal(t, 100, s.Ingest.BatchSize)
	assert.Equal(t, 4, s.Ingest.Workers)
	assert.Equal(t, 50, s.Ingest.MaxFileSizeMB)
	assert.Equal(t, float64(100), s.Canvas.RateLimitThreshold)
	assert.True(t, s.Ingest.PruneDeleted)
	assert.Equal(t, StateBackendSQLite, s.State.Backend)
	assert.NotContains(t, s.Ingest.ContentTypes, ContentTypeSyllabus)
	assert.NoError(t, s.Validate())
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"zero chunk size", func(s *Settings) { s.Chunk.Size = 0 }},
		{"overlap equals size", func(s *Settings) { s.Chunk.Overlap = s.Chunk.Size }},
		{"negative overlap", func(s *Settings) { s.Chunk.Overlap = -1 }},
		{"zero batch", func(s *Settings) { s.Ingest.BatchSize = 0 }},
		{"zero workers", func(s *Settings) { s.Ingest.Workers = 0 }},
		{"zero file size", func(s *Settings) { s.Ingest.MaxFileSizeMB = 0 }},
		{"bad backend", func(s *Settings) { s.State.Backend = "redis" }},
		{"bad content type", func(s *Settings) { s.Ingest.ContentTypes = []ContentType{"quiz"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)
			assert.ErrorIs(t, s.Validate(), ErrConfigInvalid)
		})
	}
}

func TestCanvasSettings_IsConfigured(t *testing.T) {
	assert.False(t, CanvasSettings{}.IsConfigured())
	assert.False(t, CanvasSettings{BaseURL: "https://canvas.example.edu"}.IsConfigured())
	assert.True(t, CanvasSettings{BaseURL: "https://canvas.example.edu", Token: "t"}.IsConfigured())
}

func TestMaxFileSizeBytes(t *testing.T) {
	assert.Equal(t, int64(50*1024*1024), IngestSettings{MaxFileSizeMB: 50}.MaxFileSizeBytes())
}
