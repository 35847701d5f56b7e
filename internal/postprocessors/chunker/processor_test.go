package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
)

// words returns "w0 w1 ... w(n-1)".
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

// expectedChunks is ceil((n-size)/(size-overlap)) + 1 for n > size.
func expectedChunks(n, size, overlap int) int {
	if n == 0 {
		return 0
	}
	if n <= size {
		return 1
	}
	step := size - overlap
	return (n-size+step-1)/step + 1
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		assert.Equal(t, 500, p.ChunkSize())
		assert.Equal(t, 50, p.Overlap())
	})

	t.Run("custom values", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(10))
		assert.Equal(t, 100, p.ChunkSize())
		assert.Equal(t, 10, p.Overlap())
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		assert.Equal(t, 25, p.Overlap())
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, p.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, p.Overlap())
	})
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "chunker", New().Name())
}

func TestSplit_Empty(t *testing.T) {
	p := New()
	assert.Empty(t, p.Split(""))
	assert.Empty(t, p.Split("  \n\t "))
}

func TestSplit_ShortTextIsSingleTrimmedChunk(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(2))
	got := p.Split("  Syllabus:\n  read   chapter one  ")
	require.Len(t, got, 1)
	assert.Equal(t, "Syllabus:\n  read   chapter one", got[0])

	got = p.Split(words(10))
	require.Len(t, got, 1)
	assert.Equal(t, words(10), got[0])
}

func TestSplit_ChunkCountFormula(t *testing.T) {
	tests := []struct {
		n, size, overlap int
	}{
		{11, 10, 2},
		{18, 10, 2},
		{19, 10, 2},
		{26, 10, 2},
		{1200, 500, 50},
		{1001, 500, 0},
		{37, 5, 4},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d size=%d overlap=%d", tt.n, tt.size, tt.overlap), func(t *testing.T) {
			p := New(WithChunkSize(tt.size), WithOverlap(tt.overlap))
			got := p.Split(words(tt.n))
			assert.Len(t, got, expectedChunks(tt.n, tt.size, tt.overlap))
		})
	}
}

func TestSplit_WindowsOverlapAndEndAtLastWord(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(3))
	got := p.Split(words(24))

	// starts at 0, 7, 14; the third window reaches word 23
	require.Len(t, got, 3)
	assert.Equal(t, words(10), got[0])
	first := strings.Fields(got[0])
	second := strings.Fields(got[1])
	assert.Equal(t, first[7:], second[:3])
	last := strings.Fields(got[2])
	assert.Equal(t, "w23", last[len(last)-1])
	assert.Equal(t, "w14", last[0])
}

func TestSplit_LastWindowTruncated(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(2))
	got := p.Split(words(12))
	require.Len(t, got, 2)
	assert.Len(t, strings.Fields(got[0]), 10)
	assert.Equal(t, []string{"w8", "w9", "w10", "w11"}, strings.Fields(got[1]))
}

func TestChunk_BackfillsTotals(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(2))
	meta := domain.ItemMetadata{ContentID: "page-1", Title: "Week 1"}

	chunks := p.Chunk(words(30), meta)
	require.Len(t, chunks, expectedChunks(30, 10, 2))
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, len(chunks), c.TotalChunks)
		assert.Equal(t, "Week 1", c.Metadata.Title)
		assert.Equal(t, domain.ChunkID("page-1", i), c.ID())
	}
}

func TestChunk_IDsUniqueAndStable(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(2))
	meta := domain.ItemMetadata{ContentID: "a"}

	first := p.Chunk(words(50), meta)
	second := p.Chunk(words(50), meta)
	require.Equal(t, len(first), len(second))

	seen := make(map[string]bool)
	for i := range first {
		assert.Equal(t, first[i].ID(), second[i].ID())
		assert.False(t, seen[first[i].ID()])
		seen[first[i].ID()] = true
	}
}

func TestChunk_Empty(t *testing.T) {
	assert.Nil(t, New().Chunk("", domain.ItemMetadata{ContentID: "x"}))
}
