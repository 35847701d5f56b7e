package bleve

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
)

func chunk(contentID string, index int, text string) domain.Chunk {
	return domain.Chunk{
		Text:        text,
		ChunkIndex:  index,
		TotalChunks: index + 1,
		Metadata: domain.ItemMetadata{
			ContentID:   contentID,
			ContentType: domain.ContentTypePage,
			CourseID:    "101",
			Title:       "Notes",
		},
	}
}

func TestIndex_IndexAndSearch(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []domain.Chunk{
		chunk("page_1", 0, "mitochondria are the powerhouse of the cell"),
		chunk("page_2", 0, "photosynthesis happens in chloroplasts"),
	}))

	hits, err := idx.Search(ctx, "mitochondria", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "page_1_chunk_0", hits[0].ChunkID)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestIndex_ReindexReplaces(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []domain.Chunk{chunk("page_1", 0, "old words")}))
	require.NoError(t, idx.Index(ctx, []domain.Chunk{chunk("page_1", 0, "new words")}))

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := idx.Search(ctx, "old", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_LargeBatch(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()

	chunks := make([]domain.Chunk, 0, 250)
	for i := range 250 {
		chunks = append(chunks, chunk(fmt.Sprintf("page_%d", i), 0, "biology lecture"))
	}
	require.NoError(t, idx.Index(context.Background(), chunks))

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 250, n)
}

func TestIndex_Delete(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []domain.Chunk{
		chunk("page_1", 0, "enzymes"),
		chunk("page_1", 1, "enzymes again"),
	}))
	require.NoError(t, idx.Delete(ctx, []string{"page_1_chunk_1", "missing"}))
	require.NoError(t, idx.Delete(ctx, nil))

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndex_PersistsAndResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.bleve")
	ctx := context.Background()

	idx, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, idx.Index(ctx, []domain.Chunk{chunk("page_1", 0, "osmosis")}))
	require.NoError(t, idx.Close())

	idx, err = Open(path)
	require.NoError(t, err)
	defer idx.Close()

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, idx.Reset(ctx))
	n, err = idx.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}
