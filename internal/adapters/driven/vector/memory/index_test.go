package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
)

func seed(t *testing.T) *Index {
	t.Helper()
	idx := New()
	require.NoError(t, idx.Upsert(context.Background(), []driven.VectorRecord{
		{ID: "a", Vector: []float32{1, 0}, Text: "alpha", Metadata: map[string]any{"course_id": "101", "chunk_index": 0}},
		{ID: "b", Vector: []float32{0.9, 0.1}, Text: "beta", Metadata: map[string]any{"course_id": "101", "chunk_index": 1}},
		{ID: "c", Vector: []float32{0, 1}, Text: "gamma", Metadata: map[string]any{"course_id": "202"}},
	}))
	return idx
}

func TestIndex_UpsertOverwrites(t *testing.T) {
	idx := seed(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []driven.VectorRecord{{ID: "a", Vector: []float32{0, 1}, Text: "alpha v2"}}))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	r, ok := idx.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha v2", r.Text)
}

func TestIndex_UpsertRejectsEmptyID(t *testing.T) {
	assert.Error(t, New().Upsert(context.Background(), []driven.VectorRecord{{Text: "x"}}))
}

func TestIndex_Query(t *testing.T) {
	idx := seed(t)

	matches, err := idx.Query(context.Background(), []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "b", matches[1].ID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
}

func TestIndex_QueryFilter(t *testing.T) {
	idx := seed(t)
	ctx := context.Background()

	matches, err := idx.Query(ctx, []float32{1, 0}, 10, map[string]any{"course_id": "202"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "c", matches[0].ID)

	matches, err = idx.Query(ctx, []float32{1, 0}, 10, map[string]any{"chunk_index": "1"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].ID)
}

func TestIndex_QueryNonPositiveK(t *testing.T) {
	matches, err := seed(t).Query(context.Background(), []float32{1, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndex_DeleteAndReset(t *testing.T) {
	idx := seed(t)
	ctx := context.Background()

	require.NoError(t, idx.Delete(ctx, []string{"a", "missing"}))
	assert.Equal(t, []string{"b", "c"}, idx.IDs())

	require.NoError(t, idx.Reset(ctx))
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, idx.Close())
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosine([]float32{1}, []float32{1, 0}))
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 0}))
}
