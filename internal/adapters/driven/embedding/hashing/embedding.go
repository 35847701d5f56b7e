// Package hashing provides a deterministic, offline embedding service.
//
// Vectors are built by feature hashing the lowercased words of a text into
// a fixed number of buckets and normalising to unit length. Texts sharing
// words have positive cosine similarity, which is enough for dry runs and
// tests without a model server.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the vector size when none is given.
const DefaultDimensions = 256

// ModelName is reported by the service.
const ModelName = "hashing"

// EmbeddingService embeds text by feature hashing.
type EmbeddingService struct {
	dimensions int
}

// New creates a hashing embedder with the given vector size.
func New(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed returns the vector of one text.
func (s *EmbeddingService) Embed(text string) []float32 {
	vec := make([]float32, s.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum64()

		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vec[sum%uint64(s.dimensions)] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// EmbedBatch embeds texts in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.Embed(t)
	}
	return out, nil
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns "hashing".
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}
