// Package memory provides an in-memory vector index for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index keeps records in a map and answers queries by brute-force cosine
// similarity.
type Index struct {
	mu      sync.RWMutex
	records map[string]driven.VectorRecord
}

// New creates an empty index.
func New() *Index {
	return &Index{
		records: make(map[string]driven.VectorRecord),
	}
}

// Upsert inserts or replaces records.
func (i *Index) Upsert(_ context.Context, records []driven.VectorRecord) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("memory index: record without id")
		}
		r.Vector = slices.Clone(r.Vector)
		r.Metadata = maps.Clone(r.Metadata)
		i.records[r.ID] = r
	}
	return nil
}

// Delete removes records by ID.
func (i *Index) Delete(_ context.Context, ids []string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, id := range ids {
		delete(i.records, id)
	}
	return nil
}

// Query returns the k most similar records whose metadata matches filter.
// Filter values compare by their string form.
func (i *Index) Query(_ context.Context, vector []float32, k int, filter map[string]any) ([]driven.VectorMatch, error) {
	if k <= 0 {
		return nil, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	matches := make([]driven.VectorMatch, 0, len(i.records))
	for _, r := range i.records {
		if !matchesFilter(r.Metadata, filter) {
			continue
		}
		matches = append(matches, driven.VectorMatch{
			VectorRecord: r,
			Similarity:   cosine(vector, r.Vector),
		})
	}

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Similarity != matches[b].Similarity {
			return matches[a].Similarity > matches[b].Similarity
		}
		return matches[a].ID < matches[b].ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of records.
func (i *Index) Count(_ context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records), nil
}

// Get returns a record by ID.
func (i *Index) Get(id string) (driven.VectorRecord, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	r, ok := i.records[id]
	return r, ok
}

// IDs returns the stored record IDs in order.
func (i *Index) IDs() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Sorted(maps.Keys(i.records))
}

// Reset removes every record.
func (i *Index) Reset(_ context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.records = make(map[string]driven.VectorRecord)
	return nil
}

// Close is a no-op.
func (i *Index) Close() error {
	return nil
}

func matchesFilter(metadata, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// cosine returns the cosine similarity, or 0 for mismatched or zero vectors.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
