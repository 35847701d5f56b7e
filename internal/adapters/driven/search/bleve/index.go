// Package bleve provides a keyword index over chunks using bleve.
//
// An empty path keeps the index in memory. Otherwise the index lives in a
// directory that is created on first use and reopened afterwards.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.KeywordIndex = (*Index)(nil)

// batchSize bounds the documents sent per bleve batch.
const batchSize = 100

// document is the indexed form of a chunk.
type document struct {
	Text        string `json:"text"`
	Title       string `json:"title"`
	CourseID    string `json:"course_id"`
	ContentType string `json:"content_type"`
}

// Index is a bleve-backed keyword index.
type Index struct {
	mu    sync.RWMutex
	path  string
	index bleve.Index
}

// Open opens the index at path, creating it if missing.
func Open(path string) (*Index, error) {
	idx, err := openOrCreate(path)
	if err != nil {
		return nil, err
	}
	return &Index{path: path, index: idx}, nil
}

func openOrCreate(path string) (bleve.Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("bleve: create memory index: %w", err)
		}
		return idx, nil
	}

	idx, err := bleve.Open(path)
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, fmt.Errorf("bleve: open %s: %w", path, err)
	}
	logger.Debug("bleve: creating index at %s", path)
	idx, err = bleve.New(path, bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("bleve: create %s: %w", path, err)
	}
	return idx, nil
}

// Index adds or replaces chunks.
func (i *Index) Index(_ context.Context, chunks []domain.Chunk) error {
	i.mu.RLock()
	defer i.mu.RUnlock()

	batch := i.index.NewBatch()
	for n, c := range chunks {
		doc := document{
			Text:        c.Text,
			Title:       c.Metadata.Title,
			CourseID:    c.Metadata.CourseID,
			ContentType: string(c.Metadata.ContentType),
		}
		if err := batch.Index(c.ID(), doc); err != nil {
			return fmt.Errorf("bleve: add %s to batch: %w", c.ID(), err)
		}
		if (n+1)%batchSize == 0 {
			if err := i.index.Batch(batch); err != nil {
				return fmt.Errorf("bleve: index batch: %w", err)
			}
			batch = i.index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := i.index.Batch(batch); err != nil {
			return fmt.Errorf("bleve: index batch: %w", err)
		}
	}
	return nil
}

// Delete removes chunks by ID.
func (i *Index) Delete(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	batch := i.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("bleve: delete: %w", err)
	}
	return nil
}

// Search runs a match query and returns the best hits.
func (i *Index) Search(_ context.Context, query string, limit int) ([]driven.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve: search: %w", err)
	}

	hits := make([]driven.SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, driven.SearchHit{ChunkID: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Count returns the number of indexed chunks.
func (i *Index) Count() (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	n, err := i.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("bleve: count: %w", err)
	}
	return int(n), nil
}

// Reset removes every document by recreating the index.
func (i *Index) Reset(_ context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.index.Close(); err != nil {
		logger.Warn("bleve: closing index before reset: %v", err)
	}
	if i.path != "" {
		if err := os.RemoveAll(i.path); err != nil {
			return fmt.Errorf("bleve: remove %s: %w", i.path, err)
		}
	}
	idx, err := openOrCreate(i.path)
	if err != nil {
		return err
	}
	i.index = idx
	return nil
}

// Close closes the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}
