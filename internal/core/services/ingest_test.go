package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canvas-sync/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/canvas-sync/internal/adapters/driven/search/bleve"
	"github.com/custodia-labs/canvas-sync/internal/adapters/driven/storage/memory"
	vectormemory "github.com/custodia-labs/canvas-sync/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driving"
	"github.com/custodia-labs/canvas-sync/internal/postprocessors/chunker"
)

// fakeItem is one source item served by fakeHandler.
type fakeItem struct {
	id        string
	updatedAt string
	text      string
}

// fakeHandler serves a fixed item list per course and chunks with a
// three-word window.
type fakeHandler struct {
	contentType domain.ContentType
	chunker     *chunker.Processor

	mu         sync.Mutex
	items      map[string][]fakeItem
	incomplete bool
	err        error
	calls      int
}

func newFakeHandler(t domain.ContentType) *fakeHandler {
	return &fakeHandler{
		contentType: t,
		chunker:     chunker.New(chunker.WithChunkSize(3), chunker.WithOverlap(0)),
		items:       make(map[string][]fakeItem),
	}
}

func (h *fakeHandler) set(courseID string, items ...fakeItem) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items[courseID] = items
}

func (h *fakeHandler) Type() domain.ContentType { return h.contentType }

func (h *fakeHandler) FetchContent(_ context.Context, courseID string) ([]domain.ContentItem, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.ContentItem
	for _, it := range h.items[courseID] {
		out = append(out, domain.ContentItem{
			ContentID:   it.id,
			ContentType: h.contentType,
			CourseID:    courseID,
			Title:       "Title " + it.id,
			UpdatedAt:   it.updatedAt,
			Body:        it.text,
		})
	}
	return out, nil
}

func (h *fakeHandler) ExtractMetadata(item domain.ContentItem, course domain.Course) domain.ItemMetadata {
	return domain.ItemMetadata{
		ContentID:   item.ContentID,
		ContentType: item.ContentType,
		CourseID:    course.ID,
		CourseName:  course.Name,
		Title:       item.Title,
		Source:      domain.SourceName,
		UpdatedAt:   item.UpdatedAt,
	}
}

func (h *fakeHandler) ContentText(_ context.Context, item domain.ContentItem) (string, error) {
	return item.Body, nil
}

func (h *fakeHandler) Process(ctx context.Context, course domain.Course) (*domain.HandlerResult, error) {
	return h.ProcessSelected(ctx, course, nil)
}

func (h *fakeHandler) ProcessSelected(
	ctx context.Context,
	course domain.Course,
	keep domain.ItemFilter,
) (*domain.HandlerResult, error) {
	h.mu.Lock()
	h.calls++
	err, incomplete := h.err, h.incomplete
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	items, _ := h.FetchContent(ctx, course.ID)
	res := &domain.HandlerResult{ContentType: h.contentType, Complete: !incomplete}
	for _, item := range items {
		res.Seen = append(res.Seen, item.ContentID)
		if keep != nil && !keep(item) {
			res.Unchanged++
			continue
		}
		meta := h.ExtractMetadata(item, course)
		chunks := h.chunker.Chunk(item.Body, meta)
		if len(chunks) == 0 {
			res.Skipped++
			res.Empty = append(res.Empty, meta)
			continue
		}
		res.Items++
		res.Chunks = append(res.Chunks, chunks...)
	}
	return res, nil
}

// fakeRegistry maps content types to fake handlers.
type fakeRegistry map[domain.ContentType]driven.ContentHandler

func (r fakeRegistry) Get(t domain.ContentType) (driven.ContentHandler, error) {
	h, ok := r[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, t)
	}
	return h, nil
}

func (r fakeRegistry) Types() []domain.ContentType {
	types := make([]domain.ContentType, 0, len(r))
	for t := range r {
		types = append(types, t)
	}
	return types
}

// fakeDirectory knows a fixed set of courses.
type fakeDirectory map[string]domain.Course

func (d fakeDirectory) GetCourse(_ context.Context, id string) (domain.Course, error) {
	c, ok := d[id]
	if !ok {
		return domain.Course{}, domain.ErrNotFound
	}
	return c, nil
}

func (d fakeDirectory) ListActiveCourses(_ context.Context) ([]domain.Course, error) {
	return []domain.Course{d["101"]}, nil
}

// countingEmbedder wraps the hashing embedder and records batch sizes.
type countingEmbedder struct {
	*hashing.EmbeddingService

	mu      sync.Mutex
	batches []int
	fail    error
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches = append(e.batches, len(texts))
	fail := e.fail
	e.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return e.EmbeddingService.EmbedBatch(ctx, texts)
}

type ingestFixture struct {
	svc      *IngestService
	tracker  *Tracker
	store    *memory.SyncStateStore
	vectors  *vectormemory.Index
	keywords *bleve.Index
	embedder *countingEmbedder
	pages    *fakeHandler
	files    *fakeHandler
}

func newIngestFixture(t *testing.T, batchSize int) *ingestFixture {
	t.Helper()
	tr, store := newTestTracker(t)
	keywords, err := bleve.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = keywords.Close() })

	f := &ingestFixture{
		tracker:  tr,
		store:    store,
		vectors:  vectormemory.New(),
		keywords: keywords,
		embedder: &countingEmbedder{EmbeddingService: hashing.New(16)},
		pages:    newFakeHandler(domain.ContentTypePage),
		files:    newFakeHandler(domain.ContentTypeFile),
	}
	registry := fakeRegistry{
		domain.ContentTypePage: f.pages,
		domain.ContentTypeFile: f.files,
	}
	directory := fakeDirectory{
		"101": {ID: "101", Name: "Biology 101"},
		"202": {ID: "202", Name: "Chemistry"},
	}
	settings := domain.IngestSettings{
		BatchSize:    batchSize,
		Workers:      2,
		ContentTypes: []domain.ContentType{domain.ContentTypePage, domain.ContentTypeFile},
		PruneDeleted: true,
	}
	f.svc = NewIngestService(directory, registry, tr, f.embedder, f.vectors, keywords, settings, []string{"101"})
	return f
}

func (f *ingestFixture) ingest(t *testing.T, mode domain.IngestMode, courses ...string) *domain.IngestReport {
	t.Helper()
	report, err := f.svc.Ingest(context.Background(), driving.IngestRequest{CourseIDs: courses, Mode: mode})
	require.NoError(t, err)
	return report
}

func TestIngest_FullRunWritesChunks(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101",
		fakeItem{id: "page_1", updatedAt: "2024-01-01T00:00:00Z", text: "one two three four five six seven"},
		fakeItem{id: "page_2", updatedAt: "2024-01-02T00:00:00Z", text: "short page"},
	)
	f.files.set("101", fakeItem{id: "file_9", updatedAt: "2024-01-03T00:00:00Z", text: "lecture slides"})

	report := f.ingest(t, domain.IngestModeFull)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, domain.IngestModeFull, report.Mode)
	require.Len(t, report.Courses, 1)
	cr := report.Courses[0]
	assert.Equal(t, "Biology 101", cr.CourseName)
	assert.NoError(t, cr.Err)
	assert.Equal(t, 4, cr.Chunks[domain.ContentTypePage])
	assert.Equal(t, 1, cr.Chunks[domain.ContentTypeFile])
	assert.Equal(t, 5, report.Total())

	assert.Equal(t, []string{
		"file_9_chunk_0",
		"page_1_chunk_0", "page_1_chunk_1", "page_1_chunk_2",
		"page_2_chunk_0",
	}, f.vectors.IDs())

	rec, ok := f.vectors.Get("page_1_chunk_2")
	require.True(t, ok)
	assert.Equal(t, "seven", rec.Text)
	assert.Len(t, rec.Vector, 16)
	assert.Equal(t, "Biology 101", rec.Metadata["course_name"])
	assert.Equal(t, 2, rec.Metadata["chunk_index"])
	assert.Equal(t, 3, rec.Metadata["total_chunks"])

	tracked, ok := f.tracker.Record("page_1")
	require.True(t, ok)
	assert.Equal(t, 3, tracked.ChunkCount)
	assert.Equal(t, "101", tracked.CourseID)
	assert.Equal(t, "2024-01-01T00:00:00Z", tracked.UpdatedAt)

	assert.Equal(t, "2024-03-01T12:00:00Z", f.tracker.LastSync("101"))
	assert.Equal(t, "2024-03-01T12:00:00Z", f.tracker.Stats().LastFullSync)

	n, err := f.keywords.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestIngest_IncrementalSkipsUnchanged(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101",
		fakeItem{id: "page_1", updatedAt: "2024-01-01T00:00:00Z", text: "alpha"},
		fakeItem{id: "page_2", updatedAt: "2024-01-01T00:00:00Z", text: "beta"},
	)

	first := f.ingest(t, domain.IngestModeIncremental)
	assert.Equal(t, 2, first.Total())
	assert.Empty(t, f.tracker.Stats().LastFullSync)

	second := f.ingest(t, domain.IngestModeIncremental)
	assert.Zero(t, second.Total())

	f.pages.set("101",
		fakeItem{id: "page_1", updatedAt: "2024-02-01T00:00:00Z", text: "alpha revised"},
		fakeItem{id: "page_2", updatedAt: "2024-01-01T00:00:00Z", text: "beta"},
	)
	third := f.ingest(t, domain.IngestModeIncremental)
	assert.Equal(t, 1, third.Total())

	rec, ok := f.vectors.Get("page_1_chunk_0")
	require.True(t, ok)
	assert.Equal(t, "alpha revised", rec.Text)
}

func TestIngest_FullModeReprocessesEverything(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "2024-01-01T00:00:00Z", text: "alpha"})

	f.ingest(t, domain.IngestModeIncremental)
	report := f.ingest(t, domain.IngestModeFull)
	assert.Equal(t, 1, report.Total())
}

func TestIngest_StaleTrailingChunksDeleted(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "a b c d e f g h i"})
	f.ingest(t, domain.IngestModeFull)
	assert.Len(t, f.vectors.IDs(), 3)

	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t2", text: "a b"})
	f.ingest(t, domain.IngestModeFull)

	assert.Equal(t, []string{"page_1_chunk_0"}, f.vectors.IDs())
	rec, _ := f.tracker.Record("page_1")
	assert.Equal(t, 1, rec.ChunkCount)

	n, err := f.keywords.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIngest_DeletedItemsPruned(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101",
		fakeItem{id: "page_1", updatedAt: "t1", text: "keep me"},
		fakeItem{id: "page_2", updatedAt: "t1", text: "a b c d"},
	)
	f.ingest(t, domain.IngestModeFull)

	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "keep me"})
	report := f.ingest(t, domain.IngestModeIncremental)

	assert.Equal(t, 1, report.Courses[0].Deleted)
	assert.Equal(t, []string{"page_1_chunk_0"}, f.vectors.IDs())
	assert.Equal(t, []string{"page_2"}, f.tracker.DeletedItems())
}

func TestIngest_RestoredItemReindexed(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101",
		fakeItem{id: "page_1", updatedAt: "t1", text: "keep me"},
		fakeItem{id: "page_2", updatedAt: "t1", text: "a b c d"},
	)
	f.ingest(t, domain.IngestModeFull)

	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "keep me"})
	f.ingest(t, domain.IngestModeIncremental)
	require.Equal(t, []string{"page_2"}, f.tracker.DeletedItems())

	f.pages.set("101",
		fakeItem{id: "page_1", updatedAt: "t1", text: "keep me"},
		fakeItem{id: "page_2", updatedAt: "t1", text: "a b c d"},
	)
	report := f.ingest(t, domain.IngestModeIncremental)

	assert.Equal(t, 2, report.Courses[0].Total())
	assert.Equal(t, []string{"page_1_chunk_0", "page_2_chunk_0", "page_2_chunk_1"}, f.vectors.IDs())
	assert.Empty(t, f.tracker.DeletedItems())
	rec, ok := f.tracker.Record("page_2")
	require.True(t, ok)
	assert.False(t, rec.Deleted)
	assert.Equal(t, 2, rec.ChunkCount)
}

func TestIngest_IncompleteListingSkipsPruning(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101",
		fakeItem{id: "page_1", updatedAt: "t1", text: "one"},
		fakeItem{id: "page_2", updatedAt: "t1", text: "two"},
	)
	f.ingest(t, domain.IngestModeFull)

	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "one"})
	f.pages.incomplete = true
	report := f.ingest(t, domain.IngestModeFull)

	assert.Zero(t, report.Courses[0].Deleted)
	assert.Len(t, f.vectors.IDs(), 2)
	assert.Empty(t, f.tracker.DeletedItems())
}

func TestIngest_PruningScopedToCourse(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "biology"})
	f.pages.set("202", fakeItem{id: "page_2", updatedAt: "t1", text: "chemistry"})
	f.ingest(t, domain.IngestModeFull, "101", "202")

	f.ingest(t, domain.IngestModeIncremental, "101")
	assert.Empty(t, f.tracker.DeletedItems())
	assert.Len(t, f.vectors.IDs(), 2)
}

func TestIngest_EmptiedItemLosesChunks(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "a b c d"})
	f.ingest(t, domain.IngestModeFull)
	require.Len(t, f.vectors.IDs(), 2)

	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t2", text: "   "})
	f.ingest(t, domain.IngestModeIncremental)

	assert.Empty(t, f.vectors.IDs())
	rec, ok := f.tracker.Record("page_1")
	require.True(t, ok)
	assert.Zero(t, rec.ChunkCount)
	assert.False(t, rec.Deleted)
}

func TestIngest_BatchesEmbeddings(t *testing.T) {
	f := newIngestFixture(t, 2)
	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "a b c d e f g h i j k l m n o"})

	report := f.ingest(t, domain.IngestModeFull)
	assert.Equal(t, 5, report.Total())
	assert.Equal(t, []int{2, 2, 1}, f.embedder.batches)
}

func TestIngest_EmbeddingFailureLeavesItemsUnmarked(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "alpha"})
	f.embedder.fail = errors.New("model offline")

	report := f.ingest(t, domain.IngestModeIncremental)
	require.Len(t, report.Courses, 1)
	assert.ErrorContains(t, report.Courses[0].Err, "model offline")
	_, ok := f.tracker.Record("page_1")
	assert.False(t, ok)
	assert.Empty(t, f.tracker.LastSync("101"))

	f.embedder.fail = nil
	report = f.ingest(t, domain.IngestModeIncremental)
	assert.Equal(t, 1, report.Total())
}

func TestIngest_HandlerFailureIsolated(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "alpha"})
	f.files.err = errors.New("listing exploded")

	report := f.ingest(t, domain.IngestModeFull)
	cr := report.Courses[0]
	assert.Equal(t, 1, cr.Chunks[domain.ContentTypePage])
	require.Error(t, cr.Err)
	assert.Contains(t, cr.Err.Error(), "file: listing exploded")
}

func TestIngest_AuthFailureIsFatal(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.files.err = fmt.Errorf("fetch file: %w", domain.ErrAuthInvalid)

	report, err := f.svc.Ingest(context.Background(), driving.IngestRequest{Mode: domain.IngestModeFull})
	require.ErrorIs(t, err, domain.ErrAuthInvalid)
	require.NotNil(t, report)
	assert.Empty(t, f.tracker.Stats().LastFullSync)
}

func TestIngest_CourseNameFallback(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("999", fakeItem{id: "page_1", updatedAt: "t1", text: "orphan"})

	report := f.ingest(t, domain.IngestModeFull, "999")
	assert.Equal(t, "Course 999", report.Courses[0].CourseName)

	rec, ok := f.vectors.Get("page_1_chunk_0")
	require.True(t, ok)
	assert.Equal(t, "Course 999", rec.Metadata["course_name"])
}

func TestIngest_MultipleCoursesKeepOrder(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "biology"})
	f.pages.set("202", fakeItem{id: "page_2", updatedAt: "t1", text: "chemistry"})

	report := f.ingest(t, domain.IngestModeFull, "202", "101")
	require.Len(t, report.Courses, 2)
	assert.Equal(t, "202", report.Courses[0].CourseID)
	assert.Equal(t, "101", report.Courses[1].CourseID)
	assert.Equal(t, 2, report.Total())
}

func TestIngest_ContentTypeSelection(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "alpha"})
	f.files.set("101", fakeItem{id: "file_1", updatedAt: "t1", text: "beta"})

	report, err := f.svc.Ingest(context.Background(), driving.IngestRequest{
		ContentTypes: []domain.ContentType{domain.ContentTypeFile},
	})
	require.NoError(t, err)
	assert.Equal(t, map[domain.ContentType]int{domain.ContentTypeFile: 1}, report.Courses[0].Chunks)
	assert.Zero(t, f.pages.calls)
}

func TestIngest_Reset(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "alpha"})
	f.ingest(t, domain.IngestModeIncremental)

	f.pages.set("101")
	_, err := f.svc.Ingest(context.Background(), driving.IngestRequest{Reset: true})
	require.NoError(t, err)

	assert.Empty(t, f.vectors.IDs())
	assert.Zero(t, f.tracker.Stats().TotalItems)
	n, err := f.keywords.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngest_RequestValidation(t *testing.T) {
	f := newIngestFixture(t, 100)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, driving.IngestRequest{ContentTypes: []domain.ContentType{domain.ContentTypeSyllabus}})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	empty := NewIngestService(fakeDirectory{}, fakeRegistry{}, f.tracker, f.embedder, f.vectors, nil, domain.IngestSettings{}, nil)
	_, err = empty.Ingest(ctx, driving.IngestRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	noEmbedder := NewIngestService(fakeDirectory{}, fakeRegistry{}, f.tracker, nil, f.vectors, nil, domain.IngestSettings{}, nil)
	_, err = noEmbedder.Ingest(ctx, driving.IngestRequest{CourseIDs: []string{"101"}})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestIngest_CancelledContext(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "alpha"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Ingest(ctx, driving.IngestRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngestCourse(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "alpha"})

	cr, err := f.svc.IngestCourse(context.Background(), "101", []domain.ContentType{domain.ContentTypePage}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, cr.Total())
	assert.Equal(t, "Biology 101", cr.CourseName)
}

func TestIngest_ListActiveCourses(t *testing.T) {
	f := newIngestFixture(t, 100)
	courses, err := f.svc.ListActiveCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Biology 101", courses[0].Name)
}

func TestIngestCourse_RepeatedTypesRunOnce(t *testing.T) {
	f := newIngestFixture(t, 100)
	f.pages.set("101", fakeItem{id: "page_1", updatedAt: "t1", text: "alpha"})
	f.files.set("101", fakeItem{id: "file_1", updatedAt: "t1", text: "beta"})

	types := []domain.ContentType{domain.ContentTypePage, domain.ContentTypeFile, domain.ContentTypePage}
	cr, err := f.svc.IngestCourse(context.Background(), "101", types, domain.IngestModeFull)
	require.NoError(t, err)

	assert.Equal(t, 1, f.pages.calls)
	assert.Equal(t, 1, f.files.calls)
	assert.Equal(t, 1, cr.Chunks[domain.ContentTypePage])
	assert.Equal(t, 1, cr.Chunks[domain.ContentTypeFile])
}
