package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driving"
	"github.com/custodia-labs/canvas-sync/internal/logger"
)

// Ensure IngestService implements the interfaces.
var (
	_ driving.IngestOrchestrator = (*IngestService)(nil)
	_ driving.CourseLister       = (*IngestService)(nil)
)

// IngestService drives content handlers across courses and writes their
// chunks to the indexes.
type IngestService struct {
	courses  driven.CourseDirectory
	handlers driven.HandlerRegistry
	tracker  *Tracker
	embedder driven.EmbeddingService
	vectors  driven.VectorIndex
	keywords driven.KeywordIndex // Optional
	settings domain.IngestSettings

	// defaultCourses are ingested when a request names none.
	defaultCourses []string

	running atomic.Bool
}

// NewIngestService creates an ingest service.
// The keywords index is optional; when nil only the vector index is written.
func NewIngestService(
	courses driven.CourseDirectory,
	handlers driven.HandlerRegistry,
	tracker *Tracker,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndex,
	keywords driven.KeywordIndex,
	settings domain.IngestSettings,
	defaultCourses []string,
) *IngestService {
	if settings.BatchSize <= 0 {
		settings.BatchSize = domain.DefaultBatchSize
	}
	if settings.Workers <= 0 {
		settings.Workers = domain.DefaultWorkers
	}
	if len(settings.ContentTypes) == 0 {
		settings.ContentTypes = domain.DefaultContentTypes()
	}
	return &IngestService{
		courses:        courses,
		handlers:       handlers,
		tracker:        tracker,
		embedder:       embedder,
		vectors:        vectors,
		keywords:       keywords,
		settings:       settings,
		defaultCourses: slices.Clone(defaultCourses),
	}
}

// ListActiveCourses returns the courses the token can see.
func (s *IngestService) ListActiveCourses(ctx context.Context) ([]domain.Course, error) {
	return s.courses.ListActiveCourses(ctx)
}

// Ingest processes every requested course on a bounded worker pool.
// An authentication failure cancels the remaining courses.
//
//nolint:gocognit // Fan-out with per-course error isolation
func (s *IngestService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.IngestReport, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.vectors == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrIngestInProgress
	}
	defer s.running.Store(false)

	courseIDs := req.CourseIDs
	if len(courseIDs) == 0 {
		courseIDs = s.defaultCourses
	}
	if len(courseIDs) == 0 {
		return nil, fmt.Errorf("%w: no courses to ingest", domain.ErrInvalidInput)
	}
	types, err := s.resolveTypes(req.ContentTypes)
	if err != nil {
		return nil, err
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.IngestModeIncremental
	}

	report := &domain.IngestReport{
		RunID:   uuid.NewString(),
		Mode:    mode,
		Courses: make([]domain.CourseReport, len(courseIDs)),
	}
	logger.Section("Ingest " + report.RunID)
	logger.Info("Ingesting %d courses (%s mode, %d content types)", len(courseIDs), mode, len(types))

	if req.Reset {
		if err := s.reset(ctx); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(s.settings.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var wg sync.WaitGroup
	for i, courseID := range courseIDs {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			cr, err := s.ingestCourse(runCtx, courseID, types, mode)
			report.Courses[i] = *cr
			if err != nil && isFatal(err) {
				cancel(err)
			}
		})
		if submitErr != nil {
			wg.Done()
			report.Courses[i] = domain.CourseReport{CourseID: courseID, Err: fmt.Errorf("submit: %w", submitErr)}
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if cause := context.Cause(runCtx); cause != nil {
		return report, cause
	}

	if mode == domain.IngestModeFull {
		if err := s.tracker.UpdateFullSync(ctx); err != nil {
			logger.Warn("Could not record full sync: %v", err)
		}
	}

	for _, cr := range report.Courses {
		if cr.Err != nil {
			logger.Warn("Course %s finished with errors: %v", cr.CourseID, cr.Err)
		}
	}
	logger.Info("Ingestion complete: %d chunks", report.Total())
	return report, nil
}

// IngestCourse processes a single course. Handler failures are recorded
// in the report; only fatal errors are returned.
func (s *IngestService) IngestCourse(
	ctx context.Context,
	courseID string,
	types []domain.ContentType,
	mode domain.IngestMode,
) (*domain.CourseReport, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.vectors == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	resolved, err := s.resolveTypes(types)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = domain.IngestModeIncremental
	}
	return s.ingestCourse(ctx, courseID, resolved, mode)
}

// resolveTypes applies the default content types, checks that a handler
// exists for each and drops repeats, keeping first-seen order.
func (s *IngestService) resolveTypes(types []domain.ContentType) ([]domain.ContentType, error) {
	if len(types) == 0 {
		types = s.settings.ContentTypes
	}
	seen := make(map[domain.ContentType]struct{}, len(types))
	out := make([]domain.ContentType, 0, len(types))
	for _, t := range types {
		if _, err := s.handlers.Get(t); err != nil {
			return nil, err
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// ingestCourse runs every handler of a course concurrently. It always
// returns a report.
func (s *IngestService) ingestCourse(
	ctx context.Context,
	courseID string,
	types []domain.ContentType,
	mode domain.IngestMode,
) (*domain.CourseReport, error) {
	course := s.resolveCourse(ctx, courseID)
	logger.Info("Processing course %s (%s)", course.ID, course.Name)

	report := &domain.CourseReport{
		CourseID:   course.ID,
		CourseName: course.Name,
		Chunks:     make(map[domain.ContentType]int, len(types)),
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range types {
		h, err := s.handlers.Get(t)
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			written, deleted, err := s.runHandler(gctx, course, h, mode)

			mu.Lock()
			defer mu.Unlock()
			report.Chunks[t] = written
			report.Deleted += deleted
			if err == nil {
				return nil
			}
			if isFatal(err) {
				return err
			}
			logger.Error("Error processing %s for course %s: %v", t, course.ID, err)
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		report.Err = err
		return report, err
	}

	if report.Total() > 0 {
		if err := s.tracker.UpdateCourseSync(ctx, course.ID); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		report.Err = errors.Join(errs...)
	}
	logger.Info("Course %s: %d chunks", course.ID, report.Total())
	return report, nil
}

// resolveCourse fetches the course details, falling back to a generated
// display name.
func (s *IngestService) resolveCourse(ctx context.Context, courseID string) domain.Course {
	if s.courses == nil {
		return domain.Course{ID: courseID, Name: domain.FallbackCourseName(courseID)}
	}
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		logger.Warn("Could not fetch course %s: %v", courseID, err)
		return domain.Course{ID: courseID, Name: domain.FallbackCourseName(courseID)}
	}
	if course.ID == "" {
		course.ID = courseID
	}
	if course.Name == "" {
		course.Name = domain.FallbackCourseName(courseID)
	}
	return course
}

// runHandler fetches, stores and reconciles one content type of a course.
// It returns the number of chunks written and items flagged deleted.
func (s *IngestService) runHandler(
	ctx context.Context,
	course domain.Course,
	h driven.ContentHandler,
	mode domain.IngestMode,
) (written, deleted int, err error) {
	var res *domain.HandlerResult
	if mode == domain.IngestModeFull {
		res, err = h.Process(ctx, course)
	} else {
		res, err = h.ProcessSelected(ctx, course, func(item domain.ContentItem) bool {
			return s.tracker.ShouldProcess(item.ContentID, item.UpdatedAt)
		})
	}
	if err != nil {
		return 0, 0, err
	}
	logger.Debug("%s: %d items, %d unchanged, %d skipped, %d failed",
		h.Type(), res.Items, res.Unchanged, res.Skipped, res.Failed)

	written, err = s.store(ctx, res.Chunks)
	if err != nil {
		return written, 0, fmt.Errorf("store %s chunks: %w", h.Type(), err)
	}
	if err := s.clearEmpty(ctx, res.Empty); err != nil {
		return written, 0, err
	}

	if !res.Complete || !s.settings.PruneDeleted {
		return written, 0, nil
	}
	deleted, err = s.pruneDeleted(ctx, course.ID, h.Type(), res.Seen)
	return written, deleted, err
}

// store embeds and upserts chunks in batches. Chunks of an item are
// contiguous, so an item is complete once its last chunk is stored.
func (s *IngestService) store(ctx context.Context, chunks []domain.Chunk) (int, error) {
	stored := 0
	marked := make(map[string]bool)

	for start := 0; start < len(chunks); start += s.settings.BatchSize {
		batch := chunks[start:min(start+s.settings.BatchSize, len(chunks))]
		if err := s.upsertBatch(ctx, batch); err != nil {
			return stored, err
		}
		stored += len(batch)

		for _, c := range batch {
			id := c.Metadata.ContentID
			if c.ChunkIndex != c.TotalChunks-1 || marked[id] {
				continue
			}
			marked[id] = true
			if err := s.finishItem(ctx, c.Metadata, c.TotalChunks); err != nil {
				return stored, err
			}
		}
	}
	return stored, nil
}

// upsertBatch embeds one batch and writes it to every index.
func (s *IngestService) upsertBatch(ctx context.Context, batch []domain.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(batch))
	}

	records := make([]driven.VectorRecord, len(batch))
	embedded := make([]domain.Chunk, len(batch))
	for i, c := range batch {
		c.Embedding = vectors[i]
		embedded[i] = c
		records[i] = driven.VectorRecord{
			ID:       c.ID(),
			Vector:   vectors[i],
			Text:     c.Text,
			Metadata: c.MetadataMap(),
		}
	}

	if err := s.vectors.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	if s.keywords != nil {
		if err := s.keywords.Index(ctx, embedded); err != nil {
			return fmt.Errorf("index keywords: %w", err)
		}
	}
	return nil
}

// finishItem removes chunks left over from a longer previous version and
// records the item as processed.
func (s *IngestService) finishItem(ctx context.Context, meta domain.ItemMetadata, total int) error {
	if prev, ok := s.tracker.Record(meta.ContentID); ok && prev.ChunkCount > total {
		if err := s.deleteChunks(ctx, domain.ChunkIDs(meta.ContentID, total, prev.ChunkCount)); err != nil {
			return err
		}
	}
	return s.tracker.MarkProcessed(ctx, meta.ContentID, meta.ContentType, meta.CourseID, meta.UpdatedAt, total)
}

// clearEmpty removes chunks of items that no longer have text and records
// them with no chunks.
func (s *IngestService) clearEmpty(ctx context.Context, empty []domain.ItemMetadata) error {
	for _, meta := range empty {
		if err := s.finishItem(ctx, meta, 0); err != nil {
			return err
		}
	}
	return nil
}

// pruneDeleted flags tracked items of the course and handler that the
// source no longer lists, and removes their chunks.
func (s *IngestService) pruneDeleted(
	ctx context.Context,
	courseID string,
	t domain.ContentType,
	seen []string,
) (int, error) {
	present := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		present[id] = struct{}{}
	}

	active := s.tracker.ActiveItems(courseID, t)
	deleted := 0
	for _, id := range slices.Sorted(maps.Keys(active)) {
		if _, ok := present[id]; ok {
			continue
		}
		if err := s.deleteChunks(ctx, domain.ChunkIDs(id, 0, active[id].ChunkCount)); err != nil {
			return deleted, err
		}
		if err := s.tracker.MarkDeleted(ctx, id); err != nil {
			return deleted, err
		}
		logger.Info("Item %s was removed from course %s", id, courseID)
		deleted++
	}
	return deleted, nil
}

// deleteChunks removes chunk IDs from every index.
func (s *IngestService) deleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.vectors.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	if s.keywords != nil {
		if err := s.keywords.Delete(ctx, ids); err != nil {
			return fmt.Errorf("delete keywords: %w", err)
		}
	}
	return nil
}

// reset clears the tracker and every index.
func (s *IngestService) reset(ctx context.Context) error {
	logger.Info("Resetting sync state and indexes")
	if err := s.tracker.Reset(ctx); err != nil {
		return err
	}
	if err := s.vectors.Reset(ctx); err != nil {
		return fmt.Errorf("reset vectors: %w", err)
	}
	if s.keywords != nil {
		if err := s.keywords.Reset(ctx); err != nil {
			return fmt.Errorf("reset keywords: %w", err)
		}
	}
	return nil
}

// isFatal reports whether an error must stop the whole run.
func isFatal(err error) bool {
	return errors.Is(err, domain.ErrAuthInvalid) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
