package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driving"
)

// Ensure Tracker implements the interface.
var _ driving.StatusService = (*Tracker)(nil)

// timestampLayout is the format of processed_at and last_sync values.
const timestampLayout = time.RFC3339

// Tracker records which items have been ingested and when, so unchanged
// items can be skipped on the next run.
//
// Every mutation writes through to the store before the in-memory state
// changes. A failed write leaves the tracker as it was.
type Tracker struct {
	store driven.SyncStateStore
	now   func() time.Time

	mu    sync.Mutex
	state *domain.SyncState
}

// NewTracker loads the persisted state from store.
func NewTracker(ctx context.Context, store driven.SyncStateStore) (*Tracker, error) {
	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}
	if state == nil {
		state = domain.NewSyncState()
	}
	if state.Courses == nil {
		state.Courses = make(map[string]domain.CourseSync)
	}
	if state.Items == nil {
		state.Items = make(map[string]domain.SyncRecord)
	}
	return &Tracker{
		store: store,
		now:   time.Now,
		state: state,
	}, nil
}

func (t *Tracker) timestamp() string {
	return t.now().UTC().Format(timestampLayout)
}

// ShouldProcess returns true if the item is new, was flagged deleted, or
// its source timestamp is later than the one recorded. Timestamps compare
// as strings.
func (t *Tracker) ShouldProcess(contentID, updatedAt string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.state.Items[contentID]
	if !ok || rec.Deleted || rec.UpdatedAt == "" {
		return true
	}
	return rec.UpdatedAt < updatedAt
}

// Record returns the record of an item.
func (t *Tracker) Record(contentID string) (domain.SyncRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.state.Items[contentID]
	return rec, ok
}

// MarkProcessed records a successful ingest of an item.
func (t *Tracker) MarkProcessed(
	ctx context.Context,
	contentID string,
	contentType domain.ContentType,
	courseID string,
	updatedAt string,
	chunkCount int,
) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := domain.SyncRecord{
		ContentType: contentType,
		CourseID:    courseID,
		UpdatedAt:   updatedAt,
		ProcessedAt: t.timestamp(),
		ChunkCount:  chunkCount,
	}
	if err := t.store.SaveRecord(ctx, contentID, rec); err != nil {
		return fmt.Errorf("save record %s: %w", contentID, err)
	}
	t.state.Items[contentID] = rec
	return nil
}

// MarkDeleted flags an item as removed from the source.
// Unknown items are ignored.
func (t *Tracker) MarkDeleted(ctx context.Context, contentID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.state.Items[contentID]
	if !ok || rec.Deleted {
		return nil
	}
	rec.Deleted = true
	rec.ProcessedAt = t.timestamp()
	if err := t.store.SaveRecord(ctx, contentID, rec); err != nil {
		return fmt.Errorf("save record %s: %w", contentID, err)
	}
	t.state.Items[contentID] = rec
	return nil
}

// DeletedItems returns the sorted IDs of items flagged deleted.
func (t *Tracker) DeletedItems() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ids []string
	for id, rec := range t.state.Items {
		if rec.Deleted {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ActiveItems returns the live records that belong to a course and were
// produced by the handler of the given type.
func (t *Tracker) ActiveItems(courseID string, handler domain.ContentType) map[string]domain.SyncRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]domain.SyncRecord)
	for id, rec := range t.state.Items {
		if rec.Deleted || rec.CourseID != courseID {
			continue
		}
		if rec.ContentType.HandlerType() != handler {
			continue
		}
		out[id] = rec
	}
	return out
}

// UpdateCourseSync records that a course finished ingesting now.
func (t *Tracker) UpdateCourseSync(ctx context.Context, courseID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cs := domain.CourseSync{LastSync: t.timestamp()}
	if err := t.store.SaveCourseSync(ctx, courseID, cs); err != nil {
		return fmt.Errorf("save course sync %s: %w", courseID, err)
	}
	t.state.Courses[courseID] = cs
	return nil
}

// LastSync returns when a course last finished ingesting.
func (t *Tracker) LastSync(courseID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state.Courses[courseID].LastSync
}

// UpdateFullSync records that a full run finished now.
func (t *Tracker) UpdateFullSync(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	at := t.timestamp()
	if err := t.store.SaveFullSync(ctx, at); err != nil {
		return fmt.Errorf("save full sync: %w", err)
	}
	t.state.LastFullSync = at
	return nil
}

// Stats summarises the tracked items.
func (t *Tracker) Stats() domain.TrackerStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := domain.TrackerStats{
		TotalItems:     len(t.state.Items),
		ByType:         make(map[domain.ContentType]int),
		LastFullSync:   t.state.LastFullSync,
		CoursesTracked: len(t.state.Courses),
	}
	for _, rec := range t.state.Items {
		if rec.Deleted {
			stats.DeletedItems++
			continue
		}
		stats.ActiveItems++
		stats.ByType[rec.ContentType]++
	}
	return stats
}

// Reset clears all tracked state.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset sync state: %w", err)
	}
	t.state = domain.NewSyncState()
	return nil
}
