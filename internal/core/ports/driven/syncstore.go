package driven

import (
	"context"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
)

// SyncStateStore persists tracker state.
// Each mutation is written through immediately.
type SyncStateStore interface {
	// Load reads the full state. A missing store yields an empty state.
	Load(ctx context.Context) (*domain.SyncState, error)

	// SaveRecord inserts or replaces the record for a content ID.
	SaveRecord(ctx context.Context, contentID string, record domain.SyncRecord) error

	// SaveCourseSync stores the last sync time of a course.
	SaveCourseSync(ctx context.Context, courseID string, sync domain.CourseSync) error

	// SaveFullSync stores the last full sync time.
	SaveFullSync(ctx context.Context, at string) error

	// Reset removes all state.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}
