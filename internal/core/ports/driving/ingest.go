package driving

import (
	"context"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
)

// IngestOrchestrator runs ingestion across courses.
type IngestOrchestrator interface {
	// Ingest processes the requested courses and content types.
	// Only authentication failures and cancellation are returned as errors;
	// per-course failures are recorded in the report.
	Ingest(ctx context.Context, req IngestRequest) (*domain.IngestReport, error)

	// IngestCourse processes a single course.
	IngestCourse(ctx context.Context, courseID string, types []domain.ContentType, mode domain.IngestMode) (*domain.CourseReport, error)
}

// IngestRequest selects what an ingestion run covers.
type IngestRequest struct {
	// CourseIDs defaults to the configured courses when empty.
	CourseIDs []string

	// ContentTypes defaults to the configured types when empty.
	ContentTypes []domain.ContentType

	// Mode is incremental unless set to full.
	Mode domain.IngestMode

	// Reset clears the tracker and indexes before running.
	Reset bool
}

// StatusService reports tracker state.
type StatusService interface {
	// Stats summarises what has been ingested.
	Stats() domain.TrackerStats

	// LastSync returns the last sync time of a course, empty if never synced.
	LastSync(courseID string) string
}

// CourseLister lists the courses the token can see.
type CourseLister interface {
	ListActiveCourses(ctx context.Context) ([]domain.Course, error)
}
