package driven

import (
	"context"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
)

// ContentHandler fetches one kind of course content and turns it into chunks.
// Variants exist for pages, modules, assignments, announcements,
// discussions, files and the syllabus.
type ContentHandler interface {
	// Type returns the content type this handler produces.
	Type() domain.ContentType

	// FetchContent lists every item of this type in a course.
	FetchContent(ctx context.Context, courseID string) ([]domain.ContentItem, error)

	// ExtractMetadata builds the metadata copied onto every chunk of an item.
	ExtractMetadata(item domain.ContentItem, course domain.Course) domain.ItemMetadata

	// ContentText returns the plain text of an item.
	// Binary items are downloaded and extracted here.
	ContentText(ctx context.Context, item domain.ContentItem) (string, error)

	// Process fetches, extracts and chunks every item of the course.
	// Per-item failures are logged and counted rather than returned.
	Process(ctx context.Context, course domain.Course) (*domain.HandlerResult, error)

	// ProcessSelected is Process restricted to items accepted by keep.
	// Rejected items are still reported as seen.
	ProcessSelected(ctx context.Context, course domain.Course, keep domain.ItemFilter) (*domain.HandlerResult, error)
}

// HandlerRegistry resolves content handlers by type.
type HandlerRegistry interface {
	// Get returns the handler for a content type.
	// Returns domain.ErrUnsupportedType for unknown types.
	Get(t domain.ContentType) (ContentHandler, error)

	// Types returns the registered content types.
	Types() []domain.ContentType
}

// CourseDirectory looks up courses in the LMS.
type CourseDirectory interface {
	// GetCourse returns course details.
	GetCourse(ctx context.Context, courseID string) (domain.Course, error)

	// ListActiveCourses returns the courses the credential is actively enrolled in.
	ListActiveCourses(ctx context.Context) ([]domain.Course, error)
}
