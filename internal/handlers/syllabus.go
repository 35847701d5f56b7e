package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/canvas-sync/internal/connectors/canvas"
	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
)

// Ensure SyllabusHandler implements the interface.
var _ driven.ContentHandler = (*SyllabusHandler)(nil)

// SyllabusHandler ingests the course syllabus as a single item.
type SyllabusHandler struct {
	base
}

// NewSyllabusHandler creates a syllabus handler.
func NewSyllabusHandler(client *canvas.Client, processor Processor, opts ...Option) *SyllabusHandler {
	return &SyllabusHandler{base: newBase(client, processor, opts...)}
}

// Type returns the content type.
func (h *SyllabusHandler) Type() domain.ContentType {
	return domain.ContentTypeSyllabus
}

// SyllabusID returns the content ID of a course's syllabus.
func SyllabusID(courseID string) string {
	return courseID + "_syllabus"
}

// FetchContent returns the syllabus when the course has a non-blank one.
func (h *SyllabusHandler) FetchContent(ctx context.Context, courseID string) ([]domain.ContentItem, error) {
	course, err := h.client.GetCourse(ctx, courseID, true)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}

	body := course.Syllabus()
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}

	name := course.Name
	if name == "" {
		name = "Course"
	}
	return []domain.ContentItem{{
		ContentID:   SyllabusID(courseID),
		ContentType: domain.ContentTypeSyllabus,
		CourseID:    courseID,
		Title:       name + " - Syllabus",
		URL:         course.HTMLURL,
		CreatedAt:   course.CreatedAt,
		UpdatedAt:   course.UpdatedAt,
		Body:        body,
		Extra: map[string]any{
			"course_code": course.CourseCode,
		},
	}}, nil
}

// ExtractMetadata adds course_code and is_syllabus.
func (h *SyllabusHandler) ExtractMetadata(item domain.ContentItem, course domain.Course) domain.ItemMetadata {
	meta := h.baseMetadata(item, course)
	meta.Extra["course_code"] = item.Extra["course_code"]
	meta.Extra["is_syllabus"] = true
	return meta
}

// ContentText returns the syllabus body as text.
func (h *SyllabusHandler) ContentText(ctx context.Context, item domain.ContentItem) (string, error) {
	return h.htmlText(ctx, item)
}

// Process ingests the course syllabus.
func (h *SyllabusHandler) Process(ctx context.Context, course domain.Course) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, nil)
}

// ProcessSelected ingests the syllabus if keep accepts it.
func (h *SyllabusHandler) ProcessSelected(
	ctx context.Context,
	course domain.Course,
	keep domain.ItemFilter,
) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, keep)
}
