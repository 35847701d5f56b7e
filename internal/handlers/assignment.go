package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/canvas-sync/internal/connectors/canvas"
	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
)

// Ensure AssignmentHandler implements the interface.
var _ driven.ContentHandler = (*AssignmentHandler)(nil)

// AssignmentHandler ingests assignments with their rubrics.
type AssignmentHandler struct {
	base
}

// NewAssignmentHandler creates an assignment handler.
func NewAssignmentHandler(client *canvas.Client, processor Processor, opts ...Option) *AssignmentHandler {
	return &AssignmentHandler{base: newBase(client, processor, opts...)}
}

// Type returns the content type.
func (h *AssignmentHandler) Type() domain.ContentType {
	return domain.ContentTypeAssignment
}

// FetchContent lists assignments.
func (h *AssignmentHandler) FetchContent(ctx context.Context, courseID string) ([]domain.ContentItem, error) {
	assignments, err := h.client.ListAssignments(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	items := make([]domain.ContentItem, 0, len(assignments))
	for _, a := range assignments {
		items = append(items, domain.ContentItem{
			ContentID:   contentID(domain.ContentTypeAssignment, a.ID, "", a.Name),
			ContentType: domain.ContentTypeAssignment,
			CourseID:    courseID,
			Title:       displayTitle(a.Name),
			URL:         a.HTMLURL,
			CreatedAt:   a.CreatedAt,
			UpdatedAt:   a.UpdatedAt,
			Body:        a.Description,
			Extra:       assignmentExtra(a),
		})
	}
	return items, nil
}

func assignmentExtra(a canvas.Assignment) map[string]any {
	assignmentType := "none"
	if len(a.SubmissionTypes) > 0 {
		assignmentType = a.SubmissionTypes[0]
	}
	points := 0.0
	if a.PointsPossible != nil {
		points = *a.PointsPossible
	}
	due := ""
	if a.DueAt != nil {
		due = *a.DueAt
	}
	return map[string]any{
		"assignment_type": assignmentType,
		"points_possible": points,
		"due_date":        due,
		"has_rubric":      len(a.Rubric) > 0,
		"published":       a.Published,
		"rubric":          rubricText(a.Rubric),
	}
}

// rubricText renders the rubric block appended to the description.
func rubricText(rubric []canvas.Criterion) string {
	if len(rubric) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nRubric:\n")
	for _, c := range rubric {
		points := 0.0
		if c.Points != nil {
			points = *c.Points
		}
		fmt.Fprintf(&b, "\n%s (%s points)", c.Description, strconv.FormatFloat(points, 'f', -1, 64))
	}
	return b.String()
}

// ExtractMetadata adds the assignment details.
func (h *AssignmentHandler) ExtractMetadata(item domain.ContentItem, course domain.Course) domain.ItemMetadata {
	meta := h.baseMetadata(item, course)
	for _, k := range []string{"assignment_type", "points_possible", "due_date", "has_rubric", "published"} {
		meta.Extra[k] = item.Extra[k]
	}
	return meta
}

// ContentText returns the description followed by the rubric.
func (h *AssignmentHandler) ContentText(ctx context.Context, item domain.ContentItem) (string, error) {
	text := h.processor.HTMLText(ctx, item.Body)
	if rubric, _ := item.Extra["rubric"].(string); rubric != "" {
		text += rubric
	}
	return text, nil
}

// Process ingests every assignment of the course.
func (h *AssignmentHandler) Process(ctx context.Context, course domain.Course) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, nil)
}

// ProcessSelected ingests the assignments keep accepts.
func (h *AssignmentHandler) ProcessSelected(
	ctx context.Context,
	course domain.Course,
	keep domain.ItemFilter,
) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, keep)
}
