package handlers

import (
	"context"

	"github.com/custodia-labs/canvas-sync/internal/connectors/canvas"
	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
)

// Ensure CourseDirectory implements the interface.
var _ driven.CourseDirectory = (*CourseDirectory)(nil)

// CourseDirectory looks up courses through the Canvas client.
type CourseDirectory struct {
	client *canvas.Client
}

// NewCourseDirectory creates a course directory.
func NewCourseDirectory(client *canvas.Client) *CourseDirectory {
	return &CourseDirectory{client: client}
}

// GetCourse returns the course details.
func (d *CourseDirectory) GetCourse(ctx context.Context, courseID string) (domain.Course, error) {
	c, err := d.client.GetCourse(ctx, courseID, false)
	if err != nil {
		return domain.Course{}, err
	}
	return toCourse(*c, courseID), nil
}

// ListActiveCourses returns the courses with an active enrolment.
func (d *CourseDirectory) ListActiveCourses(ctx context.Context) ([]domain.Course, error) {
	courses, err := d.client.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Course, 0, len(courses))
	for _, c := range courses {
		out = append(out, toCourse(c, c.ID.String()))
	}
	return out, nil
}

func toCourse(c canvas.Course, fallbackID string) domain.Course {
	id := c.ID.String()
	if id == "" {
		id = fallbackID
	}
	name := c.Name
	if name == "" {
		name = domain.FallbackCourseName(id)
	}
	return domain.Course{ID: id, Name: name, CourseCode: c.CourseCode}
}
