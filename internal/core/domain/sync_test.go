package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSyncState(t *testing.T) {
	s := NewSyncState()
	assert.NotNil(t, s.Courses)
	assert.NotNil(t, s.Items)
	assert.Empty(t, s.LastFullSync)
}

func TestIngestReport_Total(t *testing.T) {
	r := IngestReport{Courses: []CourseReport{
		{CourseID: "1", Chunks: map[ContentType]int{ContentTypePage: 3, ContentTypeFile: 2}},
		{CourseID: "2", Chunks: map[ContentType]int{ContentTypeModule: 5}},
		{CourseID: "3"},
	}}
	assert.Equal(t, 10, r.Total())
	assert.Equal(t, 5, r.Courses[0].Total())
	assert.Equal(t, 0, r.Courses[2].Total())
}
