package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentType_IsValid(t *testing.T) {
	for _, ct := range []ContentType{
		ContentTypePage, ContentTypeModule, ContentTypeAssignment, ContentTypeAnnouncement,
		ContentTypeDiscussion, ContentTypeDiscussionEntry, ContentTypeFile, ContentTypeSyllabus,
	} {
		assert.True(t, ct.IsValid(), ct)
	}
	assert.False(t, ContentType("quiz").IsValid())
	assert.False(t, ContentType("").IsValid())
}

func TestParseContentType(t *testing.T) {
	tests := []struct {
		in   string
		want ContentType
	}{
		{"page", ContentTypePage},
		{"Pages", ContentTypePage},
		{" files ", ContentTypeFile},
		{"discussion", ContentTypeDiscussion},
		{"syllabus", ContentTypeSyllabus},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseContentType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseContentType_Unknown(t *testing.T) {
	_, err := ParseContentType("quizzes")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = ParseContentType("discussion_entry")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFallbackCourseName(t *testing.T) {
	assert.Equal(t, "Course 42", FallbackCourseName("42"))
}

func TestContentType_HandlerType(t *testing.T) {
	assert.Equal(t, ContentTypeDiscussion, ContentTypeDiscussionEntry.HandlerType())
	assert.Equal(t, ContentTypeDiscussion, ContentTypeDiscussion.HandlerType())
	assert.Equal(t, ContentTypePage, ContentTypePage.HandlerType())
}
