package domain

import (
	"fmt"
	"strings"
)

// ContentType identifies the kind of course content an item came from.
type ContentType string

// Content types produced by the handlers.
const (
	ContentTypePage            ContentType = "page"
	ContentTypeModule          ContentType = "module"
	ContentTypeAssignment      ContentType = "assignment"
	ContentTypeAnnouncement    ContentType = "announcement"
	ContentTypeDiscussion      ContentType = "discussion"
	ContentTypeDiscussionEntry ContentType = "discussion_entry"
	ContentTypeFile            ContentType = "file"
	ContentTypeSyllabus        ContentType = "syllabus"
)

// SourceName is the value of the source metadata field on every chunk.
const SourceName = "Canvas LMS"

// String returns the string representation.
func (t ContentType) String() string {
	return string(t)
}

// IsValid returns true if the content type is recognised.
func (t ContentType) IsValid() bool {
	switch t {
	case ContentTypePage, ContentTypeModule, ContentTypeAssignment, ContentTypeAnnouncement,
		ContentTypeDiscussion, ContentTypeDiscussionEntry, ContentTypeFile, ContentTypeSyllabus:
		return true
	default:
		return false
	}
}

// HandlerType returns the content type of the handler that produces items
// of this type. Discussion replies belong to the discussion handler.
func (t ContentType) HandlerType() ContentType {
	if t == ContentTypeDiscussionEntry {
		return ContentTypeDiscussion
	}
	return t
}

// ParseContentType converts a user-supplied name into a ContentType.
// Plural forms ("pages", "files") are accepted.
func ParseContentType(s string) (ContentType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	t := ContentType(name)
	if !t.IsValid() {
		t = ContentType(strings.TrimSuffix(name, "s"))
	}
	if !t.IsValid() || t == ContentTypeDiscussionEntry {
		return "", fmt.Errorf("%w: content type %q", ErrUnsupportedType, s)
	}
	return t, nil
}

// Course identifies the course content is ingested from.
type Course struct {
	// ID is the Canvas course identifier.
	ID string

	// Name is the display name. Falls back to "Course <id>".
	Name string

	// CourseCode is the short course code, when known.
	CourseCode string
}

// FallbackCourseName returns the display name used when the course
// details cannot be fetched.
func FallbackCourseName(courseID string) string {
	return "Course " + courseID
}

// ContentItem is a single piece of course content after it has been
// fetched and shaped by a handler but before text extraction.
type ContentItem struct {
	// ContentID is stable across re-fetches of the same item.
	ContentID string

	// ContentType is the kind of content.
	ContentType ContentType

	// CourseID is the owning course.
	CourseID string

	// Title is the human-readable title.
	Title string

	// URL links to the item in the LMS web UI.
	URL string

	// CreatedAt and UpdatedAt are the source timestamps, kept verbatim
	// so they compare lexicographically.
	CreatedAt string
	UpdatedAt string

	// Body is the HTML or plain-text body.
	Body string

	// MIMEType is set for binary items, whose bytes are downloaded lazily.
	MIMEType string

	// Size is the binary size in bytes.
	Size int64

	// Extra holds handler-specific metadata.
	Extra map[string]any

	// Err is set when the item was listed but its content could not be
	// fetched. The item still counts as present in the source.
	Err error
}

// ItemFilter decides whether a listed item is processed in this run.
type ItemFilter func(item ContentItem) bool

// HandlerResult is what one content handler produced for one course.
type HandlerResult struct {
	// ContentType is the handler that produced the result.
	ContentType ContentType

	// Chunks are the chunks of every item with text.
	Chunks []Chunk

	// Seen lists the content IDs the source reported, including items
	// that were skipped or failed.
	Seen []string

	// Items is the number of items that produced chunks.
	Items int

	// Skipped counts items without text or with unsupported formats.
	Skipped int

	// Unchanged counts items the filter excluded.
	Unchanged int

	// Empty holds the metadata of items that produced no text, so chunks
	// written by an earlier run can be removed.
	Empty []ItemMetadata

	// Failed counts items whose processing returned an error.
	Failed int

	// Complete is true when the listing was fetched end to end, so
	// items absent from Seen can be treated as deleted.
	Complete bool
}
