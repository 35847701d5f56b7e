package canvas

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// GetCourse fetches course details, optionally with the syllabus body.
func (c *Client) GetCourse(ctx context.Context, courseID string, includeSyllabus bool) (*Course, error) {
	var params url.Values
	if includeSyllabus {
		params = url.Values{"include[]": {"syllabus_body"}}
	}
	var course Course
	if err := c.Get(ctx, "/courses/"+courseID, params, &course); err != nil {
		return nil, fmt.Errorf("get course %s: %w", courseID, err)
	}
	return &course, nil
}

// ListCourses lists courses with an active enrolment for the token's user.
func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	return listAs[Course](ctx, c, "/courses", url.Values{"enrollment_state": {"active"}})
}

// ListPages lists the wiki pages of a course. Bodies are not included.
func (c *Client) ListPages(ctx context.Context, courseID string) ([]Page, error) {
	return listAs[Page](ctx, c, coursePath(courseID, "pages"), nil)
}

// GetPage fetches a page, including its body, by URL slug.
func (c *Client) GetPage(ctx context.Context, courseID, slug string) (*Page, error) {
	var page Page
	if err := c.Get(ctx, coursePath(courseID, "pages", slug), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListModules lists the modules of a course.
func (c *Client) ListModules(ctx context.Context, courseID string) ([]Module, error) {
	return listAs[Module](ctx, c, coursePath(courseID, "modules"), nil)
}

// ListModuleItems lists the items of a module.
func (c *Client) ListModuleItems(ctx context.Context, courseID, moduleID string) ([]ModuleItem, error) {
	return listAs[ModuleItem](ctx, c, coursePath(courseID, "modules", moduleID, "items"), nil)
}

// ListAssignments lists assignments with their rubrics.
func (c *Client) ListAssignments(ctx context.Context, courseID string) ([]Assignment, error) {
	return listAs[Assignment](ctx, c, coursePath(courseID, "assignments"), url.Values{"include[]": {"rubric"}})
}

// ListAnnouncements lists announcement topics.
func (c *Client) ListAnnouncements(ctx context.Context, courseID string) ([]DiscussionTopic, error) {
	return listAs[DiscussionTopic](ctx, c, coursePath(courseID, "discussion_topics"), url.Values{"only_announcements": {"true"}})
}

// ListDiscussionTopics lists discussion topics. Announcements may be
// included; callers filter on IsAnnouncement.
func (c *Client) ListDiscussionTopics(ctx context.Context, courseID string) ([]DiscussionTopic, error) {
	return listAs[DiscussionTopic](ctx, c, coursePath(courseID, "discussion_topics"), nil)
}

// ListDiscussionEntries lists the top-level entries of a topic.
func (c *Client) ListDiscussionEntries(ctx context.Context, courseID, topicID string) ([]DiscussionEntry, error) {
	return listAs[DiscussionEntry](ctx, c, coursePath(courseID, "discussion_topics", topicID, "entries"), nil)
}

// ListFiles lists the files of a course.
func (c *Client) ListFiles(ctx context.Context, courseID string) ([]File, error) {
	return listAs[File](ctx, c, coursePath(courseID, "files"), nil)
}

// GetFile fetches file metadata, including the signed download URL.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	var f File
	if err := c.Get(ctx, "/files/"+fileID, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// DownloadFile resolves a file's signed URL and downloads its content.
// Bodies larger than maxBytes fail with domain.ErrFileTooLarge.
func (c *Client) DownloadFile(ctx context.Context, fileID string, maxBytes int64) ([]byte, error) {
	f, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.URL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoDownloadURL, fileID)
	}
	return c.downloadURL(ctx, f.URL, maxBytes)
}

// coursePath joins path segments under /courses/{id}.
func coursePath(courseID string, parts ...string) string {
	segs := make([]string, 0, len(parts)+2)
	segs = append(segs, "courses", courseID)
	segs = append(segs, parts...)
	return "/" + strings.Join(segs, "/")
}
