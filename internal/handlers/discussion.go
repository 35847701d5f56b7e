package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/canvas-sync/internal/connectors/canvas"
	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/logger"
)

// Ensure DiscussionHandler implements the interface.
var _ driven.ContentHandler = (*DiscussionHandler)(nil)

const defaultDiscussionType = "threaded"

// DiscussionHandler ingests discussion topics and their replies.
// Announcements are discussion topics too and are left to the
// announcement handler.
type DiscussionHandler struct {
	base
}

// NewDiscussionHandler creates a discussion handler.
func NewDiscussionHandler(client *canvas.Client, processor Processor, opts ...Option) *DiscussionHandler {
	return &DiscussionHandler{base: newBase(client, processor, opts...)}
}

// Type returns the content type.
func (h *DiscussionHandler) Type() domain.ContentType {
	return domain.ContentTypeDiscussion
}

// FetchContent lists topics followed by their entries. Nested replies are
// flattened into entries of the same topic.
func (h *DiscussionHandler) FetchContent(ctx context.Context, courseID string) ([]domain.ContentItem, error) {
	topics, err := h.client.ListDiscussionTopics(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list discussion topics: %w", err)
	}

	var (
		items []domain.ContentItem
		errs  []error
	)
	for _, t := range topics {
		if t.IsAnnouncement {
			continue
		}
		items = append(items, topicItem(courseID, t))

		if t.ID == "" {
			continue
		}
		entries, err := h.client.ListDiscussionEntries(ctx, courseID, t.ID.String())
		if err != nil {
			if fatal(ctx, err) {
				return nil, err
			}
			logger.Warn("Error fetching discussion %q: %v", t.Title, err)
			errs = append(errs, fmt.Errorf("topic %s: %w", t.ID, err))
			continue
		}
		items = appendEntries(items, courseID, t, entries)
	}

	if len(errs) > 0 {
		return items, fmt.Errorf("%w: %w", ErrPartialListing, errors.Join(errs...))
	}
	return items, nil
}

func topicItem(courseID string, t canvas.DiscussionTopic) domain.ContentItem {
	discussionType := t.DiscussionType
	if discussionType == "" {
		discussionType = defaultDiscussionType
	}
	return domain.ContentItem{
		ContentID:   contentID(domain.ContentTypeDiscussion, t.ID, t.Title, ""),
		ContentType: domain.ContentTypeDiscussion,
		CourseID:    courseID,
		Title:       displayTitle(t.Title),
		URL:         t.HTMLURL,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Body:        t.Message,
		Extra: map[string]any{
			"discussion_type": discussionType,
			"is_topic":        true,
		},
	}
}

// appendEntries adds entries and, depth first, their replies.
func appendEntries(
	items []domain.ContentItem,
	courseID string,
	topic canvas.DiscussionTopic,
	entries []canvas.DiscussionEntry,
) []domain.ContentItem {
	for _, e := range entries {
		items = append(items, domain.ContentItem{
			ContentID:   entryID(topic, e),
			ContentType: domain.ContentTypeDiscussionEntry,
			CourseID:    courseID,
			Title:       "Reply to: " + topic.Title,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.UpdatedAt,
			Body:        e.Message,
			Extra: map[string]any{
				"parent_topic_id": topic.ID.String(),
				"author_id":       e.UserID.String(),
				"author_name":     e.UserName,
				"is_topic":        false,
			},
		})
		items = appendEntries(items, courseID, topic, e.RecentReplies)
	}
	return items
}

// entryID identifies a reply. Replies without an ID hash their topic,
// author, timestamp and message.
func entryID(topic canvas.DiscussionTopic, e canvas.DiscussionEntry) string {
	key := strings.Join([]string{topic.ID.String(), e.UserID.String(), e.CreatedAt, e.Message}, "\x00")
	return contentID(domain.ContentTypeDiscussionEntry, e.ID, key, "")
}

// ExtractMetadata adds topic or reply details.
func (h *DiscussionHandler) ExtractMetadata(item domain.ContentItem, course domain.Course) domain.ItemMetadata {
	meta := h.baseMetadata(item, course)
	for k, v := range item.Extra {
		meta.Extra[k] = v
	}
	return meta
}

// ContentText returns the message as text.
func (h *DiscussionHandler) ContentText(ctx context.Context, item domain.ContentItem) (string, error) {
	return h.htmlText(ctx, item)
}

// Process ingests every non-announcement discussion of the course.
func (h *DiscussionHandler) Process(ctx context.Context, course domain.Course) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, nil)
}

// ProcessSelected ingests the topics and replies keep accepts.
func (h *DiscussionHandler) ProcessSelected(
	ctx context.Context,
	course domain.Course,
	keep domain.ItemFilter,
) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, keep)
}
