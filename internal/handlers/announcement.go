package handlers

import (
	"context"
	"fmt"

	"github.com/custodia-labs/canvas-sync/internal/connectors/canvas"
	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
)

// Ensure AnnouncementHandler implements the interface.
var _ driven.ContentHandler = (*AnnouncementHandler)(nil)

// AnnouncementHandler ingests course announcements.
type AnnouncementHandler struct {
	base
}

// NewAnnouncementHandler creates an announcement handler.
func NewAnnouncementHandler(client *canvas.Client, processor Processor, opts ...Option) *AnnouncementHandler {
	return &AnnouncementHandler{base: newBase(client, processor, opts...)}
}

// Type returns the content type.
func (h *AnnouncementHandler) Type() domain.ContentType {
	return domain.ContentTypeAnnouncement
}

// FetchContent lists announcements.
func (h *AnnouncementHandler) FetchContent(ctx context.Context, courseID string) ([]domain.ContentItem, error) {
	topics, err := h.client.ListAnnouncements(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}

	items := make([]domain.ContentItem, 0, len(topics))
	for _, t := range topics {
		items = append(items, domain.ContentItem{
			ContentID:   contentID(domain.ContentTypeAnnouncement, t.ID, t.Title, ""),
			ContentType: domain.ContentTypeAnnouncement,
			CourseID:    courseID,
			Title:       displayTitle(t.Title),
			URL:         t.HTMLURL,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
			Body:        t.Message,
			Extra: map[string]any{
				"posted_at":   t.PostedAt,
				"author_id":   t.Author.ID.String(),
				"author_name": t.Author.DisplayName,
			},
		})
	}
	return items, nil
}

// ExtractMetadata adds the posting details.
func (h *AnnouncementHandler) ExtractMetadata(item domain.ContentItem, course domain.Course) domain.ItemMetadata {
	meta := h.baseMetadata(item, course)
	for _, k := range []string{"posted_at", "author_id", "author_name"} {
		meta.Extra[k] = item.Extra[k]
	}
	return meta
}

// ContentText returns the message as text.
func (h *AnnouncementHandler) ContentText(ctx context.Context, item domain.ContentItem) (string, error) {
	return h.htmlText(ctx, item)
}

// Process ingests every announcement of the course.
func (h *AnnouncementHandler) Process(ctx context.Context, course domain.Course) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, nil)
}

// ProcessSelected ingests the announcements keep accepts.
func (h *AnnouncementHandler) ProcessSelected(
	ctx context.Context,
	course domain.Course,
	keep domain.ItemFilter,
) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, keep)
}
