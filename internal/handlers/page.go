package handlers

import (
	"context"
	"fmt"

	"github.com/custodia-labs/canvas-sync/internal/connectors/canvas"
	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/logger"
)

// Ensure PageHandler implements the interface.
var _ driven.ContentHandler = (*PageHandler)(nil)

// PageHandler ingests wiki pages.
type PageHandler struct {
	base
}

// NewPageHandler creates a page handler.
func NewPageHandler(client *canvas.Client, processor Processor, opts ...Option) *PageHandler {
	return &PageHandler{base: newBase(client, processor, opts...)}
}

// Type returns the content type.
func (h *PageHandler) Type() domain.ContentType {
	return domain.ContentTypePage
}

// FetchContent lists pages and fetches each body, which list responses omit.
// A page that 404s between the two requests is dropped. Any other body
// failure keeps the page with Err set.
func (h *PageHandler) FetchContent(ctx context.Context, courseID string) ([]domain.ContentItem, error) {
	pages, err := h.client.ListPages(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	items := make([]domain.ContentItem, 0, len(pages))
	for _, summary := range pages {
		if summary.URL == "" {
			continue
		}
		item := pageItem(courseID, summary)

		full, err := h.client.GetPage(ctx, courseID, summary.URL)
		switch {
		case err == nil:
			item = pageItem(courseID, *full)
		case fatal(ctx, err):
			return nil, err
		case canvas.IsNotFound(err):
			logger.Debug("Page %q disappeared before its body was fetched", summary.Title)
			continue
		default:
			logger.Warn("Could not fetch page %q: %v", summary.Title, err)
			item.Err = err
		}
		items = append(items, item)
	}
	return items, nil
}

func pageItem(courseID string, p canvas.Page) domain.ContentItem {
	return domain.ContentItem{
		ContentID:   contentID(domain.ContentTypePage, p.PageID, p.Title, ""),
		ContentType: domain.ContentTypePage,
		CourseID:    courseID,
		Title:       displayTitle(p.Title),
		URL:         p.HTMLURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Body:        p.Body,
		Extra: map[string]any{
			"published":  p.Published,
			"front_page": p.FrontPage,
		},
	}
}

// ExtractMetadata adds published and front_page.
func (h *PageHandler) ExtractMetadata(item domain.ContentItem, course domain.Course) domain.ItemMetadata {
	meta := h.baseMetadata(item, course)
	meta.Extra["published"] = item.Extra["published"]
	meta.Extra["front_page"] = item.Extra["front_page"]
	return meta
}

// ContentText returns the page body as text.
func (h *PageHandler) ContentText(ctx context.Context, item domain.ContentItem) (string, error) {
	return h.htmlText(ctx, item)
}

// Process ingests every page of the course.
func (h *PageHandler) Process(ctx context.Context, course domain.Course) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, nil)
}

// ProcessSelected ingests the pages keep accepts.
func (h *PageHandler) ProcessSelected(
	ctx context.Context,
	course domain.Course,
	keep domain.ItemFilter,
) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, keep)
}
