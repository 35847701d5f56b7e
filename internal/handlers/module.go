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

// Ensure ModuleHandler implements the interface.
var _ driven.ContentHandler = (*ModuleHandler)(nil)

// ModuleHandler ingests module items. Each item inherits its module's
// name, position and ID.
type ModuleHandler struct {
	base
}

// NewModuleHandler creates a module handler.
func NewModuleHandler(client *canvas.Client, processor Processor, opts ...Option) *ModuleHandler {
	return &ModuleHandler{base: newBase(client, processor, opts...)}
}

// Type returns the content type.
func (h *ModuleHandler) Type() domain.ContentType {
	return domain.ContentTypeModule
}

// FetchContent lists modules and the items of each. A module whose items
// cannot be listed is skipped and the listing reported incomplete.
func (h *ModuleHandler) FetchContent(ctx context.Context, courseID string) ([]domain.ContentItem, error) {
	modules, err := h.client.ListModules(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	var (
		items []domain.ContentItem
		errs  []error
	)
	for _, m := range modules {
		moduleItems, err := h.client.ListModuleItems(ctx, courseID, m.ID.String())
		if err != nil {
			if fatal(ctx, err) {
				return nil, err
			}
			logger.Warn("Error fetching module %q: %v", m.Name, err)
			errs = append(errs, fmt.Errorf("module %s: %w", m.ID, err))
			continue
		}

		for _, mi := range moduleItems {
			items = append(items, domain.ContentItem{
				ContentID:   contentID(domain.ContentTypeModule, mi.ID, mi.Title, ""),
				ContentType: domain.ContentTypeModule,
				CourseID:    courseID,
				Title:       displayTitle(mi.Title),
				URL:         mi.HTMLURL,
				CreatedAt:   mi.CreatedAt,
				UpdatedAt:   mi.UpdatedAt,
				Body:        moduleItemText(mi),
				Extra: map[string]any{
					"module_name":     m.Name,
					"module_position": m.Position,
					"module_id":       m.ID.String(),
					"item_type":       mi.Type,
					"position":        mi.Position,
				},
			})
		}
	}

	if len(errs) > 0 {
		return items, fmt.Errorf("%w: %w", ErrPartialListing, errors.Join(errs...))
	}
	return items, nil
}

// moduleItemText prefers the embedded content body, falling back to the
// item title and text.
func moduleItemText(mi canvas.ModuleItem) string {
	if strings.TrimSpace(mi.ContentDetails.Body) != "" {
		return mi.ContentDetails.Body
	}
	return mi.Title + "\n" + mi.Text
}

// ExtractMetadata adds the module context.
func (h *ModuleHandler) ExtractMetadata(item domain.ContentItem, course domain.Course) domain.ItemMetadata {
	meta := h.baseMetadata(item, course)
	for _, k := range []string{"module_name", "module_position", "module_id", "item_type", "position"} {
		meta.Extra[k] = item.Extra[k]
	}
	return meta
}

// ContentText returns the item body as text.
func (h *ModuleHandler) ContentText(ctx context.Context, item domain.ContentItem) (string, error) {
	return h.htmlText(ctx, item)
}

// Process ingests every module item of the course.
func (h *ModuleHandler) Process(ctx context.Context, course domain.Course) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, nil)
}

// ProcessSelected ingests the module items keep accepts.
func (h *ModuleHandler) ProcessSelected(
	ctx context.Context,
	course domain.Course,
	keep domain.ItemFilter,
) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, keep)
}
