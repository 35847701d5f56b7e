package handlers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/canvas-sync/internal/connectors/canvas"
	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
)

// Ensure FileHandler implements the interface.
var _ driven.ContentHandler = (*FileHandler)(nil)

// SupportedFileTypes are the MIME types the file handler downloads.
var SupportedFileTypes = []string{
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.ms-powerpoint",
}

// FileHandler ingests PDF and slide deck files. Other files are listed
// but skipped.
type FileHandler struct {
	base
}

// NewFileHandler creates a file handler.
func NewFileHandler(client *canvas.Client, processor Processor, opts ...Option) *FileHandler {
	return &FileHandler{base: newBase(client, processor, opts...)}
}

// Type returns the content type.
func (h *FileHandler) Type() domain.ContentType {
	return domain.ContentTypeFile
}

// FetchContent lists every file of the course. Content is downloaded
// later, only for files that are processed.
func (h *FileHandler) FetchContent(ctx context.Context, courseID string) ([]domain.ContentItem, error) {
	files, err := h.client.ListFiles(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	items := make([]domain.ContentItem, 0, len(files))
	for _, f := range files {
		items = append(items, domain.ContentItem{
			ContentID:   contentID(domain.ContentTypeFile, f.ID, f.DisplayName, f.Filename),
			ContentType: domain.ContentTypeFile,
			CourseID:    courseID,
			Title:       displayTitle(f.DisplayName, f.Filename),
			URL:         fileHTMLURL(h.client, courseID, f.ID),
			CreatedAt:   f.CreatedAt,
			UpdatedAt:   f.UpdatedAt,
			MIMEType:    f.MIMEType(),
			Size:        f.Size,
			Extra: map[string]any{
				"file_id":      f.ID.String(),
				"display_name": f.DisplayName,
			},
		})
	}
	return items, nil
}

// fileHTMLURL links to the file preview page; the API only returns a
// signed download URL.
func fileHTMLURL(client *canvas.Client, courseID string, id canvas.ID) string {
	if id == "" {
		return ""
	}
	return client.BaseURL() + "/courses/" + courseID + "/files/" + id.String()
}

// FileType classifies a MIME type as pdf, pptx or unknown.
func FileType(mimeType string) string {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "pdf"):
		return "pdf"
	case strings.Contains(mt, "powerpoint"), strings.Contains(mt, "presentation"):
		return "pptx"
	default:
		return "unknown"
	}
}

// ExtractMetadata adds the file details.
func (h *FileHandler) ExtractMetadata(item domain.ContentItem, course domain.Course) domain.ItemMetadata {
	meta := h.baseMetadata(item, course)
	meta.Extra["file_type"] = FileType(item.MIMEType)
	meta.Extra["file_size"] = item.Size
	meta.Extra["display_name"] = item.Extra["display_name"]
	return meta
}

// ContentText downloads the file and extracts its text. Unsupported and
// oversized files fail with domain.ErrUnsupportedType and
// domain.ErrFileTooLarge before anything is downloaded.
func (h *FileHandler) ContentText(ctx context.Context, item domain.ContentItem) (string, error) {
	if !slices.Contains(SupportedFileTypes, item.MIMEType) || !h.processor.Supports(item.MIMEType) {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, item.MIMEType)
	}
	if item.Size > h.maxFileSize {
		return "", fmt.Errorf("%w: %.1fMB", domain.ErrFileTooLarge, float64(item.Size)/1024/1024)
	}

	fileID, _ := item.Extra["file_id"].(string)
	if fileID == "" {
		return "", fmt.Errorf("%w: file without id", domain.ErrUnsupportedType)
	}
	content, err := h.client.DownloadFile(ctx, fileID, h.maxFileSize)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", fileID, err)
	}
	return h.processor.ExtractText(ctx, content, item.MIMEType)
}

// Process ingests every supported file of the course.
func (h *FileHandler) Process(ctx context.Context, course domain.Course) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, nil)
}

// ProcessSelected ingests the files keep accepts.
func (h *FileHandler) ProcessSelected(
	ctx context.Context,
	course domain.Course,
	keep domain.ItemFilter,
) (*domain.HandlerResult, error) {
	return h.run(ctx, h, course, keep)
}
