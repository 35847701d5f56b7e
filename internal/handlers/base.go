package handlers

import (
	"context"
	"crypto/md5" //nolint:gosec // identity fallback, not security
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/canvas-sync/internal/connectors/canvas"
	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/logger"
)

// ErrPartialListing is returned alongside the items that could be listed
// when part of a listing failed. Deletion detection is skipped for such runs.
var ErrPartialListing = errors.New("listing incomplete")

// Processor extracts and chunks item content.
type Processor interface {
	// HTMLText converts an HTML body to plain text.
	HTMLText(ctx context.Context, body string) string

	// ExtractText converts binary content of the given MIME type.
	ExtractText(ctx context.Context, content []byte, format string) (string, error)

	// Supports reports whether binary content of the MIME type can be extracted.
	Supports(mimeType string) bool

	// Chunk splits text and copies meta onto every chunk.
	Chunk(text string, meta domain.ItemMetadata) []domain.Chunk
}

// Option configures a handler.
type Option func(*base)

// WithMaxFileSize sets the largest file downloaded, in bytes.
func WithMaxFileSize(n int64) Option {
	return func(b *base) {
		if n > 0 {
			b.maxFileSize = n
		}
	}
}

// WithClock sets the time source for ingested_at.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// base holds what every handler shares.
type base struct {
	client      *canvas.Client
	processor   Processor
	maxFileSize int64
	now         func() time.Time
}

func newBase(client *canvas.Client, processor Processor, opts ...Option) base {
	b := base{
		client:      client,
		processor:   processor,
		maxFileSize: int64(domain.DefaultMaxFileSizeMB) * 1024 * 1024,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// source is the per-type behaviour driven by the shared loop.
type source interface {
	Type() domain.ContentType
	FetchContent(ctx context.Context, courseID string) ([]domain.ContentItem, error)
	ExtractMetadata(item domain.ContentItem, course domain.Course) domain.ItemMetadata
	ContentText(ctx context.Context, item domain.ContentItem) (string, error)
}

// run fetches every item of src for the course and chunks the ones keep
// accepts. Per-item failures are logged and counted. Only a failed listing,
// an authentication failure or cancellation is returned as an error.
//
//nolint:gocognit,gocyclo // Per-item pipeline with explicit outcome accounting
func (b *base) run(
	ctx context.Context,
	src source,
	course domain.Course,
	keep domain.ItemFilter,
) (*domain.HandlerResult, error) {
	t := src.Type()
	logger.Info("Processing %s content for course %s", t, course.ID)

	items, err := src.FetchContent(ctx, course.ID)
	complete := true
	if err != nil {
		if !errors.Is(err, ErrPartialListing) {
			return nil, fmt.Errorf("fetch %s: %w", t, err)
		}
		logger.Warn("Listing of %s in course %s is incomplete: %v", t, course.ID, err)
		complete = false
	}
	logger.Debug("Fetched %d %s items", len(items), t)

	result := &domain.HandlerResult{
		ContentType: t,
		Seen:        make([]string, 0, len(items)),
		Complete:    complete,
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Seen = append(result.Seen, item.ContentID)

		if item.Err != nil {
			result.Failed++
			logger.Warn("Could not fetch %s %s: %v", t, item.ContentID, item.Err)
			continue
		}
		if keep != nil && !keep(item) {
			result.Unchanged++
			continue
		}

		meta := src.ExtractMetadata(item, course)
		text, err := src.ContentText(ctx, item)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrAuthInvalid):
				return nil, err
			case ctx.Err() != nil:
				return nil, ctx.Err()
			case errors.Is(err, domain.ErrUnsupportedType), errors.Is(err, domain.ErrFileTooLarge):
				result.Skipped++
				logger.Debug("Skipping %s %s: %v", t, item.ContentID, err)
			default:
				result.Failed++
				logger.Error("Error processing %s %s: %v", t, item.ContentID, err)
			}
			continue
		}

		var chunks []domain.Chunk
		if strings.TrimSpace(text) != "" {
			chunks = b.processor.Chunk(text, meta)
		}
		if len(chunks) == 0 {
			result.Skipped++
			result.Empty = append(result.Empty, meta)
			logger.Debug("Skipping %s %s - no content", t, item.ContentID)
			continue
		}

		result.Items++
		result.Chunks = append(result.Chunks, chunks...)
	}

	if result.Failed > 0 {
		logger.Warn("Failed to process %d %s items", result.Failed, t)
	}
	logger.Info("Generated %d chunks from %d %s items", len(result.Chunks), len(items), t)
	return result, nil
}

// baseMetadata fills the fields common to every content type.
func (b *base) baseMetadata(item domain.ContentItem, course domain.Course) domain.ItemMetadata {
	return domain.ItemMetadata{
		ContentID:   item.ContentID,
		ContentType: item.ContentType,
		CourseID:    course.ID,
		CourseName:  course.Name,
		Title:       item.Title,
		Source:      domain.SourceName,
		URL:         item.URL,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
		IngestedAt:  b.now().UTC().Format(time.RFC3339),
		Extra:       make(map[string]any),
	}
}

// htmlText is the default text accessor for items with an HTML body.
func (b *base) htmlText(ctx context.Context, item domain.ContentItem) (string, error) {
	return b.processor.HTMLText(ctx, item.Body), nil
}

// contentID builds a type-prefixed identifier. Items without a Canvas ID
// fall back to a truncated hash of their title, then name.
func contentID(t domain.ContentType, id canvas.ID, title, name string) string {
	if id != "" {
		return string(t) + "_" + string(id)
	}
	return string(t) + "_" + titleHash(title, name)
}

// titleHash returns the first 12 hex characters of the MD5 of the first
// non-empty candidate, or of "untitled".
func titleHash(candidates ...string) string {
	key := "untitled"
	for _, c := range candidates {
		if c != "" {
			key = c
			break
		}
	}
	sum := md5.Sum([]byte(key)) //nolint:gosec // identity fallback, not security
	return hex.EncodeToString(sum[:])[:12]
}

// displayTitle returns the first non-empty candidate, or "Untitled".
func displayTitle(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return "Untitled"
}

// fatal reports whether a sub-listing error must abort the whole listing.
func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, domain.ErrAuthInvalid) || ctx.Err() != nil
}
