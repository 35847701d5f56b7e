// Package pdf extracts text from PDF documents page by page.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// MIMEType is the PDF content type.
const MIMEType = "application/pdf"

// Extractor handles PDF documents.
type Extractor struct{}

// New creates a new PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Extract returns the text of every readable page, one page per block.
// A page that fails to decode is logged and skipped. A document with no
// text at all, such as a scanned image, fails with domain.ErrExtractionFailed.
func (e *Extractor) Extract(ctx context.Context, content []byte) (string, error) {
	doc, err := open(content)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", domain.ErrExtractionFailed, err)
	}
	return extractPages(ctx, doc)
}

// pageSource is the subset of a parsed PDF used for extraction.
type pageSource interface {
	NumPage() int
	PageText(n int) (string, error)
}

// extractPages concatenates page text, skipping pages that fail.
func extractPages(ctx context.Context, src pageSource) (string, error) {
	var result strings.Builder
	for i := 1; i <= src.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := src.PageText(i)
		if err != nil {
			logger.Warn("pdf: skipping page %d: %v", i, err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			result.WriteString(text)
			result.WriteString("\n")
		}
	}

	if strings.TrimSpace(result.String()) == "" {
		return "", fmt.Errorf("%w: no text in pdf", domain.ErrExtractionFailed)
	}
	return result.String(), nil
}

// document adapts a ledongthuc/pdf reader to pageSource.
type document struct {
	reader *pdf.Reader
}

// open parses the document. The parser panics on some malformed
// inputs, so panics are converted to errors.
func open(content []byte) (doc *document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}
	return &document{reader: reader}, nil
}

func (d *document) NumPage() int {
	return d.reader.NumPage()
}

func (d *document) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed page: %v", r)
		}
	}()

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
