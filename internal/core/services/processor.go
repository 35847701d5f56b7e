package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
)

// Formats detected from content when no MIME type is known.
const (
	mimeHTML = "text/html"
	mimePDF  = "application/pdf"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

var (
	pdfMagic = []byte("%PDF")
	zipMagic = []byte("PK\x03\x04")
)

// DocumentProcessor turns item bodies into chunks.
// It routes binary content to the extractor registered for its MIME type
// and splits the resulting text with the chunker.
type DocumentProcessor struct {
	chunker    driven.Chunker
	extractors map[string]driven.TextExtractor
}

// NewDocumentProcessor creates a processor. Extractors are registered under
// every MIME type they report; later registrations win.
func NewDocumentProcessor(chunker driven.Chunker, extractors ...driven.TextExtractor) *DocumentProcessor {
	p := &DocumentProcessor{
		chunker:    chunker,
		extractors: make(map[string]driven.TextExtractor),
	}
	for _, e := range extractors {
		p.Register(e)
	}
	return p
}

// Register adds an extractor for the MIME types it supports.
func (p *DocumentProcessor) Register(e driven.TextExtractor) {
	for _, mt := range e.SupportedMIMETypes() {
		p.extractors[normaliseMIME(mt)] = e
	}
}

// Supports returns true if binary content of the MIME type can be extracted.
func (p *DocumentProcessor) Supports(mimeType string) bool {
	_, ok := p.extractors[normaliseMIME(mimeType)]
	return ok
}

// ExtractText converts content of the given format to plain text.
// An empty format is detected from the content.
func (p *DocumentProcessor) ExtractText(ctx context.Context, content []byte, format string) (string, error) {
	mt := normaliseMIME(format)
	if mt == "" {
		mt = DetectFormat(content)
	}
	e, ok := p.extractors[mt]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, format)
	}
	text, err := e.Extract(ctx, content)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", mt, err)
	}
	return text, nil
}

// HTMLText converts an HTML body to plain text.
func (p *DocumentProcessor) HTMLText(ctx context.Context, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	text, err := p.ExtractText(ctx, []byte(body), mimeHTML)
	if err != nil {
		return strings.TrimSpace(body)
	}
	return text
}

// Chunk splits text into chunks carrying meta.
func (p *DocumentProcessor) Chunk(text string, meta domain.ItemMetadata) []domain.Chunk {
	return p.chunker.Chunk(text, meta)
}

// ProcessHTML extracts and chunks an HTML body.
func (p *DocumentProcessor) ProcessHTML(ctx context.Context, body string, meta domain.ItemMetadata) []domain.Chunk {
	return p.Chunk(p.HTMLText(ctx, body), meta)
}

// ProcessBinary extracts and chunks a downloaded document.
func (p *DocumentProcessor) ProcessBinary(
	ctx context.Context,
	content []byte,
	format string,
	meta domain.ItemMetadata,
) ([]domain.Chunk, error) {
	text, err := p.ExtractText(ctx, content, format)
	if err != nil {
		return nil, err
	}
	return p.Chunk(text, meta), nil
}

// DetectFormat guesses the MIME type of content from its leading bytes.
// Zip containers are assumed to be slide decks.
func DetectFormat(content []byte) string {
	switch {
	case bytes.HasPrefix(content, pdfMagic):
		return mimePDF
	case bytes.HasPrefix(content, zipMagic):
		return mimePPTX
	default:
		return mimeHTML
	}
}

// normaliseMIME lowercases a MIME type and drops parameters.
func normaliseMIME(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
