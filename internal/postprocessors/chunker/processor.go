// Package chunker splits text into overlapping word windows.
package chunker

import (
	"strings"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of words per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping words.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// Processor splits text into fixed-size word windows.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in words.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in words.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't reach chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the window size in words.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the overlap in words.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Split returns the text windows.
//
// Text of at most chunkSize words is returned whole, trimmed of outer
// whitespace. Longer text is split into windows of chunkSize words that
// advance by chunkSize-overlap; the last window ends at the final word
// and may be shorter. Empty or whitespace-only text yields no windows.
func (p *Processor) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= p.chunkSize {
		return []string{strings.TrimSpace(text)}
	}

	step := p.chunkSize - p.overlap
	windows := make([]string, 0, (len(words)-p.chunkSize+step-1)/step+1)
	for start := 0; ; start += step {
		end := start + p.chunkSize
		if end > len(words) {
			end = len(words)
		}
		windows = append(windows, strings.Join(words[start:end], " "))
		if end >= len(words) {
			break
		}
	}
	return windows
}

// Chunk splits text and attaches metadata to every window.
// ChunkIndex is positional and TotalChunks is filled once the split is known.
func (p *Processor) Chunk(text string, meta domain.ItemMetadata) []domain.Chunk {
	windows := p.Split(text)
	if len(windows) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = domain.Chunk{
			Text:        w,
			ChunkIndex:  i,
			TotalChunks: len(windows),
			Metadata:    meta,
		}
	}
	return chunks
}
