package domain

import (
	"strconv"
	"strings"
)

// ItemMetadata describes the item a chunk came from.
// Every chunk of an item carries a copy.
type ItemMetadata struct {
	ContentID   string
	ContentType ContentType
	CourseID    string
	CourseName  string
	Title       string
	Source      string
	URL         string
	CreatedAt   string
	UpdatedAt   string
	IngestedAt  string

	// Extra contains handler-specific fields such as points_possible
	// or module_name.
	Extra map[string]any
}

// Map flattens the metadata into the key-value form stored alongside
// vectors. Nil values and empty strings are omitted.
func (m ItemMetadata) Map() map[string]any {
	out := make(map[string]any, 10+len(m.Extra))
	put := func(k string, v any) {
		switch val := v.(type) {
		case nil:
			return
		case string:
			if val == "" {
				return
			}
		}
		out[k] = v
	}

	put("content_id", m.ContentID)
	put("content_type", string(m.ContentType))
	put("course_id", m.CourseID)
	put("course_name", m.CourseName)
	put("title", m.Title)
	put("source", m.Source)
	put("url", m.URL)
	put("created_at", m.CreatedAt)
	put("updated_at", m.UpdatedAt)
	put("ingested_at", m.IngestedAt)
	for k, v := range m.Extra {
		put(k, v)
	}
	return out
}

// Chunk represents a retrievable unit of text within an item.
type Chunk struct {
	// Text is the chunk content.
	Text string

	// ChunkIndex is the zero-based position within the item.
	ChunkIndex int

	// TotalChunks is the number of chunks the item was split into.
	TotalChunks int

	// Metadata describes the source item.
	Metadata ItemMetadata

	// Embedding is the vector representation, populated before upsert.
	Embedding []float32
}

// ID returns the deterministic chunk identifier.
func (c Chunk) ID() string {
	return ChunkID(c.Metadata.ContentID, c.ChunkIndex)
}

// MetadataMap returns the flattened item metadata plus the chunk position.
func (c Chunk) MetadataMap() map[string]any {
	m := c.Metadata.Map()
	m["chunk_index"] = c.ChunkIndex
	m["total_chunks"] = c.TotalChunks
	return m
}

const chunkIDSeparator = "_chunk_"

// ChunkID builds the identifier {content_id}_chunk_{chunk_index}.
// Re-ingesting the same item overwrites rather than duplicates.
func ChunkID(contentID string, index int) string {
	return contentID + chunkIDSeparator + strconv.Itoa(index)
}

// ChunkIDs returns the identifiers for chunk indexes [from, to).
func ChunkIDs(contentID string, from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to <= from {
		return nil
	}
	ids := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		ids = append(ids, ChunkID(contentID, i))
	}
	return ids
}

// ParseChunkID splits a chunk identifier into content ID and index.
func ParseChunkID(id string) (contentID string, index int, ok bool) {
	pos := strings.LastIndex(id, chunkIDSeparator)
	if pos < 0 {
		return "", 0, false
	}
	index, err := strconv.Atoi(id[pos+len(chunkIDSeparator):])
	if err != nil || index < 0 {
		return "", 0, false
	}
	return id[:pos], index, true
}
