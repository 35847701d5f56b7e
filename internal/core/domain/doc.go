// Package domain defines the core business entities for canvas-sync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ContentItem: A normalised item fetched from a course
//   - ItemMetadata: Descriptive fields copied onto every chunk of an item
//   - Chunk: A retrievable unit of text with a deterministic ID
//   - SyncRecord / SyncState: What has been ingested and when
//   - Settings: Runtime configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
