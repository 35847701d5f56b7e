// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ContentHandler: Fetches and shapes one kind of course content
//   - TextExtractor: Turns a binary document into plain text
//   - SyncStateStore: Tracker persistence (SQLite, JSON file, memory)
//   - VectorIndex: Chunk storage keyed by deterministic chunk ID (pgvector, memory)
//   - EmbeddingService: Generates vectors for chunk text (Ollama)
//   - ConfigStore: Application configuration (TOML)
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - KeywordIndex: Full-text index of chunks (bleve). Without it only vectors are written.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
