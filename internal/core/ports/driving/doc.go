// Package driving defines the interfaces the CLI uses to drive the core:
// running ingestion, reporting sync state and resolving settings.
//
// Implementations live in internal/core/services.
package driving
