// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - IngestService: runs content handlers per course and writes chunks
//   - Tracker: sync state, change detection and deletion bookkeeping
//   - DocumentProcessor: format routing between extractors and the chunker
//   - SettingsService: defaults, config file and environment overrides
package services
