// Package file provides file-based configuration for canvas-sync.
//
// Adapters:
//   - ConfigStore: TOML configuration in ~/.canvas-sync/config.toml
//   - LoadDotEnv: .env loading into the process environment
package file
