// Package migrations embeds the sync-state schema for the SQLite store.
package migrations

import "embed"

// FS holds the NNN_name.up.sql and NNN_name.down.sql pairs, applied in
// version order.
//
//go:embed *.sql
var FS embed.FS
