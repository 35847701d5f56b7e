// Package pgvector stores chunk vectors in PostgreSQL with the pgvector
// extension.
//
// Records live in a single table keyed by chunk ID. Metadata is kept as
// JSONB so queries can filter on any field, and similarity is ranked with
// the cosine distance operator (<=>).
package pgvector
