package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver "pgx"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultTable is the chunk table name.
const DefaultTable = "canvas_chunks"

// Errors returned by the adapter.
var (
	ErrMissingDatabaseURL = errors.New("pgvector: database URL is required")
	ErrInvalidTable       = errors.New("pgvector: invalid table name")
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Config holds connection settings.
type Config struct {
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string

	// Table is the chunk table. Defaults to DefaultTable.
	Table string
}

// Index is a pgvector-backed vector index.
type Index struct {
	db    *sql.DB
	table string
}

// New connects, creates the extension and table if needed, and returns
// the index.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	table, err := validTable(cfg.Table)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgvector: open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pgvector: ping db: %w", err)
	}

	idx := &Index{db: db, table: table}
	if err := idx.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("pgvector: using table %s", table)
	return idx, nil
}

func validTable(name string) (string, error) {
	if name == "" {
		return DefaultTable, nil
	}
	if !tableName.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return name, nil
}

// schemaStatements returns the DDL for a table.
func schemaStatements(table string) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding  vector NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_course_idx ON %s ((metadata->>'course_id'))`, table, table),
	}
}

func (i *Index) bootstrap(ctx context.Context) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgvector: begin bootstrap: %w", err)
	}
	for _, stmt := range schemaStatements(i.table) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("pgvector: bootstrap: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgvector: commit bootstrap: %w", err)
	}
	return nil
}

// upsertQuery returns the single-row upsert statement.
func upsertQuery(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			content    = EXCLUDED.content,
			metadata   = EXCLUDED.metadata,
			embedding  = EXCLUDED.embedding,
			updated_at = now()`, table)
}

// Upsert inserts or replaces records in a single transaction.
func (i *Index) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := i.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("pgvector: begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, upsertQuery(i.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("pgvector: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := encodeMetadata(r.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("pgvector: encode metadata %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Text, meta, pgvector.NewVector(r.Vector)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("pgvector: upsert %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func encodeMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Delete removes records by ID.
func (i *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, i.table)
	if _, err := i.db.ExecContext(ctx, q, ids); err != nil {
		return fmt.Errorf("pgvector: delete: %w", err)
	}
	return nil
}

// buildQuery returns the similarity query and its arguments. Filter keys
// are bound as parameters and compared against the text form of the
// metadata field.
func buildQuery(table string, vector []float32, k int, filter map[string]any) (string, []any) {
	args := []any{pgvector.NewVector(vector)}

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var where []string
	for _, key := range keys {
		args = append(args, key, fmt.Sprint(filter[key]))
		where = append(where, fmt.Sprintf("metadata->>$%d = $%d", len(args)-1, len(args)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT id, content, metadata, embedding, 1 - (embedding <=> $1) AS similarity FROM %s", table)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, k)
	fmt.Fprintf(&b, " ORDER BY embedding <=> $1 LIMIT $%d", len(args))
	return b.String(), args
}

// Query returns the k nearest records matching filter.
func (i *Index) Query(ctx context.Context, vector []float32, k int, filter map[string]any) ([]driven.VectorMatch, error) {
	if k <= 0 {
		return nil, nil
	}

	q, args := buildQuery(i.table, vector, k, filter)
	rows, err := i.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector: query: %w", err)
	}
	defer rows.Close()

	var out []driven.VectorMatch
	for rows.Next() {
		var (
			m    driven.VectorMatch
			meta []byte
			emb  pgvector.Vector
		)
		if err := rows.Scan(&m.ID, &m.Text, &meta, &emb, &m.Similarity); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		if err := json.Unmarshal(meta, &m.Metadata); err != nil {
			return nil, fmt.Errorf("pgvector: decode metadata %s: %w", m.ID, err)
		}
		m.Vector = emb.Slice()
		out = append(out, m)
	}
	return out, rows.Err()
}

// Count returns the number of records.
func (i *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := i.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, i.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgvector: count: %w", err)
	}
	return n, nil
}

// Reset removes every record.
func (i *Index) Reset(ctx context.Context) error {
	if _, err := i.db.ExecContext(ctx, fmt.Sprintf(`TRUNCATE %s`, i.table)); err != nil {
		return fmt.Errorf("pgvector: reset: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (i *Index) Close() error {
	if i.db != nil {
		return i.db.Close()
	}
	return nil
}
