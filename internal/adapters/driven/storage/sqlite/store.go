package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/canvas-sync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.SyncStateStore = (*Store)(nil)

// DefaultFileName is the database file name inside the data directory.
const DefaultFileName = "sync_state.db"

// lastFullSyncKey is the sync_meta key of the last full sync time.
const lastFullSyncKey = "last_full_sync"

// Store is a SQLite-backed sync state store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens or creates the database at dbPath.
// If dbPath is empty, defaults to ~/.canvas-sync/data/sync_state.db.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".canvas-sync", "data", DefaultFileName)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_sync_state.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Load reads the full state.
func (s *Store) Load(ctx context.Context) (*domain.SyncState, error) {
	state := domain.NewSyncState()

	rows, err := s.db.QueryContext(ctx, `
		SELECT content_id, content_type, course_id, updated_at, processed_at, chunk_count, deleted
		FROM sync_items
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sync items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      string
			rec     domain.SyncRecord
			ctype   string
			deleted int
		)
		if err := rows.Scan(&id, &ctype, &rec.CourseID, &rec.UpdatedAt, &rec.ProcessedAt,
			&rec.ChunkCount, &deleted); err != nil {
			return nil, fmt.Errorf("scanning sync item: %w", err)
		}
		rec.ContentType = domain.ContentType(ctype)
		rec.Deleted = deleted != 0
		state.Items[id] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync items: %w", err)
	}

	courseRows, err := s.db.QueryContext(ctx, "SELECT course_id, last_sync FROM course_sync")
	if err != nil {
		return nil, fmt.Errorf("querying course sync: %w", err)
	}
	defer courseRows.Close()

	for courseRows.Next() {
		var id string
		var cs domain.CourseSync
		if err := courseRows.Scan(&id, &cs.LastSync); err != nil {
			return nil, fmt.Errorf("scanning course sync: %w", err)
		}
		state.Courses[id] = cs
	}
	if err := courseRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating course sync: %w", err)
	}

	row := s.db.QueryRowContext(ctx, "SELECT value FROM sync_meta WHERE key = ?", lastFullSyncKey)
	if err := row.Scan(&state.LastFullSync); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("scanning last full sync: %w", err)
	}

	return state, nil
}

// SaveRecord inserts or replaces an item record.
func (s *Store) SaveRecord(ctx context.Context, contentID string, rec domain.SyncRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_items (content_id, content_type, course_id, updated_at, processed_at, chunk_count, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_id) DO UPDATE SET
			content_type = excluded.content_type,
			course_id = excluded.course_id,
			updated_at = excluded.updated_at,
			processed_at = excluded.processed_at,
			chunk_count = excluded.chunk_count,
			deleted = excluded.deleted
	`, contentID, string(rec.ContentType), rec.CourseID, rec.UpdatedAt, rec.ProcessedAt,
		rec.ChunkCount, boolToInt(rec.Deleted))
	if err != nil {
		return fmt.Errorf("saving sync item: %w", err)
	}
	return nil
}

// SaveCourseSync stores a course's last sync time.
func (s *Store) SaveCourseSync(ctx context.Context, courseID string, cs domain.CourseSync) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO course_sync (course_id, last_sync) VALUES (?, ?)
		ON CONFLICT(course_id) DO UPDATE SET last_sync = excluded.last_sync
	`, courseID, cs.LastSync)
	if err != nil {
		return fmt.Errorf("saving course sync: %w", err)
	}
	return nil
}

// SaveFullSync stores the last full sync time.
func (s *Store) SaveFullSync(ctx context.Context, at string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, lastFullSyncKey, at)
	if err != nil {
		return fmt.Errorf("saving last full sync: %w", err)
	}
	return nil
}

// Reset removes all state in one transaction.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{"sync_items", "course_sync", "sync_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
