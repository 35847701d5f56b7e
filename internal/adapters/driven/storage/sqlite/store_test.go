package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), DefaultFileName))
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_Success(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
	assert.NoError(t, store.db.Ping())
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "path", "state.db")

	store, err := NewStore(nested)
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, filepath.Dir(nested))
}

func TestNewStore_Migrations(t *testing.T) {
	store := setupTestStore(t)

	var count int
	err := store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	for _, table := range []string{"sync_items", "course_sync", "sync_meta"} {
		var exists int
		err := store.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.Equal(t, 1, exists, "table %s should exist", table)
	}
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	first, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.SaveRecord(context.Background(), "p1", domain.SyncRecord{ContentType: domain.ContentTypePage}))
	require.NoError(t, first.Close())

	second, err := NewStore(dbPath)
	require.NoError(t, err)
	defer second.Close()

	var count int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	state, err := second.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, state.Items, "p1")
}

func TestStore_Close(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.Error(t, store.db.Ping())
}

// ==================== Sync State Tests ====================

func TestStore_LoadEmpty(t *testing.T) {
	store := setupTestStore(t)

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.Items)
	assert.Empty(t, state.Courses)
	assert.Empty(t, state.LastFullSync)
}

func TestStore_SaveRecord(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := domain.SyncRecord{
		ContentType: domain.ContentTypeDiscussionEntry,
		CourseID:    "101",
		UpdatedAt:   "2024-01-01T00:00:00Z",
		ProcessedAt: "2024-01-02T00:00:00Z",
		ChunkCount:  2,
	}
	require.NoError(t, store.SaveRecord(ctx, "discussion_entry_9", rec))

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec, state.Items["discussion_entry_9"])
}

func TestStore_SaveRecord_Upsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRecord(ctx, "f1", domain.SyncRecord{
		ContentType: domain.ContentTypeFile, CourseID: "101", UpdatedAt: "t1", ChunkCount: 5,
	}))
	require.NoError(t, store.SaveRecord(ctx, "f1", domain.SyncRecord{
		ContentType: domain.ContentTypeFile, CourseID: "101", UpdatedAt: "t2", ChunkCount: 5, Deleted: true,
	}))

	state, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, state.Items, 1)
	assert.Equal(t, "t2", state.Items["f1"].UpdatedAt)
	assert.True(t, state.Items["f1"].Deleted)
}

func TestStore_CourseAndFullSync(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCourseSync(ctx, "101", domain.CourseSync{LastSync: "a"}))
	require.NoError(t, store.SaveCourseSync(ctx, "101", domain.CourseSync{LastSync: "b"}))
	require.NoError(t, store.SaveCourseSync(ctx, "202", domain.CourseSync{LastSync: "c"}))
	require.NoError(t, store.SaveFullSync(ctx, "x"))
	require.NoError(t, store.SaveFullSync(ctx, "y"))

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", state.Courses["101"].LastSync)
	assert.Equal(t, "c", state.Courses["202"].LastSync)
	assert.Equal(t, "y", state.LastFullSync)
}

func TestStore_Reset(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRecord(ctx, "p1", domain.SyncRecord{ContentType: domain.ContentTypePage}))
	require.NoError(t, store.SaveCourseSync(ctx, "101", domain.CourseSync{LastSync: "a"}))
	require.NoError(t, store.SaveFullSync(ctx, "x"))

	require.NoError(t, store.Reset(ctx))

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.Items)
	assert.Empty(t, state.Courses)
	assert.Empty(t, state.LastFullSync)
}
