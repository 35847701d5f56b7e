// Package file provides a sync state store backed by a single JSON document.
//
// The document layout is:
//
//	{
//	  "last_full_sync": "2024-01-01T00:00:00Z",
//	  "courses": {"101": {"last_sync": "..."}},
//	  "content_items": {"item_<content_id>": {"content_type": "page", ...}}
//	}
//
// Every mutation rewrites the whole document through a temporary file and
// a rename, so a crash never leaves a partially written state.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.SyncStateStore = (*Store)(nil)

// DefaultFileName is the state file name inside the data directory.
const DefaultFileName = "ingestion_state.json"

// itemKeyPrefix prefixes content IDs in the content_items map.
const itemKeyPrefix = "item_"

type document struct {
	LastFullSync *string                 `json:"last_full_sync"`
	Courses      map[string]courseEntry  `json:"courses"`
	ContentItems map[string]contentEntry `json:"content_items"`
}

type courseEntry struct {
	LastSync string `json:"last_sync,omitempty"`
}

type contentEntry struct {
	ContentType string `json:"content_type"`
	CourseID    string `json:"course_id,omitempty"`
	UpdatedAt   string `json:"updated_at"`
	ProcessedAt string `json:"processed_at"`
	ChunkCount  int    `json:"chunk_count"`
	Deleted     bool   `json:"deleted"`
}

func emptyDocument() *document {
	return &document{
		Courses:      make(map[string]courseEntry),
		ContentItems: make(map[string]contentEntry),
	}
}

// Store persists sync state as a JSON document.
type Store struct {
	path string

	mu  sync.Mutex
	doc *document
}

// NewStore opens the state file at path, creating its directory.
// If path is empty, defaults to ~/.canvas-sync/data/ingestion_state.json.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".canvas-sync", "data", DefaultFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Store{path: path}
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return s, nil
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// read loads the document from disk. A missing file yields an empty
// document; an unreadable one is logged and replaced.
func (s *Store) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return emptyDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	doc := emptyDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		logger.Warn("Ignoring unreadable state file %s: %v", s.path, err)
		return emptyDocument(), nil
	}
	if doc.Courses == nil {
		doc.Courses = make(map[string]courseEntry)
	}
	if doc.ContentItems == nil {
		doc.ContentItems = make(map[string]contentEntry)
	}
	return doc, nil
}

// write atomically replaces the state file with doc.
func (s *Store) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// update applies fn to a copy of the document and persists it. The
// in-memory document only changes once the write succeeds.
func (s *Store) update(fn func(doc *document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := &document{
		LastFullSync: s.doc.LastFullSync,
		Courses:      maps.Clone(s.doc.Courses),
		ContentItems: maps.Clone(s.doc.ContentItems),
	}
	fn(next)
	if err := s.write(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// Load returns the current state.
func (s *Store) Load(_ context.Context) (*domain.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := domain.NewSyncState()
	if s.doc.LastFullSync != nil {
		state.LastFullSync = *s.doc.LastFullSync
	}
	for id, c := range s.doc.Courses {
		state.Courses[id] = domain.CourseSync{LastSync: c.LastSync}
	}
	for key, e := range s.doc.ContentItems {
		state.Items[strings.TrimPrefix(key, itemKeyPrefix)] = domain.SyncRecord{
			ContentType: domain.ContentType(e.ContentType),
			CourseID:    e.CourseID,
			UpdatedAt:   e.UpdatedAt,
			ProcessedAt: e.ProcessedAt,
			ChunkCount:  e.ChunkCount,
			Deleted:     e.Deleted,
		}
	}
	return state, nil
}

// SaveRecord inserts or replaces an item record.
func (s *Store) SaveRecord(_ context.Context, contentID string, rec domain.SyncRecord) error {
	return s.update(func(doc *document) {
		doc.ContentItems[itemKeyPrefix+contentID] = contentEntry{
			ContentType: string(rec.ContentType),
			CourseID:    rec.CourseID,
			UpdatedAt:   rec.UpdatedAt,
			ProcessedAt: rec.ProcessedAt,
			ChunkCount:  rec.ChunkCount,
			Deleted:     rec.Deleted,
		}
	})
}

// SaveCourseSync stores a course's last sync time.
func (s *Store) SaveCourseSync(_ context.Context, courseID string, cs domain.CourseSync) error {
	return s.update(func(doc *document) {
		doc.Courses[courseID] = courseEntry{LastSync: cs.LastSync}
	})
}

// SaveFullSync stores the last full sync time.
func (s *Store) SaveFullSync(_ context.Context, at string) error {
	return s.update(func(doc *document) {
		doc.LastFullSync = &at
	})
}

// Reset replaces the state with an empty document.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := emptyDocument()
	if err := s.write(doc); err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// Close is a no-op; every mutation is already on disk.
func (s *Store) Close() error {
	return nil
}
