package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
)

// Ensure SyncStateStore implements the interface.
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

// SyncStateStore is an in-memory implementation of driven.SyncStateStore.
type SyncStateStore struct {
	mu    sync.RWMutex
	state *domain.SyncState
}

// NewSyncStateStore creates a new in-memory sync state store.
func NewSyncStateStore() *SyncStateStore {
	return &SyncStateStore{
		state: domain.NewSyncState(),
	}
}

// Load returns a copy of the stored state.
func (s *SyncStateStore) Load(_ context.Context) (*domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &domain.SyncState{
		LastFullSync: s.state.LastFullSync,
		Courses:      maps.Clone(s.state.Courses),
		Items:        maps.Clone(s.state.Items),
	}, nil
}

// SaveRecord stores or replaces an item record.
func (s *SyncStateStore) SaveRecord(_ context.Context, contentID string, record domain.SyncRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Items[contentID] = record
	return nil
}

// SaveCourseSync stores a course's last sync time.
func (s *SyncStateStore) SaveCourseSync(_ context.Context, courseID string, cs domain.CourseSync) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Courses[courseID] = cs
	return nil
}

// SaveFullSync stores the last full sync time.
func (s *SyncStateStore) SaveFullSync(_ context.Context, at string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastFullSync = at
	return nil
}

// Reset removes all state.
func (s *SyncStateStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.NewSyncState()
	return nil
}

// Close is a no-op.
func (s *SyncStateStore) Close() error {
	return nil
}
