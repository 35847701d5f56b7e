package handlers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/canvas-sync/internal/connectors/canvas"
	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.HandlerRegistry = (*Registry)(nil)

// Registry maps content types to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.ContentType]driven.ContentHandler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[domain.ContentType]driven.ContentHandler),
	}
}

// NewDefaultRegistry creates a registry with a handler for every content
// type, sharing one client and processor.
func NewDefaultRegistry(client *canvas.Client, processor Processor, opts ...Option) *Registry {
	r := NewRegistry()
	r.Register(NewModuleHandler(client, processor, opts...))
	r.Register(NewPageHandler(client, processor, opts...))
	r.Register(NewAssignmentHandler(client, processor, opts...))
	r.Register(NewAnnouncementHandler(client, processor, opts...))
	r.Register(NewDiscussionHandler(client, processor, opts...))
	r.Register(NewFileHandler(client, processor, opts...))
	r.Register(NewSyllabusHandler(client, processor, opts...))
	return r
}

// Register adds or replaces the handler for its content type.
func (r *Registry) Register(h driven.ContentHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Type()] = h
}

// Get returns the handler for a content type.
func (r *Registry) Get(t domain.ContentType) (driven.ContentHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[t]
	if !ok {
		return nil, fmt.Errorf("%w: no handler for %q", domain.ErrUnsupportedType, t)
	}
	return h, nil
}

// Types returns the registered content types in name order.
func (r *Registry) Types() []domain.ContentType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.ContentType, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
