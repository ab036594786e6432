package state

import (
	"context"
	"sort"
	"sync"

	"vigil/internal/models"
)

// Store keeps the most recent decision trace per component. The
// interface takes a context so a networked implementation can slot in
// without touching callers.
type Store interface {
	SetLatest(ctx context.Context, trace *models.DecisionTrace) error
	Latest(ctx context.Context, component string) (*models.DecisionTrace, error)
	Components(ctx context.Context) ([]string, error)
	Close() error
}

// MemoryStore is the in-process implementation
type MemoryStore struct {
	mu     sync.RWMutex
	latest map[string]*models.DecisionTrace
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{latest: make(map[string]*models.DecisionTrace)}
}

// SetLatest records trace as the newest decision for its component.
// An older trace never replaces a newer one: workers evaluate
// concurrently and may finish out of order.
func (m *MemoryStore) SetLatest(ctx context.Context, trace *models.DecisionTrace) error {
	if trace == nil || trace.ComponentID == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.latest[trace.ComponentID]; ok && current.Timestamp.After(trace.Timestamp) {
		return nil
	}
	m.latest[trace.ComponentID] = trace
	return nil
}

// Latest returns the most recent trace for component, or nil when none
// has been recorded
func (m *MemoryStore) Latest(ctx context.Context, component string) (*models.DecisionTrace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest[component], nil
}

// Components returns every component with a recorded trace, sorted
func (m *MemoryStore) Components(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	components := make([]string, 0, len(m.latest))
	for c := range m.latest {
		components = append(components, c)
	}
	sort.Strings(components)
	return components, nil
}

// Close releases the store
func (m *MemoryStore) Close() error {
	return nil
}
