package watch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/alerts"
)

// Watch is a running camera watch as seen by the plugin.
type Watch interface {
	// Start begins polling. Returns an error if the poll job cannot be scheduled.
	Start() error

	// Stop cancels polling and drops the alert feed.
	Stop() error

	GetID() string
	GetName() string
	GetChannelID() string

	// GetStatus returns the persisted poll health and feed size.
	GetStatus() Status

	Snapshot() alerts.Snapshot
	Refresh(ctx context.Context) error
	Acknowledge(ctx context.Context, alertID string) error

	// ClearState removes everything the watch persisted.
	ClearState() error
}

// Registry manages all active watches.
// It provides thread-safe operations for registering, retrieving, and managing watches.
type Registry struct {
	mu      sync.RWMutex
	watches map[string]Watch
}

// NewRegistry creates a new watch registry.
func NewRegistry() *Registry {
	return &Registry{
		watches: make(map[string]Watch),
	}
}

// Register adds a watch to the registry.
// Returns an error if a watch with the same ID already exists.
func (r *Registry) Register(w Watch) error {
	if w == nil {
		return fmt.Errorf("cannot register nil watch")
	}

	id := w.GetID()
	if id == "" {
		return fmt.Errorf("watch ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.watches[id]; exists {
		return fmt.Errorf("watch with ID %s already registered", id)
	}

	r.watches[id] = w
	return nil
}

// Unregister removes a watch from the registry and stops it.
// The watch is always removed, even if Stop fails.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	w, exists := r.watches[id]
	if !exists {
		r.mu.Unlock()
		return fmt.Errorf("watch with ID %s not found", id)
	}

	delete(r.watches, id)
	r.mu.Unlock()

	// Stop outside the lock; it waits for an in-flight poll
	if err := w.Stop(); err != nil {
		return fmt.Errorf("failed to stop watch %s: %w", id, err)
	}

	return nil
}

// Get retrieves a watch by its ID.
// Returns nil if the watch doesn't exist.
func (r *Registry) Get(id string) Watch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.watches[id]
}

// List returns all registered watches ordered by name.
func (r *Registry) List() []Watch {
	r.mu.RLock()
	watches := make([]Watch, 0, len(r.watches))
	for _, w := range r.watches {
		watches = append(watches, w)
	}
	r.mu.RUnlock()

	sort.Slice(watches, func(i, j int) bool {
		return watches[i].GetName() < watches[j].GetName()
	})

	return watches
}

// UnregisterAll unregisters and stops all registered watches.
// Returns the first error encountered, but continues unregistering remaining watches.
func (r *Registry) UnregisterAll() error {
	r.mu.Lock()
	watches := make([]Watch, 0, len(r.watches))
	for id, w := range r.watches {
		watches = append(watches, w)
		delete(r.watches, id)
	}
	r.mu.Unlock()

	var firstError error
	for _, w := range watches {
		if err := w.Stop(); err != nil && firstError == nil {
			firstError = fmt.Errorf("failed to stop watch %s: %w", w.GetID(), err)
		}
	}

	return firstError
}

// Count returns the number of registered watches.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.watches)
}
