package item

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Registry is the in-memory view of the registered items.
//
// The bus delivery path looks items up on every message, so lookups
// run against a map cache rather than the database. Last-value updates
// also stay in memory; Checkpoint persists them in bulk from the
// periodic collect cycle so the enqueue path never touches disk.
//
// Thread Safety: all methods are safe for concurrent use.
type Registry struct {
	repo Repository

	mu    sync.RWMutex
	items map[string]*Item
}

// NewRegistry creates a registry backed by the given repository.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:  repo,
		items: make(map[string]*Item),
	}
}

// Load populates the cache from the repository.
// Called once at startup after Repository.Sync.
func (r *Registry) Load(ctx context.Context) error {
	items, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading item registry: %w", err)
	}

	cache := make(map[string]*Item, len(items))
	for i := range items {
		it := items[i]
		cache[it.Name] = &it
	}

	r.mu.Lock()
	r.items = cache
	r.mu.Unlock()

	return nil
}

// Lookup returns the registered item with the given name.
func (r *Registry) Lookup(name string) (Item, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[name]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// All returns a snapshot of all registered items, unordered.
func (r *Registry) All() []Item {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		items = append(items, *it)
	}
	return items
}

// Count returns the number of registered items.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// RecordEnqueue updates the cached last value for an item.
// It performs no I/O; see Checkpoint.
func (r *Registry) RecordEnqueue(name string, value float64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[name]
	if !ok {
		return
	}
	v := value
	t := at
	it.LastValue = &v
	it.LastEnqueuedAt = &t
}

// Checkpoint persists the cached last values to the repository.
// Called from the periodic collect cycle, never from the bus path.
func (r *Registry) Checkpoint(ctx context.Context) error {
	for _, it := range r.All() {
		if it.LastValue == nil || it.LastEnqueuedAt == nil {
			continue
		}
		if err := r.repo.Checkpoint(ctx, it.Name, *it.LastValue, *it.LastEnqueuedAt); err != nil {
			return err
		}
	}
	return nil
}
