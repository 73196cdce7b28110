package item

import (
	"context"
	"testing"
	"time"
)

// memRepo is an in-memory Repository for registry tests.
type memRepo struct {
	items       map[string]*Item
	checkpoints int
}

func newMemRepo(items ...Item) *memRepo {
	m := &memRepo{items: make(map[string]*Item)}
	for i := range items {
		it := items[i]
		m.items[it.Name] = &it
	}
	return m
}

func (m *memRepo) List(context.Context) ([]Item, error) {
	out := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, *it)
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, name string) (*Item, error) {
	it, ok := m.items[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *memRepo) Sync(_ context.Context, items []Item) error {
	m.items = make(map[string]*Item)
	for i := range items {
		it := items[i]
		m.items[it.Name] = &it
	}
	return nil
}

func (m *memRepo) Checkpoint(_ context.Context, name string, value float64, at time.Time) error {
	it, ok := m.items[name]
	if !ok {
		return ErrNotFound
	}
	it.LastValue = &value
	it.LastEnqueuedAt = &at
	m.checkpoints++
	return nil
}

func TestRegistry_LoadAndLookup(t *testing.T) {
	repo := newMemRepo(
		Item{Name: "a", Mode: ModeChange},
		Item{Name: "b", Mode: ModeInit},
	)
	reg := NewRegistry(repo)

	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if reg.Count() != 2 {
		t.Errorf("Count() = %d, want 2", reg.Count())
	}

	it, ok := reg.Lookup("b")
	if !ok {
		t.Fatal("Lookup(b) = false, want true")
	}
	if it.Mode != ModeInit {
		t.Errorf("Mode = %q, want %q", it.Mode, ModeInit)
	}

	if _, ok := reg.Lookup("ghost"); ok {
		t.Error("Lookup(ghost) = true, want false")
	}
}

func TestRegistry_RecordEnqueueAndCheckpoint(t *testing.T) {
	repo := newMemRepo(Item{Name: "a", Mode: ModeChange})
	reg := NewRegistry(repo)
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	at := time.Now()
	reg.RecordEnqueue("a", 42, at)
	reg.RecordEnqueue("ghost", 1, at) // unknown items are ignored

	it, _ := reg.Lookup("a")
	if it.LastValue == nil || *it.LastValue != 42 {
		t.Fatalf("LastValue = %v, want 42", it.LastValue)
	}

	if err := reg.Checkpoint(context.Background()); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	if repo.checkpoints != 1 {
		t.Errorf("repo checkpoints = %d, want 1", repo.checkpoints)
	}
	stored, _ := repo.Get(context.Background(), "a")
	if stored.LastValue == nil || *stored.LastValue != 42 {
		t.Errorf("stored LastValue = %v, want 42", stored.LastValue)
	}
}

func TestRegistry_CheckpointSkipsUntouchedItems(t *testing.T) {
	repo := newMemRepo(Item{Name: "a", Mode: ModeChange})
	reg := NewRegistry(repo)
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := reg.Checkpoint(context.Background()); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	if repo.checkpoints != 0 {
		t.Errorf("repo checkpoints = %d, want 0 for untouched items", repo.checkpoints)
	}
}

func TestMode_Valid(t *testing.T) {
	if !ModeChange.Valid() || !ModeInit.Valid() {
		t.Error("recognised modes reported invalid")
	}
	if Mode("sometimes").Valid() {
		t.Error("unknown mode reported valid")
	}
}
