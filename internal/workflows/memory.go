package workflows

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/pkg/pagination"
)

// MemoryStore is an in-memory Store for tests and single-process use.
// It enforces the same version semantics as the database-backed store.
type MemoryStore struct {
	mu        sync.RWMutex
	instances map[uuid.UUID]Instance
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		instances: make(map[uuid.UUID]Instance),
	}
}

func (s *MemoryStore) Create(_ context.Context, inst Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[inst.ID]; ok {
		return ErrDuplicateID
	}

	s.instances[inst.ID] = inst.clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, owner string, id uuid.UUID) (Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok || inst.OwnerID != owner {
		return Instance{}, ErrNotFound
	}

	return inst.clone(), nil
}

func (s *MemoryStore) List(_ context.Context, owner string, status *Status, page pagination.PageRequest) (pagination.PageResult[Instance], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Instance, 0)
	for _, inst := range s.instances {
		if inst.OwnerID != owner {
			continue
		}
		if status != nil && inst.Status != *status {
			continue
		}
		matched = append(matched, inst.clone())
	}

	slices.SortFunc(matched, func(a, b Instance) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(matched)
	start := min(page.Offset(), total)
	end := min(start+page.PageSize, total)

	return pagination.NewPageResult(matched[start:end], total, page.Page, page.PageSize), nil
}

func (s *MemoryStore) Save(_ context.Context, inst Instance, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.instances[inst.ID]
	if !ok || stored.OwnerID != inst.OwnerID {
		return ErrNotFound
	}

	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}

	s.instances[inst.ID] = inst.clone()
	return nil
}
