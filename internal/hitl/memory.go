package hitl

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/pkg/pagination"
)

// MemoryStore is an in-memory Store for tests and single-process use.
// It enforces the same one-open-request-per-workflow and atomic resolution
// semantics as the database-backed store.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]Request
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[uuid.UUID]Request),
	}
}

func (s *MemoryStore) Create(_ context.Context, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.WorkflowID == req.WorkflowID && existing.Status.Open() {
			return ErrDuplicatePending
		}
	}

	s.requests[req.ID] = req
	return nil
}

func (s *MemoryStore) Get(_ context.Context, owner string, id uuid.UUID) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.OwnerID != owner {
		return Request{}, ErrNotFound
	}

	return req, nil
}

func (s *MemoryStore) List(_ context.Context, owner string, filters Filters, page pagination.PageRequest) (pagination.PageResult[Request], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]Request, 0)
	for _, req := range s.requests {
		if req.OwnerID != owner {
			continue
		}
		if filters.Status != nil && req.Status != *filters.Status {
			continue
		}
		if filters.Urgency != nil && req.Urgency != *filters.Urgency {
			continue
		}
		if filters.DocumentID != nil && req.DocumentID != *filters.DocumentID {
			continue
		}
		matched = append(matched, req)
	}

	slices.SortFunc(matched, func(a, b Request) int {
		if ra, rb := urgencyRank(a.Urgency), urgencyRank(b.Urgency); ra != rb {
			return rb - ra
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	total := len(matched)
	start := min(page.Offset(), total)
	end := min(start+page.PageSize, total)

	return pagination.NewPageResult(matched[start:end], total, page.Page, page.PageSize), nil
}

func (s *MemoryStore) Resolve(_ context.Context, owner string, id uuid.UUID, resolution Resolution, resolvedAt time.Time) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.OwnerID != owner {
		return Request{}, ErrNotFound
	}

	if !req.Status.Open() {
		return Request{}, ErrAlreadyResolved
	}

	req.Status = resolution.Decision
	req.ResolvedBy = resolution.Reviewer
	req.ResolutionNotes = resolution.Notes
	req.CorrectedData = resolution.CorrectedData
	req.ResolvedAt = &resolvedAt

	s.requests[id] = req
	return req, nil
}

func urgencyRank(u Urgency) int {
	switch u {
	case UrgencyCritical:
		return 3
	case UrgencyHigh:
		return 2
	case UrgencyMedium:
		return 1
	default:
		return 0
	}
}
