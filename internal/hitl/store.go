package hitl

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/pkg/pagination"
)

// Filters narrows review queue listings.
type Filters struct {
	Status     *ReviewStatus
	Urgency    *Urgency
	DocumentID *uuid.UUID
}

// Store persists review requests.
type Store interface {
	// Create persists a new request. Returns ErrDuplicatePending when the
	// workflow already has an open request.
	Create(ctx context.Context, req Request) error

	// Get loads a request scoped to owner. Returns ErrNotFound when absent.
	Get(ctx context.Context, owner string, id uuid.UUID) (Request, error)

	// List returns a page of requests for owner, most urgent and oldest
	// first, narrowed by filters.
	List(ctx context.Context, owner string, filters Filters, page pagination.PageRequest) (pagination.PageResult[Request], error)

	// Resolve atomically applies resolution to an open request. Exactly one
	// concurrent caller wins; later callers get ErrAlreadyResolved once the
	// request reaches a final status.
	Resolve(ctx context.Context, owner string, id uuid.UUID, resolution Resolution, resolvedAt time.Time) (Request, error)
}
