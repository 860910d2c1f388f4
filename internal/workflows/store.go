package workflows

import (
	"context"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/pkg/pagination"
)

// Store persists workflow instances and their transition history.
type Store interface {
	// Create persists a new instance with its initial history.
	// Returns ErrDuplicateID if the instance ID is already taken.
	Create(ctx context.Context, inst Instance) error

	// Get loads an instance with full history, scoped to owner.
	// Returns ErrNotFound when absent.
	Get(ctx context.Context, owner string, id uuid.UUID) (Instance, error)

	// List returns a page of instances for owner, newest first,
	// optionally filtered by status. History is included.
	List(ctx context.Context, owner string, status *Status, page pagination.PageRequest) (pagination.PageResult[Instance], error)

	// Save persists an advanced instance snapshot together with the history
	// entries appended since expectedVersion. Returns ErrVersionConflict if
	// the stored version no longer equals expectedVersion.
	Save(ctx context.Context, inst Instance, expectedVersion int) error
}
