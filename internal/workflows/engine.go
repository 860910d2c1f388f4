package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/pkg/pagination"
)

// System is the workflow engine API. All operations are scoped to the
// owner resolved by the tenant middleware; an instance belonging to another
// owner behaves as if it does not exist.
type System interface {
	// Start creates and persists a pending instance of workflowType at
	// NodeStart with empty history.
	Start(ctx context.Context, owner, workflowType string, data map[string]any) (Instance, error)

	// Get loads an instance with its full transition history.
	Get(ctx context.Context, owner string, id uuid.UUID) (Instance, error)

	// List returns a page of instances, optionally filtered by status.
	List(ctx context.Context, owner string, status *Status, page pagination.PageRequest) (pagination.PageResult[Instance], error)

	// Transition advances a pending or running instance to node.
	Transition(ctx context.Context, owner string, id uuid.UUID, node string, data map[string]any) (Instance, error)

	// Pause suspends a running instance for human review, recording the
	// review hold reasons in the instance data.
	Pause(ctx context.Context, owner string, id uuid.UUID, reasons []string) (Instance, error)

	// Resume settles a paused instance with the review outcome: approved
	// returns it to running, a rejection fails it terminally.
	Resume(ctx context.Context, owner string, id uuid.UUID, approved bool, response map[string]any) (Instance, error)

	// Complete moves a running instance to its terminal completed state.
	Complete(ctx context.Context, owner string, id uuid.UUID, data map[string]any) (Instance, error)

	// Fail moves a non-terminal instance to its terminal failed state.
	Fail(ctx context.Context, owner string, id uuid.UUID, reason string) (Instance, error)
}

type engine struct {
	store       Store
	definitions map[string]Definition
	logger      *slog.Logger
	now         func() time.Time
}

// NewEngine creates the workflow engine over store with the given
// definitions registered.
func NewEngine(store Store, logger *slog.Logger, definitions ...Definition) System {
	defs := make(map[string]Definition, len(definitions))
	for _, def := range definitions {
		defs[def.Type] = def
	}

	return &engine{
		store:       store,
		definitions: defs,
		logger:      logger.With("system", "workflows"),
		now:         time.Now,
	}
}

func (e *engine) Start(ctx context.Context, owner, workflowType string, data map[string]any) (Instance, error) {
	def, ok := e.definitions[workflowType]
	if !ok {
		return Instance{}, fmt.Errorf("%w: %s", ErrUnknownType, workflowType)
	}

	inst := newInstance(owner, def, data, e.now().UTC())

	if err := e.store.Create(ctx, inst); err != nil {
		return Instance{}, err
	}

	e.logger.Info("workflow started",
		"id", inst.ID,
		"type", workflowType,
		"node", inst.CurrentNode)

	return inst, nil
}

func (e *engine) Get(ctx context.Context, owner string, id uuid.UUID) (Instance, error) {
	return e.store.Get(ctx, owner, id)
}

func (e *engine) List(ctx context.Context, owner string, status *Status, page pagination.PageRequest) (pagination.PageResult[Instance], error) {
	return e.store.List(ctx, owner, status, page)
}

func (e *engine) Transition(ctx context.Context, owner string, id uuid.UUID, node string, data map[string]any) (Instance, error) {
	return e.advance(ctx, owner, id, func(inst Instance) (Instance, error) {
		def, ok := e.definitions[inst.WorkflowType]
		if !ok {
			return Instance{}, fmt.Errorf("%w: %s", ErrUnknownType, inst.WorkflowType)
		}
		return applyTransition(inst, def, node, data, e.now().UTC())
	})
}

func (e *engine) Pause(ctx context.Context, owner string, id uuid.UUID, reasons []string) (Instance, error) {
	return e.advance(ctx, owner, id, func(inst Instance) (Instance, error) {
		return applyPause(inst, reasons, e.now().UTC())
	})
}

func (e *engine) Resume(ctx context.Context, owner string, id uuid.UUID, approved bool, response map[string]any) (Instance, error) {
	return e.advance(ctx, owner, id, func(inst Instance) (Instance, error) {
		return applyResume(inst, approved, response, e.now().UTC())
	})
}

func (e *engine) Complete(ctx context.Context, owner string, id uuid.UUID, data map[string]any) (Instance, error) {
	return e.advance(ctx, owner, id, func(inst Instance) (Instance, error) {
		return applyComplete(inst, data, e.now().UTC())
	})
}

func (e *engine) Fail(ctx context.Context, owner string, id uuid.UUID, reason string) (Instance, error) {
	return e.advance(ctx, owner, id, func(inst Instance) (Instance, error) {
		return applyFail(inst, reason, e.now().UTC())
	})
}

// advance loads the instance, applies a pure state function, and persists
// the result against the loaded version. A concurrent writer surfaces as
// ErrVersionConflict for the caller to retry.
func (e *engine) advance(ctx context.Context, owner string, id uuid.UUID, apply func(Instance) (Instance, error)) (Instance, error) {
	inst, err := e.store.Get(ctx, owner, id)
	if err != nil {
		return Instance{}, err
	}

	next, err := apply(inst)
	if err != nil {
		return Instance{}, err
	}

	if err := e.store.Save(ctx, next, inst.Version); err != nil {
		return Instance{}, err
	}

	e.logger.Debug("workflow advanced",
		"id", next.ID,
		"status", next.Status,
		"node", next.CurrentNode,
		"version", next.Version)

	return next, nil
}
