package hitl

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/internal/workflows"
	"github.com/acrewise/acrewise/pkg/pagination"
)

// Finalizer applies a resolved review back to the document and closes out
// its workflow. The pipeline implements this; the indirection keeps review
// handling independent of pipeline internals.
type Finalizer interface {
	FinalizeReview(ctx context.Context, req Request) error
}

// System is the review gateway API. It is the only component that resumes
// workflows paused for review.
type System interface {
	// Create raises a review request for a paused workflow. At most one
	// open request may exist per workflow.
	Create(ctx context.Context, owner string, cmd CreateCommand) (Request, error)

	// Get loads a request.
	Get(ctx context.Context, owner string, id uuid.UUID) (Request, error)

	// List returns the review queue, most urgent and oldest first.
	List(ctx context.Context, owner string, filters Filters, page pagination.PageRequest) (pagination.PageResult[Request], error)

	// Resolve applies a reviewer's verdict. The status flip is atomic, so a
	// request resolves exactly once; later attempts get ErrAlreadyResolved.
	// Approve resumes the paused workflow, reject fails it terminally, and
	// both finalize the document; defer leaves the workflow paused.
	Resolve(ctx context.Context, owner string, id uuid.UUID, resolution Resolution) (Request, error)

	// SetFinalizer wires the pipeline's finalization hook. Must be called
	// before the first Resolve.
	SetFinalizer(f Finalizer)
}

type gateway struct {
	store     Store
	engine    workflows.System
	finalizer Finalizer
	logger    *slog.Logger
	now       func() time.Time
}

// NewGateway creates the review gateway over store and the workflow engine.
func NewGateway(store Store, engine workflows.System, logger *slog.Logger) System {
	return &gateway{
		store:  store,
		engine: engine,
		logger: logger.With("system", "hitl"),
		now:    time.Now,
	}
}

func (g *gateway) SetFinalizer(f Finalizer) {
	g.finalizer = f
}

func (g *gateway) Create(ctx context.Context, owner string, cmd CreateCommand) (Request, error) {
	req := Request{
		ID:         uuid.New(),
		OwnerID:    owner,
		DocumentID: cmd.DocumentID,
		WorkflowID: cmd.WorkflowID,
		Urgency:    cmd.Urgency,
		Status:     StatusPending,
		Reasons:    cmd.Reasons,
		Snapshot:   cmd.Snapshot,
		CreatedAt:  g.now().UTC(),
	}

	if err := g.store.Create(ctx, req); err != nil {
		return Request{}, err
	}

	g.logger.Info("review requested",
		"id", req.ID,
		"document", req.DocumentID,
		"urgency", req.Urgency,
		"reasons", len(req.Reasons))

	return req, nil
}

func (g *gateway) Get(ctx context.Context, owner string, id uuid.UUID) (Request, error) {
	return g.store.Get(ctx, owner, id)
}

func (g *gateway) List(ctx context.Context, owner string, filters Filters, page pagination.PageRequest) (pagination.PageResult[Request], error) {
	return g.store.List(ctx, owner, filters, page)
}

func (g *gateway) Resolve(ctx context.Context, owner string, id uuid.UUID, resolution Resolution) (Request, error) {
	if err := resolution.Validate(); err != nil {
		return Request{}, err
	}

	req, err := g.store.Resolve(ctx, owner, id, resolution, g.now().UTC())
	if err != nil {
		return Request{}, err
	}

	g.logger.Info("review resolved",
		"id", req.ID,
		"document", req.DocumentID,
		"decision", resolution.Decision,
		"reviewer", resolution.Reviewer)

	if resolution.Decision == StatusDeferred {
		return req, nil
	}

	approved := resolution.Decision == StatusApproved

	response := map[string]any{
		"approved": approved,
		"reviewer": resolution.Reviewer,
		"notes":    resolution.Notes,
	}
	if len(resolution.CorrectedData) > 0 {
		response["correctedData"] = resolution.CorrectedData
	}

	_, err = g.engine.Resume(ctx, owner, req.WorkflowID, approved, response)
	if err != nil {
		g.logger.Error("workflow resume after review failed",
			"id", req.ID,
			"workflow", req.WorkflowID,
			"error", err)
		return Request{}, err
	}

	if g.finalizer != nil {
		if err := g.finalizer.FinalizeReview(ctx, req); err != nil {
			g.logger.Error("review finalization failed",
				"id", req.ID,
				"document", req.DocumentID,
				"error", err)
			return Request{}, err
		}
	}

	return req, nil
}
