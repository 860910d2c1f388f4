package hitl_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/internal/hitl"
	"github.com/acrewise/acrewise/internal/workflows"
	"github.com/acrewise/acrewise/pkg/pagination"
)

const testOwner = "owner-1"

type fakeFinalizer struct {
	mu    sync.Mutex
	calls []hitl.Request
}

func (f *fakeFinalizer) FinalizeReview(_ context.Context, req hitl.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return nil
}

func (f *fakeFinalizer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testGateway(t *testing.T) (hitl.System, workflows.System, *fakeFinalizer) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	engine := workflows.NewEngine(workflows.NewMemoryStore(), logger, workflows.Definition{
		Type:  "review-flow",
		Nodes: []string{"validate", "done"},
	})

	finalizer := &fakeFinalizer{}
	gateway := hitl.NewGateway(hitl.NewMemoryStore(), engine, logger)
	gateway.SetFinalizer(finalizer)

	return gateway, engine, finalizer
}

// pausedWorkflow starts an instance, advances it, and pauses it the way the
// pipeline does before raising a review.
func pausedWorkflow(t *testing.T, engine workflows.System) workflows.Instance {
	t.Helper()
	ctx := context.Background()

	inst, err := engine.Start(ctx, testOwner, "review-flow", nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	inst, err = engine.Transition(ctx, testOwner, inst.ID, "validate", nil)
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	inst, err = engine.Pause(ctx, testOwner, inst.ID, []string{"awaiting review"})
	if err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	return inst
}

func TestResolveApprovesAndResumes(t *testing.T) {
	gateway, engine, finalizer := testGateway(t)
	ctx := context.Background()

	inst := pausedWorkflow(t, engine)

	req, err := gateway.Create(ctx, testOwner, hitl.CreateCommand{
		DocumentID: uuid.New(),
		WorkflowID: inst.ID,
		Urgency:    hitl.UrgencyHigh,
		Reasons:    []string{"Legal document requires attorney review"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	resolved, err := gateway.Resolve(ctx, testOwner, req.ID, hitl.Resolution{
		Decision: hitl.StatusApproved,
		Reviewer: "attorney@example.com",
		Notes:    "terms verified",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if resolved.Status != hitl.StatusApproved {
		t.Errorf("Status = %v, want approved", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Error("ResolvedAt should be set")
	}

	after, err := engine.Get(ctx, testOwner, inst.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if after.Status != workflows.StatusRunning {
		t.Errorf("workflow status = %v, want running after resolution", after.Status)
	}

	response, ok := after.Data["hitlResponse"].(map[string]any)
	if !ok {
		t.Fatalf("workflow data hitlResponse = %T, want map", after.Data["hitlResponse"])
	}
	if response["approved"] != true {
		t.Errorf("hitlResponse[approved] = %v, want true", response["approved"])
	}
	if response["reviewer"] != "attorney@example.com" {
		t.Errorf("hitlResponse[reviewer] = %v, want attorney@example.com", response["reviewer"])
	}

	if finalizer.count() != 1 {
		t.Errorf("finalizer calls = %d, want 1", finalizer.count())
	}
}

func TestResolveRejectionFailsWorkflow(t *testing.T) {
	gateway, engine, finalizer := testGateway(t)
	ctx := context.Background()

	inst := pausedWorkflow(t, engine)

	req, err := gateway.Create(ctx, testOwner, hitl.CreateCommand{
		DocumentID: uuid.New(),
		WorkflowID: inst.ID,
		Urgency:    hitl.UrgencyHigh,
		Reasons:    []string{"Legal document requires attorney review"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	resolved, err := gateway.Resolve(ctx, testOwner, req.ID, hitl.Resolution{
		Decision: hitl.StatusRejected,
		Reviewer: "attorney@example.com",
		Notes:    "unsigned draft",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.Status != hitl.StatusRejected {
		t.Errorf("Status = %v, want rejected", resolved.Status)
	}

	after, err := engine.Get(ctx, testOwner, inst.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if after.Status != workflows.StatusFailed {
		t.Errorf("workflow status = %v, want failed after rejection", after.Status)
	}

	response, ok := after.Data["hitlResponse"].(map[string]any)
	if !ok {
		t.Fatalf("workflow data hitlResponse = %T, want map", after.Data["hitlResponse"])
	}
	if response["approved"] != false {
		t.Errorf("hitlResponse[approved] = %v, want false", response["approved"])
	}
	if response["notes"] != "unsigned draft" {
		t.Errorf("hitlResponse[notes] = %v, want unsigned draft", response["notes"])
	}

	if finalizer.count() != 1 {
		t.Errorf("finalizer calls = %d, want 1", finalizer.count())
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	gateway, engine, finalizer := testGateway(t)
	ctx := context.Background()

	inst := pausedWorkflow(t, engine)

	req, err := gateway.Create(ctx, testOwner, hitl.CreateCommand{
		DocumentID: uuid.New(),
		WorkflowID: inst.ID,
		Urgency:    hitl.UrgencyMedium,
		Reasons:    []string{"Extraction confidence (50%) below 90% threshold"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	resolution := hitl.Resolution{Decision: hitl.StatusApproved, Reviewer: "reviewer@example.com"}

	if _, err := gateway.Resolve(ctx, testOwner, req.ID, resolution); err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}

	if _, err := gateway.Resolve(ctx, testOwner, req.ID, resolution); !errors.Is(err, hitl.ErrAlreadyResolved) {
		t.Errorf("second Resolve() error = %v, want ErrAlreadyResolved", err)
	}

	if finalizer.count() != 1 {
		t.Errorf("finalizer calls = %d, want exactly 1", finalizer.count())
	}

	after, err := engine.Get(ctx, testOwner, inst.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(after.History) != 3 {
		t.Errorf("workflow history length = %d, want 3 (transition, pause, resume)", len(after.History))
	}
}

func TestResolveDeferKeepsWorkflowPaused(t *testing.T) {
	gateway, engine, finalizer := testGateway(t)
	ctx := context.Background()

	inst := pausedWorkflow(t, engine)

	req, err := gateway.Create(ctx, testOwner, hitl.CreateCommand{
		DocumentID: uuid.New(),
		WorkflowID: inst.ID,
		Urgency:    hitl.UrgencyLow,
		Reasons:    []string{"needs a second look"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	deferred, err := gateway.Resolve(ctx, testOwner, req.ID, hitl.Resolution{
		Decision: hitl.StatusDeferred,
		Reviewer: "reviewer@example.com",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if deferred.Status != hitl.StatusDeferred {
		t.Errorf("Status = %v, want deferred", deferred.Status)
	}

	after, _ := engine.Get(ctx, testOwner, inst.ID)
	if after.Status != workflows.StatusPaused {
		t.Errorf("workflow status = %v, want still paused", after.Status)
	}
	if finalizer.count() != 0 {
		t.Errorf("finalizer calls = %d, want 0 for defer", finalizer.count())
	}

	// A deferred request can still be approved later.
	approved, err := gateway.Resolve(ctx, testOwner, req.ID, hitl.Resolution{
		Decision: hitl.StatusApproved,
		Reviewer: "senior@example.com",
	})
	if err != nil {
		t.Fatalf("Resolve() after defer error = %v", err)
	}
	if approved.Status != hitl.StatusApproved {
		t.Errorf("Status = %v, want approved", approved.Status)
	}
}

func TestResolveValidation(t *testing.T) {
	gateway, engine, _ := testGateway(t)
	ctx := context.Background()

	inst := pausedWorkflow(t, engine)
	req, _ := gateway.Create(ctx, testOwner, hitl.CreateCommand{
		DocumentID: uuid.New(),
		WorkflowID: inst.ID,
		Urgency:    hitl.UrgencyLow,
		Reasons:    []string{"check"},
	})

	if _, err := gateway.Resolve(ctx, testOwner, req.ID, hitl.Resolution{
		Decision: "escalated",
		Reviewer: "reviewer@example.com",
	}); !errors.Is(err, hitl.ErrInvalidDecision) {
		t.Errorf("Resolve() error = %v, want ErrInvalidDecision", err)
	}

	if _, err := gateway.Resolve(ctx, testOwner, req.ID, hitl.Resolution{
		Decision: hitl.StatusApproved,
	}); !errors.Is(err, hitl.ErrMissingReviewer) {
		t.Errorf("Resolve() error = %v, want ErrMissingReviewer", err)
	}
}

func TestCreateRejectsDuplicatePending(t *testing.T) {
	gateway, engine, _ := testGateway(t)
	ctx := context.Background()

	inst := pausedWorkflow(t, engine)
	cmd := hitl.CreateCommand{
		DocumentID: uuid.New(),
		WorkflowID: inst.ID,
		Urgency:    hitl.UrgencyHigh,
		Reasons:    []string{"hold"},
	}

	if _, err := gateway.Create(ctx, testOwner, cmd); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := gateway.Create(ctx, testOwner, cmd); !errors.Is(err, hitl.ErrDuplicatePending) {
		t.Errorf("second Create() error = %v, want ErrDuplicatePending", err)
	}
}

func TestListOrdersByUrgency(t *testing.T) {
	gateway, engine, _ := testGateway(t)
	ctx := context.Background()

	urgencies := []hitl.Urgency{hitl.UrgencyLow, hitl.UrgencyCritical, hitl.UrgencyMedium}
	for _, u := range urgencies {
		inst := pausedWorkflow(t, engine)
		if _, err := gateway.Create(ctx, testOwner, hitl.CreateCommand{
			DocumentID: uuid.New(),
			WorkflowID: inst.ID,
			Urgency:    u,
			Reasons:    []string{"hold"},
		}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	result, err := gateway.List(ctx, testOwner, hitl.Filters{}, pagination.PageRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if result.Total != 3 {
		t.Fatalf("Total = %d, want 3", result.Total)
	}
	if result.Items[0].Urgency != hitl.UrgencyCritical {
		t.Errorf("Items[0].Urgency = %v, want critical", result.Items[0].Urgency)
	}
	if result.Items[2].Urgency != hitl.UrgencyLow {
		t.Errorf("Items[2].Urgency = %v, want low", result.Items[2].Urgency)
	}
}

func TestUrgencyFor(t *testing.T) {
	tests := []struct {
		name                      string
		legal, financial, lowConf bool
		want                      hitl.Urgency
	}{
		{"legal and financial", true, true, false, hitl.UrgencyCritical},
		{"legal only", true, false, false, hitl.UrgencyHigh},
		{"financial only", false, true, true, hitl.UrgencyHigh},
		{"confidence only", false, false, true, hitl.UrgencyMedium},
		{"no holds", false, false, false, hitl.UrgencyLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hitl.UrgencyFor(tt.legal, tt.financial, tt.lowConf); got != tt.want {
				t.Errorf("UrgencyFor() = %v, want %v", got, tt.want)
			}
		})
	}
}
