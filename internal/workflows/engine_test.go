package workflows_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/internal/workflows"
	"github.com/acrewise/acrewise/pkg/pagination"
)

const testOwner = "owner-1"

func testDefinition() workflows.Definition {
	return workflows.Definition{
		Type:  "intake",
		Nodes: []string{"received", "triage", "resolved"},
	}
}

func testEngine(t *testing.T) (workflows.System, *workflows.MemoryStore) {
	t.Helper()
	store := workflows.NewMemoryStore()
	engine := workflows.NewEngine(store, slog.New(slog.DiscardHandler), testDefinition())
	return engine, store
}

// started creates an instance and takes its first transition so it is
// running inside the definition's node set.
func started(t *testing.T, engine workflows.System) workflows.Instance {
	t.Helper()
	ctx := context.Background()

	inst, err := engine.Start(ctx, testOwner, "intake", nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	inst, err = engine.Transition(ctx, testOwner, inst.ID, "received", nil)
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	return inst
}

func TestStartCreatesPendingInstance(t *testing.T) {
	engine, _ := testEngine(t)
	ctx := context.Background()

	inst, err := engine.Start(ctx, testOwner, "intake", map[string]any{"source": "upload"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if inst.Status != workflows.StatusPending {
		t.Errorf("Status = %v, want pending", inst.Status)
	}
	if inst.CurrentNode != workflows.NodeStart {
		t.Errorf("CurrentNode = %v, want start", inst.CurrentNode)
	}
	if inst.Version != 0 {
		t.Errorf("Version = %d, want 0", inst.Version)
	}
	if len(inst.History) != 0 {
		t.Errorf("History length = %d, want 0", len(inst.History))
	}
	if inst.Data["source"] != "upload" {
		t.Errorf("Data[source] = %v, want upload", inst.Data["source"])
	}
}

func TestStartUnknownType(t *testing.T) {
	engine, _ := testEngine(t)

	_, err := engine.Start(context.Background(), testOwner, "payroll", nil)
	if !errors.Is(err, workflows.ErrUnknownType) {
		t.Errorf("Start() error = %v, want ErrUnknownType", err)
	}
}

func TestFirstTransitionStartsRunning(t *testing.T) {
	engine, _ := testEngine(t)
	ctx := context.Background()

	inst, err := engine.Start(ctx, testOwner, "intake", nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	inst, err = engine.Transition(ctx, testOwner, inst.ID, "received", nil)
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	if inst.Status != workflows.StatusRunning {
		t.Errorf("Status = %v, want running", inst.Status)
	}
	if inst.CurrentNode != "received" {
		t.Errorf("CurrentNode = %v, want received", inst.CurrentNode)
	}
	if inst.Version != 1 {
		t.Errorf("Version = %d, want 1", inst.Version)
	}
	if len(inst.History) != 1 {
		t.Errorf("History length = %d, want 1", len(inst.History))
	}
}

func TestTransitionAppendsHistory(t *testing.T) {
	engine, _ := testEngine(t)
	ctx := context.Background()

	inst := started(t, engine)

	inst, err := engine.Transition(ctx, testOwner, inst.ID, "triage", map[string]any{"assignee": "kim"})
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	if inst.CurrentNode != "triage" {
		t.Errorf("CurrentNode = %v, want triage", inst.CurrentNode)
	}
	if inst.Version != 2 {
		t.Errorf("Version = %d, want 2", inst.Version)
	}
	if len(inst.History) != inst.Version {
		t.Errorf("History length = %d, want %d", len(inst.History), inst.Version)
	}
	if inst.Data["assignee"] != "kim" {
		t.Errorf("Data[assignee] = %v, want kim", inst.Data["assignee"])
	}
}

func TestTransitionUnknownNode(t *testing.T) {
	engine, _ := testEngine(t)
	ctx := context.Background()

	inst, _ := engine.Start(ctx, testOwner, "intake", nil)

	_, err := engine.Transition(ctx, testOwner, inst.ID, "archived", nil)
	if !errors.Is(err, workflows.ErrUnknownNode) {
		t.Errorf("Transition() error = %v, want ErrUnknownNode", err)
	}
}

func TestPauseRecordsReviewHold(t *testing.T) {
	engine, _ := testEngine(t)
	ctx := context.Background()

	inst := started(t, engine)

	reasons := []string{"Legal document requires attorney review"}
	inst, err := engine.Pause(ctx, testOwner, inst.ID, reasons)
	if err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if inst.Status != workflows.StatusPaused {
		t.Errorf("Status = %v, want paused", inst.Status)
	}
	if inst.Data["requiresHITL"] != true {
		t.Errorf("Data[requiresHITL] = %v, want true", inst.Data["requiresHITL"])
	}
	held, ok := inst.Data["hitlReasons"].([]string)
	if !ok || len(held) != 1 || held[0] != reasons[0] {
		t.Errorf("Data[hitlReasons] = %v, want %v", inst.Data["hitlReasons"], reasons)
	}

	if _, err := engine.Transition(ctx, testOwner, inst.ID, "triage", nil); !errors.Is(err, workflows.ErrInvalidTransition) {
		t.Errorf("Transition() on paused instance error = %v, want ErrInvalidTransition", err)
	}
}

func TestResumeApprovedReturnsToRunning(t *testing.T) {
	engine, _ := testEngine(t)
	ctx := context.Background()

	inst := started(t, engine)
	if _, err := engine.Pause(ctx, testOwner, inst.ID, []string{"awaiting review"}); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	inst, err := engine.Resume(ctx, testOwner, inst.ID, true, map[string]any{"reviewer": "kim"})
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if inst.Status != workflows.StatusRunning {
		t.Errorf("Status = %v, want running", inst.Status)
	}
	if inst.Version != 3 {
		t.Errorf("Version = %d, want 3", inst.Version)
	}
	if len(inst.History) != 3 {
		t.Errorf("History length = %d, want 3", len(inst.History))
	}

	response, ok := inst.Data["hitlResponse"].(map[string]any)
	if !ok {
		t.Fatalf("Data[hitlResponse] = %T, want map", inst.Data["hitlResponse"])
	}
	if response["reviewer"] != "kim" {
		t.Errorf("hitlResponse[reviewer] = %v, want kim", response["reviewer"])
	}
}

func TestResumeRejectedFailsTerminally(t *testing.T) {
	engine, _ := testEngine(t)
	ctx := context.Background()

	inst := started(t, engine)
	if _, err := engine.Pause(ctx, testOwner, inst.ID, []string{"awaiting review"}); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	inst, err := engine.Resume(ctx, testOwner, inst.ID, false, map[string]any{"notes": "unsigned draft"})
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if inst.Status != workflows.StatusFailed {
		t.Errorf("Status = %v, want failed", inst.Status)
	}
	if _, ok := inst.Data["hitlResponse"]; !ok {
		t.Error("Data[hitlResponse] should record the rejection")
	}

	if _, err := engine.Complete(ctx, testOwner, inst.ID, nil); !errors.Is(err, workflows.ErrInvalidTransition) {
		t.Errorf("Complete() after rejection error = %v, want ErrInvalidTransition", err)
	}
	if _, err := engine.Transition(ctx, testOwner, inst.ID, "triage", nil); !errors.Is(err, workflows.ErrInvalidTransition) {
		t.Errorf("Transition() after rejection error = %v, want ErrInvalidTransition", err)
	}
}

func TestResumeRequiresPaused(t *testing.T) {
	engine, _ := testEngine(t)
	ctx := context.Background()

	inst := started(t, engine)

	if _, err := engine.Resume(ctx, testOwner, inst.ID, true, nil); !errors.Is(err, workflows.ErrInvalidTransition) {
		t.Errorf("Resume() on running instance error = %v, want ErrInvalidTransition", err)
	}
}

func TestCompleteIsTerminal(t *testing.T) {
	engine, _ := testEngine(t)
	ctx := context.Background()

	inst := started(t, engine)

	inst, err := engine.Complete(ctx, testOwner, inst.ID, map[string]any{"outcome": "done"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if inst.Status != workflows.StatusCompleted {
		t.Errorf("Status = %v, want completed", inst.Status)
	}
	if inst.CurrentNode != workflows.NodeComplete {
		t.Errorf("CurrentNode = %v, want complete", inst.CurrentNode)
	}
	if last := inst.History[len(inst.History)-1]; last.Node != workflows.NodeComplete {
		t.Errorf("final transition node = %v, want complete", last.Node)
	}

	if _, err := engine.Transition(ctx, testOwner, inst.ID, "triage", nil); !errors.Is(err, workflows.ErrInvalidTransition) {
		t.Errorf("Transition() after complete error = %v, want ErrInvalidTransition", err)
	}
	if _, err := engine.Fail(ctx, testOwner, inst.ID, "late failure"); !errors.Is(err, workflows.ErrInvalidTransition) {
		t.Errorf("Fail() after complete error = %v, want ErrInvalidTransition", err)
	}
}

func TestFailFromPaused(t *testing.T) {
	engine, _ := testEngine(t)
	ctx := context.Background()

	inst := started(t, engine)
	if _, err := engine.Pause(ctx, testOwner, inst.ID, []string{"stuck"}); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	inst, err := engine.Fail(ctx, testOwner, inst.ID, "abandoned")
	if err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	if inst.Status != workflows.StatusFailed {
		t.Errorf("Status = %v, want failed", inst.Status)
	}
	if len(inst.History) != 3 {
		t.Errorf("History length = %d, want 3", len(inst.History))
	}
}

func TestVersionConflict(t *testing.T) {
	engine, store := testEngine(t)
	ctx := context.Background()

	inst := started(t, engine)

	// Simulate a concurrent writer advancing the stored instance.
	if _, err := engine.Transition(ctx, testOwner, inst.ID, "triage", nil); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	stale := inst
	stale.Version = 2
	if err := store.Save(ctx, stale, 1); !errors.Is(err, workflows.ErrVersionConflict) {
		t.Errorf("Save() with stale version error = %v, want ErrVersionConflict", err)
	}
}

func TestOwnerIsolation(t *testing.T) {
	engine, _ := testEngine(t)
	ctx := context.Background()

	inst, _ := engine.Start(ctx, testOwner, "intake", nil)

	if _, err := engine.Get(ctx, "owner-2", inst.ID); !errors.Is(err, workflows.ErrNotFound) {
		t.Errorf("Get() across owners error = %v, want ErrNotFound", err)
	}

	result, err := engine.List(ctx, "owner-2", nil, pagination.PageRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 0 {
		t.Errorf("List() total = %d, want 0", result.Total)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	engine, _ := testEngine(t)
	ctx := context.Background()

	first := started(t, engine)
	if _, err := engine.Complete(ctx, testOwner, first.ID, nil); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if _, err := engine.Start(ctx, testOwner, "intake", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	completed := workflows.StatusCompleted
	result, err := engine.List(ctx, testOwner, &completed, pagination.PageRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 {
		t.Errorf("List() total = %d, want 1", result.Total)
	}
	if len(result.Items) != 1 || result.Items[0].Status != workflows.StatusCompleted {
		t.Errorf("List() items = %v, want one completed instance", result.Items)
	}
}

func TestGetUnknownInstance(t *testing.T) {
	engine, _ := testEngine(t)

	if _, err := engine.Get(context.Background(), testOwner, uuid.New()); !errors.Is(err, workflows.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}
