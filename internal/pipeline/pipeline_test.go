package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/internal/classify"
	"github.com/acrewise/acrewise/internal/documents"
	"github.com/acrewise/acrewise/internal/extract"
	"github.com/acrewise/acrewise/internal/hitl"
	"github.com/acrewise/acrewise/internal/pipeline"
	"github.com/acrewise/acrewise/internal/policy"
	"github.com/acrewise/acrewise/internal/workflows"
	"github.com/acrewise/acrewise/pkg/pagination"
)

const testOwner = "owner-1"

// fakeDocs implements pipeline.Documents in memory.
type fakeDocs struct {
	mu        sync.Mutex
	docs      map[uuid.UUID]*documents.Document
	text      map[uuid.UUID]string
	textErr   error
	textCalls int
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		docs: make(map[uuid.UUID]*documents.Document),
		text: make(map[uuid.UUID]string),
	}
}

func (f *fakeDocs) add(text string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.New()
	f.docs[id] = &documents.Document{
		ID:      id,
		OwnerID: testOwner,
		Status:  documents.StatusProcessing,
	}
	f.text[id] = text
	return id
}

func (f *fakeDocs) get(id uuid.UUID) documents.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.docs[id]
}

func (f *fakeDocs) Find(_ context.Context, owner string, id uuid.UUID) (*documents.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := f.docs[id]
	if !ok || doc.OwnerID != owner {
		return nil, documents.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocs) Text(_ context.Context, owner string, id uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.textCalls++
	if f.textErr != nil {
		return "", f.textErr
	}

	doc, ok := f.docs[id]
	if !ok || doc.OwnerID != owner {
		return "", documents.ErrNotFound
	}
	return f.text[id], nil
}

func (f *fakeDocs) MarkProcessing(_ context.Context, owner string, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := f.docs[id]
	if !ok || doc.OwnerID != owner {
		return documents.ErrNotFound
	}
	doc.Status = documents.StatusProcessing
	return nil
}

func (f *fakeDocs) ApplyClassification(_ context.Context, _ string, id uuid.UUID, category string, confidence float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc := f.docs[id]
	doc.Category = &category
	doc.ClassificationConfidence = &confidence
	return nil
}

func (f *fakeDocs) ApplyExtraction(_ context.Context, _ string, id uuid.UUID, data extract.FieldMap, confidence float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc := f.docs[id]
	doc.ExtractedData = data
	doc.ExtractionConfidence = &confidence
	return nil
}

func (f *fakeDocs) ApplyReview(_ context.Context, _ string, id uuid.UUID, required bool, reasons []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc := f.docs[id]
	doc.RequiresReview = required
	doc.ReviewReasons = reasons
	if required {
		doc.Status = documents.StatusReviewRequired
	}
	return nil
}

func (f *fakeDocs) ApplyCorrections(_ context.Context, _ string, id uuid.UUID, data extract.FieldMap) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc := f.docs[id]
	if doc.ExtractedData == nil {
		doc.ExtractedData = extract.FieldMap{}
	}
	for k, v := range data {
		doc.ExtractedData[k] = v
	}
	return nil
}

func (f *fakeDocs) Finalize(_ context.Context, _ string, id uuid.UUID, status string, failureReason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc := f.docs[id]
	doc.Status = status
	doc.FailureReason = failureReason
	return nil
}

type fixture struct {
	pipeline pipeline.System
	docs     *fakeDocs
	engine   workflows.System
	reviews  hitl.System
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	docs := newFakeDocs()
	engine := workflows.NewEngine(workflows.NewMemoryStore(), logger, pipeline.Definition())
	reviews := hitl.NewGateway(hitl.NewMemoryStore(), engine, logger)

	pipe := pipeline.New(
		pipeline.Config{
			Workers:       1,
			QueueSize:     8,
			StepTimeout:   time.Second,
			RetryAttempts: 3,
			RetryDelay:    time.Millisecond,
		},
		docs,
		classify.NewKeywordClassifier(),
		extract.NewRegistry(),
		policy.New(policy.DefaultConfig(), logger),
		engine,
		reviews,
		logger,
	)
	reviews.SetFinalizer(pipe)

	return &fixture{pipeline: pipe, docs: docs, engine: engine, reviews: reviews}
}

const partialLeaseText = `LEASE AGREEMENT

This Lease Agreement is made by and between the following parties.
Lessor: Johnson Family Trust (the "Lessor")
Lessee: Meridian Solar LLC (the "Lessee")

The remaining terms are set out in Exhibit A.`

const cleanEnvironmentalText = `Phase I Environmental Site Assessment

Prepared by: Terracon Consultants Inc,
Subject Property: 4400 Ranch Road 12;

The assessment revealed no recognized environmental conditions in
connection with the subject property.`

func TestProcessHoldsPartialLeaseForReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.docs.add(partialLeaseText)

	if err := f.pipeline.Process(ctx, testOwner, id); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	doc := f.docs.get(id)
	if doc.Status != documents.StatusReviewRequired {
		t.Errorf("Status = %v, want review_required", doc.Status)
	}
	if doc.Category == nil || *doc.Category != "lease" {
		t.Errorf("Category = %v, want lease", doc.Category)
	}
	if doc.ExtractionConfidence == nil || *doc.ExtractionConfidence != 0.5 {
		t.Errorf("ExtractionConfidence = %v, want 0.5", doc.ExtractionConfidence)
	}
	if !doc.RequiresReview {
		t.Error("RequiresReview should be true")
	}

	wantReasons := []string{
		"Legal document requires attorney review",
		"Extraction confidence (50%) below 90% threshold",
	}
	if len(doc.ReviewReasons) != len(wantReasons) {
		t.Fatalf("ReviewReasons = %v, want %v", doc.ReviewReasons, wantReasons)
	}
	for i, want := range wantReasons {
		if doc.ReviewReasons[i] != want {
			t.Errorf("ReviewReasons[%d] = %q, want %q", i, doc.ReviewReasons[i], want)
		}
	}

	result, err := f.reviews.List(ctx, testOwner, hitl.Filters{}, pagination.PageRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("review queue total = %d, want 1", result.Total)
	}

	req := result.Items[0]
	if req.Urgency != hitl.UrgencyHigh {
		t.Errorf("Urgency = %v, want high", req.Urgency)
	}
	if req.DocumentID != id {
		t.Errorf("DocumentID = %v, want %v", req.DocumentID, id)
	}

	if req.Snapshot["category"] != "lease" {
		t.Errorf("Snapshot[category] = %v, want lease", req.Snapshot["category"])
	}
	if req.Snapshot["confidence"] != 0.5 {
		t.Errorf("Snapshot[confidence] = %v, want 0.5", req.Snapshot["confidence"])
	}
	snapFields, ok := req.Snapshot["fields"].(map[string]any)
	if !ok {
		t.Fatalf("Snapshot[fields] = %T, want map", req.Snapshot["fields"])
	}
	if snapFields["lessor"] != "Johnson Family Trust" {
		t.Errorf("Snapshot fields lessor = %v, want Johnson Family Trust", snapFields["lessor"])
	}

	inst, err := f.engine.Get(ctx, testOwner, req.WorkflowID)
	if err != nil {
		t.Fatalf("Get() workflow error = %v", err)
	}
	if inst.Status != workflows.StatusPaused {
		t.Errorf("workflow status = %v, want paused", inst.Status)
	}
	if inst.CurrentNode != pipeline.NodeHITLGate {
		t.Errorf("workflow node = %v, want hitl_gate", inst.CurrentNode)
	}
	if inst.Data["requiresHITL"] != true {
		t.Errorf("workflow data requiresHITL = %v, want true", inst.Data["requiresHITL"])
	}
	held, ok := inst.Data["hitlReasons"].([]string)
	if !ok || len(held) != len(wantReasons) {
		t.Errorf("workflow data hitlReasons = %v, want %v", inst.Data["hitlReasons"], wantReasons)
	}
}

func TestProcessCompletesCleanDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.docs.add(cleanEnvironmentalText)

	if err := f.pipeline.Process(ctx, testOwner, id); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	doc := f.docs.get(id)
	if doc.Status != documents.StatusApproved {
		t.Errorf("Status = %v, want approved", doc.Status)
	}
	if doc.RequiresReview {
		t.Errorf("RequiresReview = true, reasons = %v", doc.ReviewReasons)
	}
	if doc.Category == nil || *doc.Category != "environmental" {
		t.Errorf("Category = %v, want environmental", doc.Category)
	}
	if doc.ExtractionConfidence == nil || *doc.ExtractionConfidence != 1 {
		t.Errorf("ExtractionConfidence = %v, want 1", doc.ExtractionConfidence)
	}

	workflowPage, err := f.engine.List(ctx, testOwner, nil, pagination.PageRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("List() workflows error = %v", err)
	}
	if len(workflowPage.Items) != 1 {
		t.Fatalf("workflow count = %d, want 1", len(workflowPage.Items))
	}
	inst := workflowPage.Items[0]
	if inst.Status != workflows.StatusCompleted {
		t.Errorf("workflow status = %v, want completed", inst.Status)
	}
	if inst.CurrentNode != workflows.NodeComplete {
		t.Errorf("workflow node = %v, want complete", inst.CurrentNode)
	}
	if inst.Data["outcome"] != documents.StatusApproved {
		t.Errorf("workflow data outcome = %v, want approved", inst.Data["outcome"])
	}

	result, _ := f.reviews.List(ctx, testOwner, hitl.Filters{}, pagination.PageRequest{Page: 1, PageSize: 10})
	if result.Total != 0 {
		t.Errorf("review queue total = %d, want 0", result.Total)
	}
}

func TestProcessFailsAfterRetryExhaustion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.docs.add("irrelevant")
	f.docs.textErr = errors.New("blob store unavailable")

	err := f.pipeline.Process(ctx, testOwner, id)
	if err == nil {
		t.Fatal("Process() should fail when text loading keeps failing")
	}

	if f.docs.textCalls != 3 {
		t.Errorf("text load attempts = %d, want 3", f.docs.textCalls)
	}

	doc := f.docs.get(id)
	if doc.Status != documents.StatusFailed {
		t.Errorf("Status = %v, want failed", doc.Status)
	}
	if doc.FailureReason == nil || !strings.Contains(*doc.FailureReason, "blob store unavailable") {
		t.Errorf("FailureReason = %v, want cause recorded", doc.FailureReason)
	}
}

func TestReviewApprovalFinalizesDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.docs.add(partialLeaseText)
	if err := f.pipeline.Process(ctx, testOwner, id); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	queue, _ := f.reviews.List(ctx, testOwner, hitl.Filters{}, pagination.PageRequest{Page: 1, PageSize: 10})
	if queue.Total != 1 {
		t.Fatalf("review queue total = %d, want 1", queue.Total)
	}
	req := queue.Items[0]

	_, err := f.reviews.Resolve(ctx, testOwner, req.ID, hitl.Resolution{
		Decision: hitl.StatusApproved,
		Reviewer: "attorney@example.com",
		CorrectedData: map[string]any{
			"totalAcres": 320.5,
		},
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	doc := f.docs.get(id)
	if doc.Status != documents.StatusApproved {
		t.Errorf("Status = %v, want approved", doc.Status)
	}
	if doc.ExtractedData["totalAcres"] != 320.5 {
		t.Errorf("ExtractedData[totalAcres] = %v, want corrected 320.5", doc.ExtractedData["totalAcres"])
	}

	inst, err := f.engine.Get(ctx, testOwner, req.WorkflowID)
	if err != nil {
		t.Fatalf("Get() workflow error = %v", err)
	}
	if inst.Status != workflows.StatusCompleted {
		t.Errorf("workflow status = %v, want completed", inst.Status)
	}
	if inst.CurrentNode != workflows.NodeComplete {
		t.Errorf("workflow node = %v, want complete", inst.CurrentNode)
	}
	if len(inst.History) != inst.Version {
		t.Errorf("history length %d != version %d", len(inst.History), inst.Version)
	}
}

func TestReviewRejectionRecordsReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.docs.add(partialLeaseText)
	if err := f.pipeline.Process(ctx, testOwner, id); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	queue, _ := f.reviews.List(ctx, testOwner, hitl.Filters{}, pagination.PageRequest{Page: 1, PageSize: 10})
	req := queue.Items[0]

	_, err := f.reviews.Resolve(ctx, testOwner, req.ID, hitl.Resolution{
		Decision: hitl.StatusRejected,
		Reviewer: "attorney@example.com",
		Notes:    "unsigned draft",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	doc := f.docs.get(id)
	if doc.Status != documents.StatusRejected {
		t.Errorf("Status = %v, want rejected", doc.Status)
	}
	if doc.FailureReason == nil || *doc.FailureReason != "unsigned draft" {
		t.Errorf("FailureReason = %v, want unsigned draft", doc.FailureReason)
	}

	inst, err := f.engine.Get(ctx, testOwner, req.WorkflowID)
	if err != nil {
		t.Fatalf("Get() workflow error = %v", err)
	}
	if inst.Status != workflows.StatusFailed {
		t.Errorf("workflow status = %v, want failed after rejection", inst.Status)
	}
	if inst.CurrentNode != pipeline.NodeHITLGate {
		t.Errorf("workflow node = %v, want hitl_gate", inst.CurrentNode)
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	docs := newFakeDocs()
	engine := workflows.NewEngine(workflows.NewMemoryStore(), logger, pipeline.Definition())
	reviews := hitl.NewGateway(hitl.NewMemoryStore(), engine, logger)

	pipe := pipeline.New(
		pipeline.Config{Workers: 1, QueueSize: 1, StepTimeout: time.Second, RetryAttempts: 1},
		docs,
		classify.NewKeywordClassifier(),
		extract.NewRegistry(),
		policy.New(policy.DefaultConfig(), logger),
		engine,
		reviews,
		logger,
	)

	// Workers are not started, so the queue drains nothing.
	if err := pipe.Enqueue(testOwner, uuid.New()); err != nil {
		t.Fatalf("first Enqueue() error = %v", err)
	}
	if err := pipe.Enqueue(testOwner, uuid.New()); !errors.Is(err, pipeline.ErrQueueFull) {
		t.Errorf("second Enqueue() error = %v, want ErrQueueFull", err)
	}
}
