// Package pipeline orchestrates document processing: classification,
// extraction, confidence scoring, and the review policy, driven through a
// durable workflow instance per document. Documents that need human review
// pause at the hitl gate until a reviewer resolves them.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/internal/classify"
	"github.com/acrewise/acrewise/internal/documents"
	"github.com/acrewise/acrewise/internal/extract"
	"github.com/acrewise/acrewise/internal/hitl"
	"github.com/acrewise/acrewise/internal/policy"
	"github.com/acrewise/acrewise/internal/workflows"
	"github.com/acrewise/acrewise/pkg/lifecycle"
)

// WorkflowType identifies the document processing workflow definition.
const WorkflowType = "document_processing"

// Processing workflow nodes.
const (
	NodeClassify = "classify"
	NodeExtract  = "extract"
	NodeValidate = "validate"
	NodeHITLGate = "hitl_gate"
)

// Definition returns the document processing workflow definition for
// registration with the workflow engine.
func Definition() workflows.Definition {
	return workflows.Definition{
		Type:  WorkflowType,
		Nodes: []string{NodeClassify, NodeExtract, NodeValidate, NodeHITLGate},
	}
}

// ErrQueueFull indicates the processing queue cannot accept more work.
var ErrQueueFull = errors.New("processing queue is full")

// MapHTTPStatus translates pipeline errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrQueueFull) {
		return http.StatusServiceUnavailable
	}
	return documents.MapHTTPStatus(err)
}

// Config holds worker pool sizing and per-step retry behavior.
type Config struct {
	Workers       int
	QueueSize     int
	StepTimeout   time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Documents is the slice of the document domain the pipeline drives.
// Satisfied by documents.System; narrowed so tests can fake it without a
// database.
type Documents interface {
	Find(ctx context.Context, owner string, id uuid.UUID) (*documents.Document, error)
	Text(ctx context.Context, owner string, id uuid.UUID) (string, error)
	MarkProcessing(ctx context.Context, owner string, id uuid.UUID) error
	ApplyClassification(ctx context.Context, owner string, id uuid.UUID, category string, confidence float64) error
	ApplyExtraction(ctx context.Context, owner string, id uuid.UUID, data extract.FieldMap, confidence float64) error
	ApplyReview(ctx context.Context, owner string, id uuid.UUID, required bool, reasons []string) error
	ApplyCorrections(ctx context.Context, owner string, id uuid.UUID, data extract.FieldMap) error
	Finalize(ctx context.Context, owner string, id uuid.UUID, status string, failureReason *string) error
}

// System is the pipeline API. Processing is asynchronous: Enqueue hands a
// document to the worker pool, Process runs the pipeline inline and is what
// the workers call.
type System interface {
	hitl.Finalizer

	// Start registers the worker pool with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error

	// Enqueue submits a document for background processing without blocking.
	Enqueue(owner string, id uuid.UUID) error

	// Process runs the full pipeline for one document.
	Process(ctx context.Context, owner string, id uuid.UUID) error

	// Handler returns the pipeline HTTP handler.
	Handler() *Handler
}

type pipeline struct {
	cfg        Config
	docs       Documents
	classifier classify.Classifier
	extractors *extract.Registry
	policy     *policy.Policy
	engine     workflows.System
	reviews    hitl.System
	jobs       chan job
	logger     *slog.Logger
}

type job struct {
	owner string
	id    uuid.UUID
}

// New creates the pipeline over its collaborating systems.
func New(
	cfg Config,
	docs Documents,
	classifier classify.Classifier,
	extractors *extract.Registry,
	reviewPolicy *policy.Policy,
	engine workflows.System,
	reviews hitl.System,
	logger *slog.Logger,
) System {
	return &pipeline{
		cfg:        cfg,
		docs:       docs,
		classifier: classifier,
		extractors: extractors,
		policy:     reviewPolicy,
		engine:     engine,
		reviews:    reviews,
		jobs:       make(chan job, cfg.QueueSize),
		logger:     logger.With("system", "pipeline"),
	}
}

func (p *pipeline) Handler() *Handler {
	return NewHandler(p, p.docs, p.logger)
}

func (p *pipeline) Enqueue(owner string, id uuid.UUID) error {
	select {
	case p.jobs <- job{owner: owner, id: id}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *pipeline) Start(lc *lifecycle.Coordinator) error {
	p.logger.Info("starting pipeline workers", "workers", p.cfg.Workers)

	for i := 0; i < p.cfg.Workers; i++ {
		go p.worker(lc.Context())
	}

	return nil
}

func (p *pipeline) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			if err := p.Process(ctx, j.owner, j.id); err != nil {
				p.logger.Error("document processing failed",
					"document", j.id,
					"error", err)
			}
		}
	}
}
