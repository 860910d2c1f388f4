package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/internal/classify"
	"github.com/acrewise/acrewise/internal/documents"
	"github.com/acrewise/acrewise/internal/extract"
	"github.com/acrewise/acrewise/internal/hitl"
	"github.com/acrewise/acrewise/internal/policy"
)

// Process runs the pipeline for one document: start a workflow, classify,
// extract, score, and evaluate the review policy. Documents that pass are
// finalized as approved; documents held for review pause the workflow and
// raise a review request. Step failures that exhaust retries fail both the
// document and the workflow.
func (p *pipeline) Process(ctx context.Context, owner string, id uuid.UUID) error {
	inst, err := p.engine.Start(ctx, owner, WorkflowType, map[string]any{
		"documentId": id.String(),
	})
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}

	logger := p.logger.With("document", id, "workflow", inst.ID)

	if _, err := p.engine.Transition(ctx, owner, inst.ID, NodeClassify, nil); err != nil {
		return p.fail(ctx, owner, id, inst.ID, "classify", err)
	}

	var text string
	if err := p.runStep(ctx, "load", func(stepCtx context.Context) error {
		text, err = p.docs.Text(stepCtx, owner, id)
		return err
	}); err != nil {
		return p.fail(ctx, owner, id, inst.ID, "load", err)
	}

	var result classify.Result
	if err := p.runStep(ctx, "classify", func(stepCtx context.Context) error {
		result, err = p.classifier.Classify(stepCtx, text)
		return err
	}); err != nil {
		return p.fail(ctx, owner, id, inst.ID, "classify", err)
	}

	if err := p.docs.ApplyClassification(ctx, owner, id, string(result.Category), result.Confidence); err != nil {
		return p.fail(ctx, owner, id, inst.ID, "classify", err)
	}

	if _, err := p.engine.Transition(ctx, owner, inst.ID, NodeExtract, map[string]any{
		"category":   string(result.Category),
		"confidence": result.Confidence,
	}); err != nil {
		return p.fail(ctx, owner, id, inst.ID, "classify", err)
	}

	var fields extract.FieldMap
	if err := p.runStep(ctx, "extract", func(stepCtx context.Context) error {
		fields, err = p.extractors.Extract(stepCtx, result.Category, text)
		return err
	}); err != nil {
		return p.fail(ctx, owner, id, inst.ID, "extract", err)
	}

	confidence := extract.Score(fields, p.extractors.CriticalFields(result.Category))

	if err := p.docs.ApplyExtraction(ctx, owner, id, fields, confidence); err != nil {
		return p.fail(ctx, owner, id, inst.ID, "extract", err)
	}

	if _, err := p.engine.Transition(ctx, owner, inst.ID, NodeValidate, map[string]any{
		"extractionConfidence": confidence,
	}); err != nil {
		return p.fail(ctx, owner, id, inst.ID, "extract", err)
	}

	decision := p.policy.Evaluate(policy.Input{
		Category:   result.Category,
		Confidence: confidence,
		Data:       fields,
	})

	if err := p.docs.ApplyReview(ctx, owner, id, decision.RequiresReview, decision.Reasons); err != nil {
		return p.fail(ctx, owner, id, inst.ID, "validate", err)
	}

	if !decision.RequiresReview {
		if err := p.docs.Finalize(ctx, owner, id, documents.StatusApproved, nil); err != nil {
			return p.fail(ctx, owner, id, inst.ID, "validate", err)
		}

		if _, err := p.engine.Complete(ctx, owner, inst.ID, map[string]any{
			"outcome": documents.StatusApproved,
		}); err != nil {
			return fmt.Errorf("complete workflow: %w", err)
		}

		logger.Info("document approved without review",
			"category", result.Category,
			"confidence", confidence)
		return nil
	}

	return p.hold(ctx, owner, id, inst.ID, decision, result, confidence, fields, logger)
}

// hold pauses the workflow at the hitl gate and raises a review request
// carrying the classification and extraction context a reviewer needs.
func (p *pipeline) hold(
	ctx context.Context,
	owner string,
	id, workflowID uuid.UUID,
	decision policy.Decision,
	result classify.Result,
	confidence float64,
	fields extract.FieldMap,
	logger *slog.Logger,
) error {
	if _, err := p.engine.Transition(ctx, owner, workflowID, NodeHITLGate, map[string]any{
		"reasons": decision.Reasons,
	}); err != nil {
		return fmt.Errorf("enter hitl gate: %w", err)
	}

	if _, err := p.engine.Pause(ctx, owner, workflowID, decision.Reasons); err != nil {
		return fmt.Errorf("pause workflow: %w", err)
	}

	_, err := p.reviews.Create(ctx, owner, hitl.CreateCommand{
		DocumentID: id,
		WorkflowID: workflowID,
		Urgency:    hitl.UrgencyFor(decision.LegalHold, decision.FinancialHold, decision.LowConfidence),
		Reasons:    decision.Reasons,
		Snapshot: map[string]any{
			"category":   string(result.Category),
			"confidence": confidence,
			"fields":     map[string]any(fields),
		},
	})
	if err != nil {
		return fmt.Errorf("create review request: %w", err)
	}

	logger.Info("document held for review", "reasons", decision.Reasons)
	return nil
}

// FinalizeReview applies a resolved review back to the document. The review
// gateway calls this after settling the workflow: an approved workflow is
// running again and gets completed here, a rejected one is already
// terminally failed. It is the hitl.Finalizer implementation.
func (p *pipeline) FinalizeReview(ctx context.Context, req hitl.Request) error {
	owner := req.OwnerID

	switch req.Status {
	case hitl.StatusApproved:
		if len(req.CorrectedData) > 0 {
			if err := p.docs.ApplyCorrections(ctx, owner, req.DocumentID, extract.FieldMap(req.CorrectedData)); err != nil {
				return fmt.Errorf("apply corrections: %w", err)
			}
		}
		if err := p.docs.Finalize(ctx, owner, req.DocumentID, documents.StatusApproved, nil); err != nil {
			return fmt.Errorf("finalize document: %w", err)
		}

		if _, err := p.engine.Complete(ctx, owner, req.WorkflowID, map[string]any{
			"outcome":  string(req.Status),
			"reviewer": req.ResolvedBy,
		}); err != nil {
			return fmt.Errorf("complete workflow: %w", err)
		}
	case hitl.StatusRejected:
		reason := req.ResolutionNotes
		if reason == "" {
			reason = "rejected by reviewer"
		}
		if err := p.docs.Finalize(ctx, owner, req.DocumentID, documents.StatusRejected, &reason); err != nil {
			return fmt.Errorf("finalize document: %w", err)
		}
	default:
		return fmt.Errorf("%w: cannot finalize %s review", hitl.ErrInvalidDecision, req.Status)
	}

	return nil
}

// fail marks both the document and its workflow failed after a step
// exhausted its retries.
func (p *pipeline) fail(ctx context.Context, owner string, id, workflowID uuid.UUID, step string, cause error) error {
	reason := fmt.Sprintf("%s: %v", step, cause)

	if err := p.docs.Finalize(ctx, owner, id, documents.StatusFailed, &reason); err != nil {
		p.logger.Error("failed to mark document failed", "document", id, "error", err)
	}

	if _, err := p.engine.Fail(ctx, owner, workflowID, reason); err != nil {
		p.logger.Error("failed to fail workflow", "workflow", workflowID, "error", err)
	}

	return fmt.Errorf("pipeline step %s: %w", step, cause)
}

// runStep executes fn with a per-attempt timeout, retrying up to the
// configured attempt count with a fixed delay between attempts.
func (p *pipeline) runStep(ctx context.Context, name string, fn func(context.Context) error) error {
	attempts := max(p.cfg.RetryAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		stepCtx, cancel := context.WithTimeout(ctx, p.cfg.StepTimeout)
		err := fn(stepCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		p.logger.Warn("pipeline step attempt failed",
			"step", name,
			"attempt", attempt,
			"error", err)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.RetryDelay):
			}
		}
	}

	return fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr)
}
