// Package hitl manages human review requests raised by the processing
// pipeline: creation when a document is held, queue listing for reviewers,
// and atomic resolution that resumes the paused workflow.
package hitl

import (
	"time"

	"github.com/google/uuid"
)

// Urgency ranks how quickly a review request needs attention.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// UrgencyFor derives urgency from the review hold flags: legal and
// financial together are critical, either alone is high, a pure confidence
// hold is medium.
func UrgencyFor(legal, financial, lowConfidence bool) Urgency {
	switch {
	case legal && financial:
		return UrgencyCritical
	case legal || financial:
		return UrgencyHigh
	case lowConfidence:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// ReviewStatus is the lifecycle state of a review request. Deferred
// requests remain open and can be resolved again; approved and rejected
// are final.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
	StatusDeferred ReviewStatus = "deferred"
)

// Open reports whether the request can still be resolved.
func (s ReviewStatus) Open() bool {
	return s == StatusPending || s == StatusDeferred
}

// Request is a pending or resolved human review of one document.
// At most one open request exists per workflow instance.
type Request struct {
	ID              uuid.UUID      `json:"id"`
	OwnerID         string         `json:"-"`
	DocumentID      uuid.UUID      `json:"documentId"`
	WorkflowID      uuid.UUID      `json:"workflowId"`
	Urgency         Urgency        `json:"urgency"`
	Status          ReviewStatus   `json:"status"`
	Reasons         []string       `json:"reasons"`
	Snapshot        map[string]any `json:"snapshot,omitempty"`
	ResolvedBy      string         `json:"resolvedBy,omitempty"`
	ResolutionNotes string         `json:"resolutionNotes,omitempty"`
	CorrectedData   map[string]any `json:"correctedData,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	ResolvedAt      *time.Time     `json:"resolvedAt,omitempty"`
}

// CreateCommand holds the fields the pipeline provides when raising a review.
type CreateCommand struct {
	DocumentID uuid.UUID
	WorkflowID uuid.UUID
	Urgency    Urgency
	Reasons    []string
	Snapshot   map[string]any
}

// Resolution is a reviewer's verdict on an open request.
type Resolution struct {
	Decision      ReviewStatus   `json:"decision"`
	Reviewer      string         `json:"reviewer"`
	Notes         string         `json:"notes,omitempty"`
	CorrectedData map[string]any `json:"correctedData,omitempty"`
}

// Validate checks that the resolution carries a final or deferred decision
// and names a reviewer.
func (r Resolution) Validate() error {
	switch r.Decision {
	case StatusApproved, StatusRejected, StatusDeferred:
	default:
		return ErrInvalidDecision
	}

	if r.Reviewer == "" {
		return ErrMissingReviewer
	}

	return nil
}
