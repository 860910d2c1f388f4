package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/internal/extract"
	"github.com/acrewise/acrewise/pkg/pagination"
)

// System defines the public contract for document domain operations.
// Query and mutation operations are scoped to an owner; a document
// belonging to another owner behaves as if it does not exist.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		owner string,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, owner string, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, owner string, cmd CreateCommand) (*Document, error)
	Delete(ctx context.Context, owner string, id uuid.UUID) error

	// Text returns the document's stored content as text for classification
	// and extraction.
	Text(ctx context.Context, owner string, id uuid.UUID) (string, error)

	// MarkProcessing moves an uploading or failed document into processing.
	// Returns ErrNotProcessable when the document is mid-pipeline or under
	// review.
	MarkProcessing(ctx context.Context, owner string, id uuid.UUID) error

	// ApplyClassification records the classifier result.
	ApplyClassification(ctx context.Context, owner string, id uuid.UUID, category string, confidence float64) error

	// ApplyExtraction records extracted fields and extraction confidence.
	ApplyExtraction(ctx context.Context, owner string, id uuid.UUID, data extract.FieldMap, confidence float64) error

	// ApplyReview records the review decision. When required is true the
	// document moves to review_required with the given reasons.
	ApplyReview(ctx context.Context, owner string, id uuid.UUID, required bool, reasons []string) error

	// ApplyCorrections merges reviewer-corrected fields into the extracted
	// data.
	ApplyCorrections(ctx context.Context, owner string, id uuid.UUID, data extract.FieldMap) error

	// Finalize sets the document's terminal pipeline status. failureReason
	// is recorded when status is failed or rejected.
	Finalize(ctx context.Context, owner string, id uuid.UUID, status string, failureReason *string) error
}
