// Package documents implements the document domain: upload and registration,
// blob storage integration, metadata queries, and the processing state the
// pipeline writes back as a document moves through classification,
// extraction, and review.
package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/internal/extract"
)

// Document processing statuses. A clean pipeline pass and an approved
// review both land on approved; rejected and failed are the other terminal
// outcomes.
const (
	StatusUploading      = "uploading"
	StatusProcessing     = "processing"
	StatusReviewRequired = "review_required"
	StatusApproved       = "approved"
	StatusRejected       = "rejected"
	StatusFailed         = "failed"
)

// Document represents a registered document with its metadata, blob storage
// reference, and pipeline results. All documents are scoped to the owner
// resolved by the tenant middleware.
type Document struct {
	ID                       uuid.UUID        `json:"id"`
	OwnerID                  string           `json:"-"`
	ProjectID                *uuid.UUID       `json:"project_id,omitempty"`
	Filename                 string           `json:"filename"`
	ContentType              string           `json:"content_type"`
	SizeBytes                int64            `json:"size_bytes"`
	PageCount                *int             `json:"page_count"`
	StorageKey               string           `json:"storage_key"`
	Status                   string           `json:"status"`
	Category                 *string          `json:"category,omitempty"`
	ClassificationConfidence *float64         `json:"classification_confidence,omitempty"`
	ExtractedData            extract.FieldMap `json:"extracted_data,omitempty"`
	ExtractionConfidence     *float64         `json:"extraction_confidence,omitempty"`
	RequiresReview           bool             `json:"requires_review"`
	ReviewReasons            []string         `json:"review_reasons,omitempty"`
	FailureReason            *string          `json:"failure_reason,omitempty"`
	UploadedAt               time.Time        `json:"uploaded_at"`
	UpdatedAt                time.Time        `json:"updated_at"`
}

// CreateCommand carries the data needed to upload and register a new document.
// Data holds the raw file bytes. PageCount is optional and may be extracted
// by the caller via pdfcpu; nil values are stored as NULL.
type CreateCommand struct {
	Data        []byte
	Filename    string
	ContentType string
	ProjectID   *uuid.UUID
	PageCount   *int
}

// BatchResult reports the outcome of a single file within a batch upload.
// On success, Document is populated and Error is empty.
type BatchResult struct {
	Document *Document `json:"document,omitempty"`
	Filename string    `json:"filename"`
	Error    string    `json:"error,omitempty"`
}
