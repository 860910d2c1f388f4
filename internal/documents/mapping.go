package documents

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/pkg/query"
	"github.com/acrewise/acrewise/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("owner_id", "OwnerID").
	Project("project_id", "ProjectID").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("storage_key", "StorageKey").
	Project("status", "Status").
	Project("category", "Category").
	Project("classification_confidence", "ClassificationConfidence").
	Project("extracted_data", "ExtractedData").
	Project("extraction_confidence", "ExtractionConfidence").
	Project("requires_review", "RequiresReview").
	Project("review_reasons", "ReviewReasons").
	Project("failure_reason", "FailureReason").
	Project("uploaded_at", "UploadedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UploadedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. Status, ProjectID, Category, and ContentType use
// exact matching. Filename uses case-insensitive contains matching.
type Filters struct {
	Status      *string    `json:"status,omitempty"`
	Filename    *string    `json:"filename,omitempty"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	Category    *string    `json:"category,omitempty"`
	ContentType *string    `json:"content_type,omitempty"`
	Review      *bool      `json:"requires_review,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereContains("Filename", f.Filename).
		WhereEquals("ProjectID", f.ProjectID).
		WhereEquals("Category", f.Category).
		WhereEquals("ContentType", f.ContentType).
		WhereEquals("RequiresReview", f.Review)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if fn := values.Get("filename"); fn != "" {
		f.Filename = &fn
	}

	if pid := values.Get("project_id"); pid != "" {
		if v, err := uuid.Parse(pid); err == nil {
			f.ProjectID = &v
		}
	}

	if c := values.Get("category"); c != "" {
		f.Category = &c
	}

	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}

	if rr := values.Get("requires_review"); rr != "" {
		v := rr == "true"
		f.Review = &v
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var (
		d       Document
		data    []byte
		reasons []byte
	)

	err := s.Scan(
		&d.ID,
		&d.OwnerID,
		&d.ProjectID,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.PageCount,
		&d.StorageKey,
		&d.Status,
		&d.Category,
		&d.ClassificationConfidence,
		&data,
		&d.ExtractionConfidence,
		&d.RequiresReview,
		&reasons,
		&d.FailureReason,
		&d.UploadedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}

	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &d.ExtractedData); err != nil {
			return Document{}, fmt.Errorf("unmarshal extracted data: %w", err)
		}
	}

	if len(reasons) > 0 && string(reasons) != "null" {
		if err := json.Unmarshal(reasons, &d.ReviewReasons); err != nil {
			return Document{}, fmt.Errorf("unmarshal review reasons: %w", err)
		}
	}

	return d, nil
}
