// Package extract implements structured field extraction from land document text.
// Extractors are registered per document category; unrecognized categories fall
// back to a generic extractor that pulls parties, dates, and dollar amounts.
package extract

import (
	"context"
	"fmt"

	"github.com/acrewise/acrewise/internal/classify"
)

// FieldMap holds extracted document fields. Values are strings, numbers,
// string slices, nested FieldMaps for grouped terms such as rent schedules,
// or nil for schema fields the text did not yield.
type FieldMap map[string]any

// Extractor pulls structured fields from the raw text of one document category.
type Extractor interface {
	// Category is the document category this extractor handles.
	Category() classify.Category

	// CriticalFields names the top-level fields that must be present for the
	// extraction to be considered complete. Scoring is based on these.
	CriticalFields() []string

	// Extract parses text into a FieldMap carrying every field of the
	// category's schema. Fields that cannot be located are set to nil so
	// they serialize as explicit nulls.
	Extract(text string) FieldMap
}

// Registry maps document categories to their extractors, falling back to a
// generic extractor for categories without a dedicated implementation.
type Registry struct {
	extractors map[classify.Category]Extractor
	fallback   Extractor
}

// NewRegistry creates a registry populated with the default extractor set.
func NewRegistry() *Registry {
	r := &Registry{
		extractors: make(map[classify.Category]Extractor),
		fallback:   &genericExtractor{},
	}

	r.Register(&leaseExtractor{})
	r.Register(&ppaExtractor{})
	r.Register(&optionExtractor{})
	r.Register(&easementExtractor{})
	r.Register(&environmentalExtractor{})

	return r
}

// Register adds or replaces the extractor for its category.
func (r *Registry) Register(e Extractor) {
	r.extractors[e.Category()] = e
}

// Lookup returns the extractor for category, or the generic fallback.
func (r *Registry) Lookup(category classify.Category) Extractor {
	if e, ok := r.extractors[category]; ok {
		return e
	}
	return r.fallback
}

// Extract runs the extractor for category against text, honoring context
// cancellation before starting work.
func (r *Registry) Extract(ctx context.Context, category classify.Category, text string) (FieldMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extraction cancelled: %w", err)
	}

	return r.Lookup(category).Extract(text), nil
}

// CriticalFields returns the critical field list for category, using the
// generic fallback for categories without a dedicated extractor.
func (r *Registry) CriticalFields(category classify.Category) []string {
	return r.Lookup(category).CriticalFields()
}
