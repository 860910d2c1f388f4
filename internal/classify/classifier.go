package classify

import (
	"context"
	"strings"
)

// Result holds a category assignment with the classifier's confidence in it.
// Confidence is in [0,1] and measures category certainty, not extraction quality.
type Result struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// Classifier assigns a category to raw document text.
// Implementations must treat empty or unrecognizable text as CategoryUnknown,
// never as an error; errors are reserved for capability failures such as a
// model backend timing out.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// unknownConfidence is the confidence reported when no detector matches.
const unknownConfidence = 0.3

// detector pairs a lowercase key phrase with the category it indicates.
type detector struct {
	phrase     string
	category   Category
	confidence float64
}

// detectors is the ordered table of category detectors. First match wins,
// so more specific phrases come before broader ones.
var detectors = []detector{
	{"power purchase agreement", CategoryPPA, 0.97},
	{"lease agreement", CategoryLease, 0.95},
	{"ground lease", CategoryLease, 0.93},
	{"option agreement", CategoryOption, 0.95},
	{"option to purchase", CategoryOption, 0.92},
	{"environmental site assessment", CategoryEnvironmental, 0.94},
	{"phase i esa", CategoryEnvironmental, 0.92},
	{"grant of easement", CategoryEasement, 0.94},
	{"easement agreement", CategoryEasement, 0.93},
	{"easement", CategoryEasement, 0.85},
	{"land title survey", CategorySurvey, 0.92},
	{"title commitment", CategoryTitle, 0.90},
}

// KeywordClassifier categorizes documents by keyword presence against the
// fixed detector table.
type KeywordClassifier struct{}

// NewKeywordClassifier creates the default keyword-table classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify scans text for the first matching detector phrase.
// Empty or whitespace-only text yields CategoryUnknown.
func (c *KeywordClassifier) Classify(_ context.Context, text string) (Result, error) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return Result{Category: CategoryUnknown, Confidence: unknownConfidence}, nil
	}

	for _, d := range detectors {
		if strings.Contains(lowered, d.phrase) {
			return Result{Category: d.category, Confidence: d.confidence}, nil
		}
	}

	return Result{Category: CategoryUnknown, Confidence: unknownConfidence}, nil
}
