// Package classify implements document categorization for the processing pipeline.
// The default implementation matches an ordered table of keyword detectors;
// the Classifier contract allows a model-backed implementation to substitute
// without touching the pipeline.
package classify

// Category identifies the kind of land document being processed.
type Category string

const (
	CategoryLease         Category = "lease"
	CategoryOption        Category = "option"
	CategoryEasement      Category = "easement"
	CategoryPPA           Category = "ppa"
	CategoryEnvironmental Category = "environmental"
	CategorySurvey        Category = "survey"
	CategoryTitle         Category = "title"
	CategoryUnknown       Category = "unknown"
)

// Categories lists every category a classifier may assign, including unknown.
func Categories() []Category {
	return []Category{
		CategoryLease,
		CategoryOption,
		CategoryEasement,
		CategoryPPA,
		CategoryEnvironmental,
		CategorySurvey,
		CategoryTitle,
		CategoryUnknown,
	}
}

// Valid reports whether c is a recognized category.
func (c Category) Valid() bool {
	for _, cat := range Categories() {
		if c == cat {
			return true
		}
	}
	return false
}
