package extract

import (
	"regexp"

	"github.com/acrewise/acrewise/internal/classify"
)

var (
	partyPattern  = regexp.MustCompile(`(?i)between\s+([A-Z][A-Za-z0-9 .,&'-]+?)\s+and\s+([A-Z][A-Za-z0-9 .,&'-]+?)[,;\n(]`)
	datePattern   = regexp.MustCompile(`(?i)(?:dated|effective)(?:\s+as\s+of)?[:\s]+([A-Za-z]+\s+\d{1,2},\s+\d{4})`)
	spacesPattern = regexp.MustCompile(`\s+`)
)

// genericExtractor is the fallback for categories without a dedicated
// extractor. It surfaces whatever parties, dates, and amounts it can find
// so a reviewer has something to work from.
type genericExtractor struct{}

func (e *genericExtractor) Category() classify.Category {
	return classify.CategoryUnknown
}

func (e *genericExtractor) CriticalFields() []string {
	return []string{"parties", "effectiveDate"}
}

func (e *genericExtractor) Extract(text string) FieldMap {
	fields := FieldMap{
		"parties":       nil,
		"effectiveDate": stringField(datePattern, text),
		"amounts":       nil,
	}

	if m := partyPattern.FindStringSubmatch(text); m != nil {
		fields["parties"] = []string{
			trimParty(m[1]),
			trimParty(m[2]),
		}
	}

	if amounts := matchAmounts(text); len(amounts) > 0 {
		fields["amounts"] = amounts
	}

	return fields
}

func trimParty(s string) string {
	return spacesPattern.ReplaceAllString(s, " ")
}
