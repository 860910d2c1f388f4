package extract

import (
	"regexp"

	"github.com/acrewise/acrewise/internal/classify"
)

var (
	optionorPattern   = regexp.MustCompile(`(?i)optionor[:,]?\s+([A-Z][A-Za-z0-9 .,&'-]+?)(?:\s*\((?:the\s+)?["']?Optionor|[,;\n])`)
	optioneePattern   = regexp.MustCompile(`(?i)optionee[:,]?\s+([A-Z][A-Za-z0-9 .,&'-]+?)(?:\s*\((?:the\s+)?["']?Optionee|[,;\n])`)
	optionFeePattern  = regexp.MustCompile(`(?i)option\s+(?:fee|payment)(?:\s+of)?[:\s]+\$\s*([\d,]+(?:\.\d{1,2})?)`)
	purchasePattern   = regexp.MustCompile(`(?i)purchase\s+price(?:\s+of)?[:\s]+\$\s*([\d,]+(?:\.\d{1,2})?)`)
	optionTermPattern = regexp.MustCompile(`(?i)option\s+(?:term|period)\s+of\s+([\d]+)\s+(?:months|years)`)
)

// optionExtractor pulls parties and consideration from option agreements.
type optionExtractor struct{}

func (e *optionExtractor) Category() classify.Category {
	return classify.CategoryOption
}

func (e *optionExtractor) CriticalFields() []string {
	return []string{"optionor", "optionee", "optionFee", "optionTerm"}
}

func (e *optionExtractor) Extract(text string) FieldMap {
	return FieldMap{
		"optionor":      stringField(optionorPattern, text),
		"optionee":      stringField(optioneePattern, text),
		"optionFee":     floatField(optionFeePattern, text),
		"purchasePrice": floatField(purchasePattern, text),
		"optionTerm":    stringField(optionTermPattern, text),
		"totalAcres":    floatField(acresPattern, text),
	}
}
