package extract

import (
	"regexp"

	"github.com/acrewise/acrewise/internal/classify"
)

var (
	buyerPattern    = regexp.MustCompile(`(?i)(?:buyer|purchaser|offtaker)[:,]?\s+([A-Z][A-Za-z0-9 .,&'-]+?)(?:\s*\((?:the\s+)?["']?(?:Buyer|Purchaser|Offtaker)|[,;\n])`)
	sellerPattern   = regexp.MustCompile(`(?i)seller[:,]?\s+([A-Z][A-Za-z0-9 .,&'-]+?)(?:\s*\((?:the\s+)?["']?Seller|[,;\n])`)
	capacityPattern = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*MW`)
	pricePattern    = regexp.MustCompile(`(?i)\$\s*([\d,]+(?:\.\d{1,2})?)\s*(?:per|/)\s*MWh`)
	codPattern      = regexp.MustCompile(`(?i)commercial\s+operation\s+date[:\s]+([A-Za-z]+\s+\d{1,2},\s+\d{4})`)
	ppaTermPattern  = regexp.MustCompile(`(?i)term\s+of\s+([\d]+)\s+years`)
)

// ppaExtractor pulls counterparties, capacity, and pricing from power
// purchase agreements.
type ppaExtractor struct{}

func (e *ppaExtractor) Category() classify.Category {
	return classify.CategoryPPA
}

func (e *ppaExtractor) CriticalFields() []string {
	return []string{"buyer", "seller", "capacityMW", "pricePerMWh"}
}

func (e *ppaExtractor) Extract(text string) FieldMap {
	return FieldMap{
		"buyer":                   stringField(buyerPattern, text),
		"seller":                  stringField(sellerPattern, text),
		"capacityMW":              floatField(capacityPattern, text),
		"pricePerMWh":             floatField(pricePattern, text),
		"termYears":               floatField(ppaTermPattern, text),
		"commercialOperationDate": stringField(codPattern, text),
	}
}
