package extract

import (
	"regexp"

	"github.com/acrewise/acrewise/internal/classify"
)

var (
	grantorPattern      = regexp.MustCompile(`(?i)grantor[:,]?\s+([A-Z][A-Za-z0-9 .,&'-]+?)(?:\s*\((?:the\s+)?["']?Grantor|[,;\n])`)
	granteePattern      = regexp.MustCompile(`(?i)grantee[:,]?\s+([A-Z][A-Za-z0-9 .,&'-]+?)(?:\s*\((?:the\s+)?["']?Grantee|[,;\n])`)
	easementTypePattern = regexp.MustCompile(`(?i)(access|utility|transmission|drainage|conservation|solar|wind)\s+easement`)
	compensationPattern = regexp.MustCompile(`(?i)(?:compensation|consideration)(?:\s+of)?[:\s]+\$\s*([\d,]+(?:\.\d{1,2})?)`)
	widthPattern        = regexp.MustCompile(`(?i)([\d.]+)\s*(?:feet|foot|ft)\s+(?:wide|in\s+width)`)
)

// easementExtractor pulls grant terms from easement agreements.
type easementExtractor struct{}

func (e *easementExtractor) Category() classify.Category {
	return classify.CategoryEasement
}

func (e *easementExtractor) CriticalFields() []string {
	return []string{"grantor", "grantee", "easementType", "compensation"}
}

func (e *easementExtractor) Extract(text string) FieldMap {
	return FieldMap{
		"grantor":      stringField(grantorPattern, text),
		"grantee":      stringField(granteePattern, text),
		"easementType": stringField(easementTypePattern, text),
		"compensation": FieldMap{
			"amount": floatField(compensationPattern, text),
		},
		"widthFeet":  floatField(widthPattern, text),
		"totalAcres": floatField(acresPattern, text),
	}
}
