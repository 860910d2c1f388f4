package extract

import (
	"regexp"

	"github.com/acrewise/acrewise/internal/classify"
)

var (
	consultantPattern = regexp.MustCompile(`(?i)prepared\s+by[:\s]+([A-Z][A-Za-z0-9 .,&'-]+?)[,;\n]`)
	sitePattern       = regexp.MustCompile(`(?i)(?:subject\s+property|site\s+address)[:\s]+([A-Z0-9][A-Za-z0-9 .,#'-]+?)[;\n]`)
	recPattern        = regexp.MustCompile(`(?i)(no\s+)?recognized\s+environmental\s+conditions?`)
	assessDatePattern = regexp.MustCompile(`(?i)(?:assessment|report)\s+date[:\s]+([A-Za-z]+\s+\d{1,2},\s+\d{4})`)
)

// environmentalExtractor pulls findings from environmental site assessments.
type environmentalExtractor struct{}

func (e *environmentalExtractor) Category() classify.Category {
	return classify.CategoryEnvironmental
}

func (e *environmentalExtractor) CriticalFields() []string {
	return []string{"consultant", "siteAddress", "findings"}
}

func (e *environmentalExtractor) Extract(text string) FieldMap {
	fields := FieldMap{
		"consultant":     stringField(consultantPattern, text),
		"siteAddress":    stringField(sitePattern, text),
		"assessmentDate": stringField(assessDatePattern, text),
		"findings": FieldMap{
			"recognizedConditions": nil,
		},
	}

	if m := recPattern.FindStringSubmatch(text); m != nil {
		fields["findings"] = FieldMap{"recognizedConditions": m[1] == ""}
	}

	return fields
}
