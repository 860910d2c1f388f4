package extract

import (
	"regexp"

	"github.com/acrewise/acrewise/internal/classify"
)

var (
	lessorPattern       = regexp.MustCompile(`(?i)(?:lessor|landowner|landlord)[:,]?\s+([A-Z][A-Za-z0-9 .,&'-]+?)(?:\s*\((?:the\s+)?["']?(?:Lessor|Landowner|Landlord)|[,;\n])`)
	lesseePattern       = regexp.MustCompile(`(?i)(?:lessee|tenant|developer)[:,]?\s+([A-Z][A-Za-z0-9 .,&'-]+?)(?:\s*\((?:the\s+)?["']?(?:Lessee|Tenant|Developer)|[,;\n])`)
	acresPattern        = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*acres`)
	annualRentPattern   = regexp.MustCompile(`(?i)annual\s+rent(?:\s+of)?[:\s]+\$\s*([\d,]+(?:\.\d{1,2})?)`)
	signingBonusPattern = regexp.MustCompile(`(?i)signing\s+bonus(?:\s+of)?[:\s]+\$\s*([\d,]+(?:\.\d{1,2})?)`)
	escalatorPattern    = regexp.MustCompile(`(?i)escalat(?:or|ion)(?:\s+rate)?(?:\s+of)?[:\s]+([\d.]+)\s*%`)
	termYearsPattern    = regexp.MustCompile(`(?i)term\s+of\s+([\d]+)\s+years`)
	countyPattern       = regexp.MustCompile(`(?i)county\s+of\s+([A-Z][A-Za-z ]+?)[,;\n]`)
	parcelPattern       = regexp.MustCompile(`(?i)parcel\s+(?:no\.?|number|id)[:\s]+([A-Z0-9-]+)`)
)

// leaseExtractor pulls the core economics and parties from lease agreements.
type leaseExtractor struct{}

func (e *leaseExtractor) Category() classify.Category {
	return classify.CategoryLease
}

func (e *leaseExtractor) CriticalFields() []string {
	return []string{"lessor", "lessee", "totalAcres", "rent"}
}

func (e *leaseExtractor) Extract(text string) FieldMap {
	fields := FieldMap{
		"lessor":     stringField(lessorPattern, text),
		"lessee":     stringField(lesseePattern, text),
		"totalAcres": floatField(acresPattern, text),
		"rent": FieldMap{
			"annualAmount":     floatField(annualRentPattern, text),
			"signingBonus":     floatField(signingBonusPattern, text),
			"escalatorPercent": floatField(escalatorPattern, text),
		},
		"termYears":     floatField(termYearsPattern, text),
		"county":        stringField(countyPattern, text),
		"parcelNumbers": nil,
	}

	if parcels := parcelPattern.FindAllStringSubmatch(text, -1); len(parcels) > 0 {
		ids := make([]string, 0, len(parcels))
		for _, m := range parcels {
			ids = append(ids, m[1])
		}
		fields["parcelNumbers"] = ids
	}

	return fields
}
