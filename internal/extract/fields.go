package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// matchString returns the first capture group of re in text, trimmed,
// or "" when there is no match.
func matchString(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil || len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// matchFloat parses the first capture group of re as a float, stripping
// comma grouping. Returns (0, false) when absent or unparseable.
func matchFloat(re *regexp.Regexp, text string) (float64, bool) {
	raw := matchString(re, text)
	if raw == "" {
		return 0, false
	}

	raw = strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// stringField returns the first capture of re, or nil when text has no
// match. Extractors assign the result directly so missing fields are
// serialized as explicit nulls.
func stringField(re *regexp.Regexp, text string) any {
	if v := matchString(re, text); v != "" {
		return v
	}
	return nil
}

// floatField returns the first capture of re as a float64, or nil when
// absent or unparseable.
func floatField(re *regexp.Regexp, text string) any {
	if v, ok := matchFloat(re, text); ok {
		return v
	}
	return nil
}

var moneyPattern = regexp.MustCompile(`\$\s*([\d,]+(?:\.\d{1,2})?)`)

// matchAmounts collects every dollar amount in text as floats.
func matchAmounts(text string) []float64 {
	var amounts []float64
	for _, m := range moneyPattern.FindAllStringSubmatch(text, -1) {
		raw := strings.ReplaceAll(m[1], ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			amounts = append(amounts, v)
		}
	}
	return amounts
}
