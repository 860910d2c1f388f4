package extract

// Score computes extraction confidence as the fraction of critical fields
// present in data. A field counts as present when its value is non-nil and,
// for strings, slices, and nested maps, non-empty. An empty critical list
// scores 1 since there is nothing to miss.
func Score(data FieldMap, critical []string) float64 {
	if len(critical) == 0 {
		return 1
	}

	present := 0
	for _, field := range critical {
		if fieldPresent(data[field]) {
			present++
		}
	}

	return float64(present) / float64(len(critical))
}

func fieldPresent(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case []string:
		return len(v) > 0
	case []float64:
		return len(v) > 0
	case []any:
		return len(v) > 0
	case FieldMap:
		return nestedPresent(map[string]any(v))
	case map[string]any:
		return nestedPresent(v)
	default:
		return true
	}
}

// nestedPresent reports whether a grouped field has at least one populated
// immediate sub-value.
func nestedPresent(m map[string]any) bool {
	for _, v := range m {
		if v != nil {
			return true
		}
	}
	return false
}
