// Package policy decides whether a processed document needs human review.
// Built-in checks cover legal categories, extraction confidence, and financial
// commitments; operators can layer additional expression rules on top through
// configuration.
package policy

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/acrewise/acrewise/internal/classify"
	"github.com/acrewise/acrewise/internal/extract"
)

// Config holds the review thresholds and rule set.
type Config struct {
	// ConfidenceThreshold is the minimum extraction confidence that passes
	// without review, in [0,1].
	ConfidenceThreshold float64

	// FinancialLimit is the dollar amount above which any financial field
	// triggers review.
	FinancialLimit float64

	// LegalCategories always require attorney review.
	LegalCategories []classify.Category

	// FinancialFields are dotted paths into extracted data checked against
	// FinancialLimit, e.g. "rent.signingBonus".
	FinancialFields []string

	// Rules are operator-defined expression rules evaluated after the
	// built-in checks.
	Rules []Rule
}

// DefaultConfig returns the standard review policy.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.9,
		FinancialLimit:      10000,
		LegalCategories: []classify.Category{
			classify.CategoryLease,
			classify.CategoryOption,
			classify.CategoryEasement,
			classify.CategoryPPA,
		},
		FinancialFields: []string{
			"rent.signingBonus",
			"rent.annualAmount",
			"compensation.amount",
			"optionFee",
			"purchasePrice",
		},
	}
}

// Input is the processed document state the policy evaluates.
type Input struct {
	Category   classify.Category
	Confidence float64
	Data       extract.FieldMap
}

// Decision is the policy outcome. The hold flags record which checks fired
// so callers can derive review urgency without re-parsing reasons.
type Decision struct {
	RequiresReview bool     `json:"requiresReview"`
	Reasons        []string `json:"reasons"`
	LegalHold      bool     `json:"legalHold"`
	FinancialHold  bool     `json:"financialHold"`
	LowConfidence  bool     `json:"lowConfidence"`
}

// Policy evaluates review decisions against a fixed configuration.
type Policy struct {
	config    Config
	evaluator *Evaluator
	logger    *slog.Logger
}

// New creates a Policy. Expression rules are compiled lazily on first
// evaluation; a rule that fails to compile or evaluate is logged and skipped
// rather than blocking the document.
func New(config Config, logger *slog.Logger) *Policy {
	return &Policy{
		config:    config,
		evaluator: NewEvaluator(),
		logger:    logger.With("system", "policy"),
	}
}

// Evaluate runs every check against input. Each check that fires appends
// exactly one reason; the decision requires review when any reason exists.
func (p *Policy) Evaluate(input Input) Decision {
	var decision Decision

	if p.isLegalCategory(input.Category) {
		decision.LegalHold = true
		decision.Reasons = append(decision.Reasons, "Legal document requires attorney review")
	}

	if input.Confidence < p.config.ConfidenceThreshold {
		decision.LowConfidence = true
		decision.Reasons = append(decision.Reasons, fmt.Sprintf(
			"Extraction confidence (%.0f%%) below %.0f%% threshold",
			input.Confidence*100, p.config.ConfidenceThreshold*100))
	}

	if p.exceedsFinancialLimit(input.Data) {
		decision.FinancialHold = true
		decision.Reasons = append(decision.Reasons, fmt.Sprintf(
			"Financial commitment > $%s requires approval",
			formatAmount(p.config.FinancialLimit)))
	}

	for _, rule := range p.config.Rules {
		matched, err := p.evaluator.Evaluate(rule, ruleEnv(input))
		if err != nil {
			p.logger.Warn("review rule failed, skipping",
				"rule", rule.Name,
				"error", err)
			continue
		}
		if matched {
			decision.Reasons = append(decision.Reasons, rule.Reason)
		}
	}

	decision.RequiresReview = len(decision.Reasons) > 0
	return decision
}

func (p *Policy) isLegalCategory(category classify.Category) bool {
	for _, c := range p.config.LegalCategories {
		if c == category {
			return true
		}
	}
	return false
}

func (p *Policy) exceedsFinancialLimit(data extract.FieldMap) bool {
	for _, path := range p.config.FinancialFields {
		if amount, ok := lookupAmount(data, path); ok && amount > p.config.FinancialLimit {
			return true
		}
	}
	return false
}

// lookupAmount resolves a dotted path into nested field maps and returns the
// value as a float when it is numeric.
func lookupAmount(data extract.FieldMap, path string) (float64, bool) {
	parts := strings.Split(path, ".")
	var current any = data

	for _, part := range parts {
		switch m := current.(type) {
		case extract.FieldMap:
			current = m[part]
		case map[string]any:
			current = m[part]
		default:
			return 0, false
		}
	}

	switch v := current.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// formatAmount renders a dollar amount with comma grouping and no cents,
// e.g. 10000 -> "10,000".
func formatAmount(amount float64) string {
	whole := fmt.Sprintf("%.0f", amount)

	negative := strings.HasPrefix(whole, "-")
	if negative {
		whole = whole[1:]
	}

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	if negative {
		return "-" + b.String()
	}
	return b.String()
}
