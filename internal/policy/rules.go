package policy

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Rule is an operator-defined review trigger. Expression is an expr-lang
// boolean expression over the evaluation environment; Reason is appended to
// the decision when the expression is true.
type Rule struct {
	Name       string `json:"name" toml:"name"`
	Expression string `json:"expression" toml:"expression"`
	Reason     string `json:"reason" toml:"reason"`
}

// Evaluator compiles and runs rule expressions, caching compiled programs
// keyed by expression text.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// NewEvaluator creates an Evaluator with an empty program cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		programs: make(map[string]*vm.Program),
	}
}

// Evaluate runs rule against env, compiling on first use. Undefined
// variables are allowed so rules can reference fields absent from a given
// document without erroring.
func (e *Evaluator) Evaluate(rule Rule, env map[string]any) (bool, error) {
	program, err := e.compile(rule.Expression)
	if err != nil {
		return false, fmt.Errorf("compile rule %q: %w", rule.Name, err)
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("run rule %q: %w", rule.Name, err)
	}

	matched, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("rule %q returned %T, want bool", rule.Name, output)
	}
	return matched, nil
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(expression,
		expr.AllowUndefinedVariables(),
		expr.AsBool())
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[expression] = program
	e.mu.Unlock()

	return program, nil
}

// ruleEnv builds the expression environment for one evaluation.
func ruleEnv(input Input) map[string]any {
	return map[string]any{
		"category":   string(input.Category),
		"confidence": input.Confidence,
		"data":       map[string]any(input.Data),
	}
}
