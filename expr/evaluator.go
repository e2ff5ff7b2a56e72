// Package expr implements the expression evaluator (C1): compiling and
// running boolean/arithmetic expressions against a fact context. It is
// grounded on the teacher's expr-lang-based rule nodes
// (components/transform/expr_filter_node.go, expr_switch_node.go):
// compile once to a *vm.Program, run repeatedly against a map[string]any
// environment built from the caller's facts.
package expr

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bittoy/ruleflow/ruletypes"
)

// sigilPattern matches fact references of the form #name, #name.field, or
// #name[0], the sigil convention spec.md §4.1 defines for variable lookup.
var sigilPattern = regexp.MustCompile(`#([A-Za-z_][A-Za-z0-9_]*)`)

// ExpectedType constrains the result type an Evaluate call requires.
type ExpectedType string

const (
	ExpectAny     ExpectedType = ""
	ExpectBool    ExpectedType = "bool"
	ExpectString  ExpectedType = "string"
	ExpectNumber  ExpectedType = "number"
	ExpectMap     ExpectedType = "map"
)

// Evaluator compiles and evaluates expressions against a FactContext. It is
// stateless beyond its compiled-program cache and is safe for concurrent
// use by multiple goroutines (spec.md §5).
type Evaluator struct {
	mu        sync.RWMutex
	cache     map[string]*vm.Program
	functions map[string]any
}

// NewEvaluator returns a ready-to-use Evaluator with an empty program cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: map[string]*vm.Program{}}
}

// SetFunctions exposes fns (typically user-defined functions registered on
// config.Config, including enrichment lookups backed by C9/C7/C6) to every
// expression evaluated afterwards, callable by name from expr-lang bodies
// (e.g. "lookup('customers', #customerId)").
func (e *Evaluator) SetFunctions(fns map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.functions = fns
}

// VariableNames extracts every sigil-prefixed token referenced by
// expression, used by the rule engine's parameter-extraction pre-check
// (spec.md §4.5 step 1).
func VariableNames(expression string) []string {
	matches := sigilPattern.FindAllStringSubmatch(expression, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// compile returns a cached *vm.Program for expression, compiling and
// caching it on first use. expr-lang programs are immutable once compiled
// and safe to run concurrently, so the cache only needs to serialize
// writes, not reads.
func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	p, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return p, nil
	}

	program, err := expr.Compile(rewriteSigils(expression), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = program
	e.mu.Unlock()
	return program, nil
}

// rewriteSigils turns #name references into plain Go-expr identifiers.
// expr-lang identifiers cannot start with '#', so the sigil is stripped
// before compilation; VariableNames performs the matching lookup used for
// parameter extraction and error messages against the original text.
func rewriteSigils(expression string) string {
	return sigilPattern.ReplaceAllString(expression, "$1")
}

// buildEnv turns a FactContext into the map[string]any expr-lang runs
// against, keyed by the same names VariableNames/rewriteSigils expose.
func (e *Evaluator) buildEnv(facts *ruletypes.FactContext) map[string]any {
	var env map[string]any
	if facts == nil {
		env = map[string]any{}
	} else {
		env = facts.Snapshot()
	}
	e.mu.RLock()
	for name, fn := range e.functions {
		if _, exists := env[name]; !exists {
			env[name] = fn
		}
	}
	e.mu.RUnlock()
	return env
}

// Evaluate compiles (or reuses a cached compile of) expression and runs it
// against facts, type-checking the result against expected.
func (e *Evaluator) Evaluate(expression string, facts *ruletypes.FactContext, expected ExpectedType) (any, *ruletypes.Error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, ruletypes.WrapError(ruletypes.ParseError, err, "failed to parse expression %q", expression)
	}

	env := e.buildEnv(facts)
	for _, name := range VariableNames(expression) {
		if _, ok := env[name]; !ok {
			return nil, ruletypes.NewError(ruletypes.UndefinedVariable, "variable %q referenced by %q is not defined", name, expression)
		}
	}

	out, runErr := vm.Run(program, env)
	if runErr != nil {
		return nil, ruletypes.WrapError(ruletypes.ParseError, runErr, "failed to evaluate expression %q", expression)
	}

	if typeErr := checkType(out, expected); typeErr != nil {
		return nil, ruletypes.WrapError(ruletypes.TypeError, typeErr, "expression %q produced unexpected type", expression)
	}
	return out, nil
}

func checkType(value any, expected ExpectedType) error {
	if expected == ExpectAny || value == nil {
		return nil
	}
	switch expected {
	case ExpectBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
	case ExpectString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case ExpectNumber:
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case ExpectMap:
		if reflect.ValueOf(value).Kind() != reflect.Map {
			return fmt.Errorf("expected map, got %T", value)
		}
	}
	return nil
}

// EvaluateWithResult evaluates expression and maps the outcome into a
// RuleResult following spec.md §4.1's contract: nil -> no-match, true ->
// match, false -> no-match, any other non-nil value -> match with that
// value rendered as the message, any error -> error.
func (e *Evaluator) EvaluateWithResult(ruleName, expression string, facts *ruletypes.FactContext) ruletypes.RuleResult {
	value, err := e.Evaluate(expression, facts, ExpectAny)
	if err != nil {
		return ruletypes.ErrorResult(ruleName, err)
	}
	if value == nil {
		return ruletypes.NoMatch(ruleName)
	}
	if b, ok := value.(bool); ok {
		if b {
			return ruletypes.Match(ruleName, "")
		}
		return ruletypes.NoMatch(ruleName)
	}
	return ruletypes.MatchValue(ruleName, stringify(value), value)
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return strings.TrimSpace(fmt.Sprintf("%v", value))
}
