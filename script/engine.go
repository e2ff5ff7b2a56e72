// Package script provides the scripted rule kind: JavaScript expressions
// executed through goja, grounded on the teacher's utils/js package
// (GojaJsEngine) and its js_filter_node.go/js_switch_node.go callers.
// Scripted rules are the escape hatch spec.md's evaluator (C1) needs for
// logic expr-lang cannot express (SPEC_FULL.md §4.1).
package script

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/ruletypes"
)

// Engine runs JavaScript rule bodies. Every call gets a fresh goja runtime:
// goja.Runtime is not safe for concurrent use, and rule evaluation must be
// safe for concurrent callers (spec.md §5), so Engine trades a little
// per-call setup cost for simplicity and safety rather than pooling
// runtimes behind a lock, which the teacher's GojaJsEngine does by binding
// one runtime to one precompiled program.
type Engine struct {
	mu      sync.RWMutex
	source  map[string]*goja.Program
	globals config.Properties
}

// NewEngine returns a ready-to-use Engine. globals are exposed to every
// script invocation under the "global" identifier, mirroring the teacher's
// GlobalKey convention.
func NewEngine(globals config.Properties) *Engine {
	return &Engine{source: map[string]*goja.Program{}, globals: globals}
}

func (e *Engine) compile(body string) (*goja.Program, error) {
	e.mu.RLock()
	p, ok := e.source[body]
	e.mu.RUnlock()
	if ok {
		return p, nil
	}
	program, err := goja.Compile("rule", fmt.Sprintf("(function(facts, global){ return (%s); })", body), false)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.source[body] = program
	e.mu.Unlock()
	return program, nil
}

// Evaluate runs body as a JavaScript expression with `facts` and `global`
// bound, and returns the raw JS return value.
func (e *Engine) Evaluate(body string, facts *ruletypes.FactContext) (any, error) {
	program, err := e.compile(body)
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(value)
	if !ok {
		return nil, fmt.Errorf("script did not compile to a callable expression")
	}

	res, err := fn(goja.Undefined(), vm.ToValue(buildFacts(facts)), vm.ToValue(map[string]any(e.globals)))
	if err != nil {
		return nil, err
	}
	return res.Export(), nil
}

func buildFacts(facts *ruletypes.FactContext) map[string]any {
	if facts == nil {
		return map[string]any{}
	}
	return facts.Snapshot()
}

// EvaluateWithResult mirrors expr.Evaluator.EvaluateWithResult's outcome
// mapping so scripted and expr-lang rules are interchangeable to callers.
func (e *Engine) EvaluateWithResult(ruleName, body string, facts *ruletypes.FactContext) ruletypes.RuleResult {
	value, err := e.Evaluate(body, facts)
	if err != nil {
		return ruletypes.ErrorResult(ruleName, ruletypes.WrapError(ruletypes.ParseError, err, "script rule %q failed", ruleName))
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
	return ruletypes.MatchValue(ruleName, fmt.Sprintf("%v", value), value)
}
