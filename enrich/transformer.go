package enrich

import (
	"encoding/json"

	"github.com/fatih/structs"

	"github.com/bittoy/ruleflow/expr"
	"github.com/bittoy/ruleflow/internal/maps"
	"github.com/bittoy/ruleflow/ruletypes"
)

// Cloner lets a caller-supplied input type provide its own cheap copy
// instead of falling back to reflection/serialization, per spec.md §4.9's
// copy-strategy list, step (i).
type Cloner interface {
	Clone() map[string]any
}

// FieldAction sets Field to Value on the record being transformed.
type FieldAction struct {
	Field string
	Value any
}

// TransformerRule evaluates Condition against the record-in-progress and
// fires OnMatch's actions if it matched, or OnNoMatch's otherwise.
type TransformerRule struct {
	Name      string
	Condition string
	OnMatch   []FieldAction
	OnNoMatch []FieldAction
}

// Transformer applies an ordered sequence of TransformerRules to a copy of
// an input record, never mutating the caller's original.
type Transformer struct {
	evaluator *expr.Evaluator
	rules     []TransformerRule
}

// NewTransformer builds a Transformer bound to evaluator (shared with the
// rest of the engine so compiled-program caching is shared too) and rules,
// applied in declared order.
func NewTransformer(evaluator *expr.Evaluator, rules []TransformerRule) *Transformer {
	return &Transformer{evaluator: evaluator, rules: rules}
}

// Apply runs every rule against a copy of input, obtained via CopyOf, and
// returns the transformed copy. The original input is never modified.
func (t *Transformer) Apply(input any) (map[string]any, error) {
	record, err := CopyOf(input)
	if err != nil {
		return nil, err
	}

	for _, rule := range t.rules {
		facts := ruletypes.NewFactContext(record)
		matched := false
		if rule.Condition != "" {
			value, evalErr := t.evaluator.Evaluate(rule.Condition, facts, expr.ExpectAny)
			if evalErr != nil {
				return nil, evalErr
			}
			if b, ok := value.(bool); ok {
				matched = b
			} else {
				matched = value != nil
			}
		}

		actions := rule.OnNoMatch
		if matched {
			actions = rule.OnMatch
		}
		for _, action := range actions {
			record[action.Field] = action.Value
		}
	}
	return record, nil
}

// CopyOf produces an independent copy of input using, in order: (i) input's
// own Clone method if it implements Cloner (a map[string]any is cloned
// directly); (ii) fatih/structs' struct-to-map conversion, keyed by the
// fields' json tag names, if input is a struct or struct pointer (a copy
// constructor in spirit, not a field-by-field reflection copy loop); (iii)
// a JSON marshal/unmarshal round trip as the last resort. Per spec.md
// §4.9, reflection-based field-by-field copying is deliberately avoided at
// every step.
func CopyOf(input any) (map[string]any, error) {
	switch v := input.(type) {
	case nil:
		return map[string]any{}, nil
	case Cloner:
		return v.Clone(), nil
	case map[string]any:
		return maps.Clone(v), nil
	}

	if structs.IsStruct(input) {
		s := structs.New(input)
		s.TagName = "json"
		return s.Map(), nil
	}

	encoded, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	return out, nil
}
