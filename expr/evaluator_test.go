package expr

import (
	"testing"

	"github.com/bittoy/ruleflow/ruletypes"
)

func TestEvaluate_Arithmetic(t *testing.T) {
	e := NewEvaluator()
	facts := ruletypes.NewFactContext(map[string]any{"baseAmount": 100000.0, "finalDiscount": 0.18})

	out, err := e.Evaluate("#baseAmount * (1 - #finalDiscount)", facts, ExpectNumber)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got, want := out.(float64), 82000.0; got != want {
		t.Fatalf("Evaluate() = %v, want %v", got, want)
	}
}

func TestEvaluate_UndefinedVariable(t *testing.T) {
	e := NewEvaluator()
	facts := ruletypes.NewFactContext(map[string]any{"a": 1})

	_, err := e.Evaluate("#b > 0", facts, ExpectBool)
	if err == nil {
		t.Fatal("Evaluate() expected an error for undefined variable")
	}
	if err.Kind != ruletypes.UndefinedVariable {
		t.Fatalf("Evaluate() error kind = %v, want %v", err.Kind, ruletypes.UndefinedVariable)
	}
}

func TestEvaluateWithResult_Variants(t *testing.T) {
	e := NewEvaluator()
	facts := ruletypes.NewFactContext(map[string]any{"score": 85})

	tests := []struct {
		name    string
		expr    string
		variant ruletypes.ResultVariant
	}{
		{"true", "#score > 50", ruletypes.VariantMatch},
		{"false", "#score > 500", ruletypes.VariantNoMatch},
		{"value", "#score", ruletypes.VariantMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.EvaluateWithResult("r1", tt.expr, facts)
			if result.Variant != tt.variant {
				t.Fatalf("EvaluateWithResult() variant = %v, want %v", result.Variant, tt.variant)
			}
		})
	}
}

func TestVariableNames(t *testing.T) {
	names := VariableNames("#customerType == \"PREMIUM\" && #transactionAmount > 100000")
	if len(names) != 2 || names[0] != "customerType" || names[1] != "transactionAmount" {
		t.Fatalf("VariableNames() = %v", names)
	}
}
