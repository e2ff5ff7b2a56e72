package enrich

import (
	"testing"

	"github.com/bittoy/ruleflow/expr"
)

func TestTransformer_AppliesMatchAndNoMatchActions(t *testing.T) {
	tr := NewTransformer(expr.NewEvaluator(), []TransformerRule{
		{
			Name:      "tier-flag",
			Condition: `#tier == "GOLD"`,
			OnMatch:   []FieldAction{{Field: "priority", Value: "high"}},
			OnNoMatch: []FieldAction{{Field: "priority", Value: "standard"}},
		},
	})

	out, err := tr.Apply(map[string]any{"tier": "GOLD"})
	if err != nil {
		t.Fatal(err)
	}
	if out["priority"] != "high" {
		t.Fatalf("priority = %v, want high", out["priority"])
	}

	original := map[string]any{"tier": "SILVER"}
	out2, err := tr.Apply(original)
	if err != nil {
		t.Fatal(err)
	}
	if out2["priority"] != "standard" {
		t.Fatalf("priority = %v, want standard", out2["priority"])
	}
	if _, ok := original["priority"]; ok {
		t.Fatal("Apply must not mutate the original input")
	}
}

func TestCopyOf_StructKeyedByJSONTags(t *testing.T) {
	type account struct {
		ID   string `json:"id"`
		Tier string `json:"tier"`
	}
	out, err := CopyOf(account{ID: "A1", Tier: "GOLD"})
	if err != nil {
		t.Fatal(err)
	}
	if out["id"] != "A1" || out["tier"] != "GOLD" {
		t.Fatalf("CopyOf(struct) = %v", out)
	}
}
