package enrich

import "testing"

func TestDataset_LookupHitAndDefault(t *testing.T) {
	records := []map[string]any{
		{"id": "C1", "tier": "GOLD"},
		{"id": "C2", "tier": "SILVER"},
	}
	ds := NewDataset("id", records, map[string]any{"tier": "STANDARD"}, nil)

	rec := ds.Lookup("C1")
	if rec["tier"] != "GOLD" {
		t.Fatalf("Lookup(C1) = %v, want tier=GOLD", rec)
	}

	missing := ds.Lookup("C99")
	if missing["tier"] != "STANDARD" {
		t.Fatalf("Lookup(C99) = %v, want defaults", missing)
	}

	if ds.Lookup("") == nil || ds.Lookup("")["tier"] != "STANDARD" {
		t.Fatal("Lookup(\"\") should fall through to defaults")
	}
}

func TestDataset_SkipsRecordsMissingKeyField(t *testing.T) {
	records := []map[string]any{
		{"id": "C1"},
		{"tier": "no-id-here"},
	}
	ds := NewDataset("id", records, nil, nil)
	if ds.Statistics().Size != 1 {
		t.Fatalf("Size = %d, want 1 (record missing key field skipped)", ds.Statistics().Size)
	}
}

func TestDataset_Validate(t *testing.T) {
	ds := NewDataset("id", []map[string]any{{"id": "C1"}}, nil, nil)
	if !ds.Validate("C1") {
		t.Fatal("Validate(C1) = false, want true")
	}
	if ds.Validate("C2") {
		t.Fatal("Validate(C2) = true, want false")
	}
}
