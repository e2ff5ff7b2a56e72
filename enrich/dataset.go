// Package enrich implements the lookup/enrichment service (C9):
// dataset-backed key lookup with default-value fallback, and a generic
// field transformer applied to a copy of the input record. There is no
// direct teacher analogue; this package is grounded on spec.md §4.9 while
// reusing the teacher's expr_assign_node.go idiom (apply a small ordered
// list of field mutations to a message) for the transformer's action list.
package enrich

import (
	"fmt"
	"sync"

	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/internal/maps"
)

// Dataset is an in-memory, key-indexed table of records, built once from an
// ordered record sequence and read concurrently thereafter.
//
// Invariants (spec.md §4.9): keys are unique within a dataset (the last
// record for a duplicate key at load wins, logged as a warning); records
// missing the key field are skipped at load, also logged; a lookup with an
// empty key falls through to defaults.
type Dataset struct {
	keyField string
	records  map[string]map[string]any
	ordered  []map[string]any
	defaults map[string]any

	mu    sync.Mutex
	hits  int64
	misses int64
}

// NewDataset indexes records by keyField, applying the load-time invariants
// documented on Dataset. defaults is copied so later mutation by the
// caller cannot affect lookups.
func NewDataset(keyField string, records []map[string]any, defaults map[string]any, log config.Logger) *Dataset {
	if log == nil {
		log = config.NopLogger()
	}
	d := &Dataset{
		keyField: keyField,
		records:  make(map[string]map[string]any, len(records)),
		ordered:  make([]map[string]any, 0, len(records)),
		defaults: maps.Clone(defaults),
	}
	for i, rec := range records {
		keyVal, ok := rec[keyField]
		if !ok {
			log.Warnf("dataset: record %d missing key field %q, skipped", i, keyField)
			continue
		}
		key := fmt.Sprintf("%v", keyVal)
		if _, dup := d.records[key]; dup {
			log.Warnf("dataset: duplicate key %q, record %d overwrites an earlier entry", key, i)
		}
		d.records[key] = maps.Clone(rec)
		d.ordered = append(d.ordered, rec)
	}
	return d
}

// Validate reports whether a record exists for key.
func (d *Dataset) Validate(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.records[key]
	return ok
}

// Lookup returns the record for key, a copy of the dataset's defaults if
// key is empty or absent, or nil if neither is available, per spec.md
// §4.9's lookup contract.
func (d *Dataset) Lookup(key string) map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()

	if key != "" {
		if rec, ok := d.records[key]; ok {
			d.hits++
			return maps.Clone(rec)
		}
	}
	d.misses++
	if len(d.defaults) == 0 {
		return nil
	}
	return maps.Clone(d.defaults)
}

// AllRecords returns every loaded record, in load order.
func (d *Dataset) AllRecords() []map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]map[string]any, len(d.ordered))
	for i, rec := range d.ordered {
		out[i] = maps.Clone(rec)
	}
	return out
}

// Statistics is a dataset's running lookup counters.
type Statistics struct {
	Hits   int64
	Misses int64
	Size   int
}

// Statistics returns the dataset's current lookup counters and size.
func (d *Dataset) Statistics() Statistics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Statistics{Hits: d.hits, Misses: d.misses, Size: len(d.records)}
}
