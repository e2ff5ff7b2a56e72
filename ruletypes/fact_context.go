package ruletypes

import "sync"

// FactContext is the mutable fact set evaluated rules and stages read from
// and append to, per spec.md §3. A FactContext is created fresh per
// top-level evaluation; stages append their outputs under a
// stage-prefixed key so later stages can reference them.
//
// The underlying map is guarded by a mutex, so concurrent reads/appends to
// one FactContext are safe. Rule evaluation runs concurrently across
// independent top-level evaluations (spec.md §5); within a single scenario
// run, stages and the rules of a rule group are evaluated sequentially.
type FactContext struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewFactContext builds a FactContext from an initial fact map. A nil input
// is treated as empty.
func NewFactContext(initial map[string]any) *FactContext {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &FactContext{values: values}
}

// Get returns the value for name and whether it is present.
func (fc *FactContext) Get(name string) (any, bool) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	v, ok := fc.values[name]
	return v, ok
}

// Set stores value under name.
func (fc *FactContext) Set(name string, value any) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.values[name] = value
}

// SetPrefixed stores value under "<prefix>_<name>", the stage-output
// namespacing convention from spec.md §3/§4.10.
func (fc *FactContext) SetPrefixed(prefix, name string, value any) {
	fc.Set(prefix+"_"+name, value)
}

// Has reports whether name is present.
func (fc *FactContext) Has(name string) bool {
	_, ok := fc.Get(name)
	return ok
}

// Snapshot returns an independent copy of the current facts, suitable for
// handing to the expression evaluator without exposing the live map.
func (fc *FactContext) Snapshot() map[string]any {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	out := make(map[string]any, len(fc.values))
	for k, v := range fc.values {
		out[k] = v
	}
	return out
}

// Merge copies every entry of other into fc, overwriting on key collision.
func (fc *FactContext) Merge(other map[string]any) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for k, v := range other {
		fc.values[k] = v
	}
}

// Len reports the number of facts currently stored.
func (fc *FactContext) Len() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.values)
}
