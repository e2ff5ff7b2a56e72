package ruletypes

import "time"

// ResultVariant is the discriminant of a RuleResult, per spec.md §3.
type ResultVariant string

const (
	VariantMatch    ResultVariant = "match"
	VariantNoMatch  ResultVariant = "no-match"
	VariantError    ResultVariant = "error"
	VariantNoRules  ResultVariant = "no-rules"
)

// Metrics captures per-evaluation timing and outcome, per spec.md §4.4.
type Metrics struct {
	RuleName     string
	Expression   string
	StartTime    time.Time
	EndTime      time.Time
	ElapsedNanos int64
	Outcome      string // "ok" or "error"
}

// RuleResult is the discriminated outcome of evaluating a Rule, RuleGroup,
// or a single stage of a RuleChain, per spec.md §3.
type RuleResult struct {
	Variant    ResultVariant
	RuleName   string
	Message    string
	Value      any
	Metrics    *Metrics
	Enriched   map[string]any
	Failures   []string
	Triggered  bool
	Err        *Error
}

// Matched reports whether the result variant is VariantMatch.
func (r RuleResult) Matched() bool { return r.Variant == VariantMatch }

// IsError reports whether the result variant is VariantError.
func (r RuleResult) IsError() bool { return r.Variant == VariantError }

// NoMatch builds a no-match RuleResult for ruleName.
func NoMatch(ruleName string) RuleResult {
	return RuleResult{Variant: VariantNoMatch, RuleName: ruleName}
}

// Match builds a match RuleResult carrying message as the result payload.
func Match(ruleName, message string) RuleResult {
	return RuleResult{Variant: VariantMatch, RuleName: ruleName, Message: message, Triggered: true}
}

// MatchValue builds a match RuleResult carrying both the stringified
// message and the raw evaluated value, so a rule chain can bind a later
// stage's expression directly to an earlier stage's numeric (or any
// non-bool) result instead of re-parsing its string form.
func MatchValue(ruleName, message string, value any) RuleResult {
	r := Match(ruleName, message)
	r.Value = value
	return r
}

// ErrorResult builds an error RuleResult for ruleName wrapping err.
func ErrorResult(ruleName string, err *Error) RuleResult {
	return RuleResult{Variant: VariantError, RuleName: ruleName, Message: err.Error(), Err: err, Failures: []string{err.Error()}}
}

// NoRules builds the result returned when an empty rule list is evaluated,
// per spec.md §8 boundary behavior.
func NoRules() RuleResult {
	return RuleResult{Variant: VariantNoRules}
}

// WithMetrics returns a copy of r carrying m, attaching pre-recovery metrics
// when none are already present (spec.md §4.3 recovery contract).
func (r RuleResult) WithMetrics(m *Metrics) RuleResult {
	if r.Metrics == nil {
		r.Metrics = m
	}
	return r
}

// WithEnriched returns a copy of r with its Enriched map merged with data.
func (r RuleResult) WithEnriched(data map[string]any) RuleResult {
	if len(data) == 0 {
		return r
	}
	merged := make(map[string]any, len(r.Enriched)+len(data))
	for k, v := range r.Enriched {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	r.Enriched = merged
	return r
}
