package ruleengine

import "github.com/bittoy/ruleflow/ruletypes"

// RuleSet resolves the rule and rule-group identifiers a RuleChain's
// configuration refers to by name, so chain execution never needs to carry
// the full Rule/RuleGroup value inline. Implementations are typically a
// thin lookup over a loaded ConfigurationDocument (spec.md §6).
type RuleSet interface {
	Rule(id string) (ruletypes.Rule, bool)
	RuleGroup(id string) (ruletypes.RuleGroup, bool)
}

// StaticRuleSet is an in-memory RuleSet backed by two maps, built once from
// a ConfigurationDocument and shared read-only across concurrent chain runs.
type StaticRuleSet struct {
	rules  map[string]ruletypes.Rule
	groups map[string]ruletypes.RuleGroup
}

// NewStaticRuleSet indexes rules and groups by ID.
func NewStaticRuleSet(rules []ruletypes.Rule, groups []ruletypes.RuleGroup) *StaticRuleSet {
	rs := &StaticRuleSet{
		rules:  make(map[string]ruletypes.Rule, len(rules)),
		groups: make(map[string]ruletypes.RuleGroup, len(groups)),
	}
	for _, r := range rules {
		rs.rules[r.ID()] = r
	}
	for _, g := range groups {
		rs.groups[g.ID()] = g
	}
	return rs
}

func (rs *StaticRuleSet) Rule(id string) (ruletypes.Rule, bool) {
	r, ok := rs.rules[id]
	return r, ok
}

func (rs *StaticRuleSet) RuleGroup(id string) (ruletypes.RuleGroup, bool) {
	g, ok := rs.groups[id]
	return g, ok
}
