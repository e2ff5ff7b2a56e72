package ruletypes

import "fmt"

// Operator composes the rules within a RuleGroup.
type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

// RuleGroup is an ordered collection of rules combined by Operator.
// Evaluation short-circuits: AND stops at the first non-match, OR stops at
// the first match, per spec.md §3.
type RuleGroup struct {
	id          string
	name        string
	description string
	operator    Operator
	priority    int
	rules       []Rule
	metadata    Metadata
}

func (g RuleGroup) ID() string          { return g.id }
func (g RuleGroup) Name() string        { return g.name }
func (g RuleGroup) Description() string { return g.description }
func (g RuleGroup) Operator() Operator  { return g.operator }
func (g RuleGroup) Priority() int       { return g.priority }
func (g RuleGroup) Metadata() Metadata  { return g.metadata }

// Rules returns the group's rules in declared (insertion) order. A copy is
// returned so callers cannot mutate the group's internal ordering.
func (g RuleGroup) Rules() []Rule {
	return append([]Rule(nil), g.rules...)
}

// RuleGroupBuilder builds a RuleGroup, requiring non-empty name and
// description and defaulting Operator to AND, per spec.md §4.2.
type RuleGroupBuilder struct {
	g RuleGroup
}

// NewRuleGroupBuilder starts a RuleGroupBuilder for the group identified by id.
func NewRuleGroupBuilder(id string) *RuleGroupBuilder {
	return &RuleGroupBuilder{g: RuleGroup{
		id:       id,
		operator: OperatorAnd,
		metadata: NewMetadataBuilder().Build(),
	}}
}

func (b *RuleGroupBuilder) Name(name string) *RuleGroupBuilder {
	b.g.name = name
	return b
}
func (b *RuleGroupBuilder) Description(desc string) *RuleGroupBuilder {
	b.g.description = desc
	return b
}
func (b *RuleGroupBuilder) Operator(op Operator) *RuleGroupBuilder {
	b.g.operator = op
	return b
}
func (b *RuleGroupBuilder) Priority(p int) *RuleGroupBuilder {
	b.g.priority = p
	return b
}
func (b *RuleGroupBuilder) Metadata(m Metadata) *RuleGroupBuilder {
	b.g.metadata = m
	return b
}

// AddRule appends a rule in declared order. Rules execute in this
// insertion order regardless of category, for deterministic short-circuit
// behavior (spec.md §4.2).
func (b *RuleGroupBuilder) AddRule(r Rule) *RuleGroupBuilder {
	b.g.rules = append(b.g.rules, r)
	return b
}

// Build validates and returns the RuleGroup.
func (b *RuleGroupBuilder) Build() (RuleGroup, error) {
	if b.g.id == "" {
		return RuleGroup{}, fmt.Errorf("rule group: id must not be empty")
	}
	if b.g.name == "" {
		return RuleGroup{}, fmt.Errorf("rule group %q: name must not be empty", b.g.id)
	}
	if b.g.description == "" {
		return RuleGroup{}, fmt.Errorf("rule group %q: description must not be empty", b.g.id)
	}
	if b.g.operator == "" {
		b.g.operator = OperatorAnd
	}
	b.g.rules = append([]Rule(nil), b.g.rules...)
	return b.g, nil
}
