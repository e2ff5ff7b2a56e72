package ruletypes

import "fmt"

// ExpressionKind selects which evaluator backend a Rule's Condition is
// written in. Defaults to KindExpr. See SPEC_FULL.md §4.1 for the rationale
// behind the scripted kind.
type ExpressionKind string

const (
	KindExpr   ExpressionKind = "expr"
	KindScript ExpressionKind = "script"
)

// Rule is an immutable, pure function from a FactContext to a match
// outcome. Build one with NewRuleBuilder; the zero value is not usable.
type Rule struct {
	id          string
	name        string
	condition   string
	kind        ExpressionKind
	message     string
	description string
	priority    int
	categories  CategorySet
	metadata    Metadata
}

func (r Rule) ID() string                { return r.id }
func (r Rule) Name() string              { return r.name }
func (r Rule) Condition() string         { return r.condition }
func (r Rule) Kind() ExpressionKind      { return r.kind }
func (r Rule) Message() string           { return r.message }
func (r Rule) Description() string       { return r.description }
func (r Rule) Priority() int             { return r.priority }
func (r Rule) Categories() CategorySet   { return r.categories }
func (r Rule) Metadata() Metadata        { return r.metadata }

// RuleBuilder builds a Rule, rejecting empty name/condition/message at
// Build time per spec.md §4.2.
type RuleBuilder struct {
	r   Rule
	err error
}

// NewRuleBuilder starts a RuleBuilder for the rule identified by id.
func NewRuleBuilder(id string) *RuleBuilder {
	return &RuleBuilder{r: Rule{
		id:         id,
		kind:       KindExpr,
		categories: NewCategorySet(),
		metadata:   NewMetadataBuilder().Build(),
	}}
}

func (b *RuleBuilder) Name(name string) *RuleBuilder            { b.r.name = name; return b }
func (b *RuleBuilder) Condition(expr string) *RuleBuilder        { b.r.condition = expr; return b }
func (b *RuleBuilder) Kind(kind ExpressionKind) *RuleBuilder     { b.r.kind = kind; return b }
func (b *RuleBuilder) Message(msg string) *RuleBuilder           { b.r.message = msg; return b }
func (b *RuleBuilder) Description(desc string) *RuleBuilder      { b.r.description = desc; return b }
func (b *RuleBuilder) Priority(p int) *RuleBuilder               { b.r.priority = p; return b }
func (b *RuleBuilder) Metadata(m Metadata) *RuleBuilder          { b.r.metadata = m; return b }
func (b *RuleBuilder) Categories(cats ...Category) *RuleBuilder {
	b.r.categories = NewCategorySet(cats...)
	return b
}

// Build validates and returns the Rule, enforcing invariant (a) from
// spec.md §3: non-empty id, name, condition, message.
func (b *RuleBuilder) Build() (Rule, error) {
	if b.err != nil {
		return Rule{}, b.err
	}
	if b.r.id == "" {
		return Rule{}, fmt.Errorf("rule: id must not be empty")
	}
	if b.r.name == "" {
		return Rule{}, fmt.Errorf("rule %q: name must not be empty", b.r.id)
	}
	if b.r.condition == "" {
		return Rule{}, fmt.Errorf("rule %q: condition must not be empty", b.r.id)
	}
	if b.r.message == "" {
		return Rule{}, fmt.Errorf("rule %q: message must not be empty", b.r.id)
	}
	if b.r.kind == "" {
		b.r.kind = KindExpr
	}
	return b.r, nil
}

// MustBuild panics if Build fails. Reserved for tests and static fixtures
// where a build failure indicates a programmer error, not a runtime one.
func (b *RuleBuilder) MustBuild() Rule {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}
