package ruletypes

import "time"

// Status is the lifecycle status of a Rule, RuleGroup, or RuleChain.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusRetired  Status = "retired"
	StatusDraft    Status = "draft"
)

// Metadata is an immutable record describing authorship, lifecycle, and
// business context for a rule-model object. Construct one with
// NewMetadata/MetadataBuilder; fields are not exported for direct mutation.
type Metadata struct {
	createdAt        time.Time
	modifiedAt       time.Time
	createdBy        string
	status           Status
	version          string
	businessDomain   string
	businessOwner    string
	sourceSystem     string
	effectiveDate    *time.Time
	expirationDate   *time.Time
	tags             []string
	customProperties map[string]any
}

// MetadataBuilder builds a Metadata value. The zero value is ready to use.
type MetadataBuilder struct {
	m Metadata
}

// NewMetadataBuilder returns a builder seeded with created/modified set to
// now and status active, matching the "always set" invariant (b) in spec.md §3.
func NewMetadataBuilder() *MetadataBuilder {
	now := time.Now().UTC()
	return &MetadataBuilder{m: Metadata{
		createdAt:        now,
		modifiedAt:       now,
		status:           StatusActive,
		tags:             nil,
		customProperties: map[string]any{},
	}}
}

func (b *MetadataBuilder) CreatedAt(t time.Time) *MetadataBuilder  { b.m.createdAt = t; return b }
func (b *MetadataBuilder) ModifiedAt(t time.Time) *MetadataBuilder { b.m.modifiedAt = t; return b }
func (b *MetadataBuilder) CreatedBy(s string) *MetadataBuilder     { b.m.createdBy = s; return b }
func (b *MetadataBuilder) Status(s Status) *MetadataBuilder        { b.m.status = s; return b }
func (b *MetadataBuilder) Version(s string) *MetadataBuilder       { b.m.version = s; return b }
func (b *MetadataBuilder) BusinessDomain(s string) *MetadataBuilder {
	b.m.businessDomain = s
	return b
}
func (b *MetadataBuilder) BusinessOwner(s string) *MetadataBuilder { b.m.businessOwner = s; return b }
func (b *MetadataBuilder) SourceSystem(s string) *MetadataBuilder  { b.m.sourceSystem = s; return b }
func (b *MetadataBuilder) EffectiveDate(t time.Time) *MetadataBuilder {
	b.m.effectiveDate = &t
	return b
}
func (b *MetadataBuilder) ExpirationDate(t time.Time) *MetadataBuilder {
	b.m.expirationDate = &t
	return b
}
func (b *MetadataBuilder) Tags(tags ...string) *MetadataBuilder {
	b.m.tags = append([]string(nil), tags...)
	return b
}
func (b *MetadataBuilder) CustomProperty(key string, value any) *MetadataBuilder {
	if b.m.customProperties == nil {
		b.m.customProperties = map[string]any{}
	}
	b.m.customProperties[key] = value
	return b
}

// Build finalizes the Metadata, enforcing invariant (b): modifiedAt >= createdAt.
func (b *MetadataBuilder) Build() Metadata {
	m := b.m
	if m.modifiedAt.Before(m.createdAt) {
		m.modifiedAt = m.createdAt
	}
	// Defensive copies so the builder cannot be reused to mutate a
	// previously built, supposedly-immutable Metadata.
	m.tags = append([]string(nil), m.tags...)
	cp := make(map[string]any, len(m.customProperties))
	for k, v := range m.customProperties {
		cp[k] = v
	}
	m.customProperties = cp
	return m
}

func (m Metadata) CreatedAt() time.Time     { return m.createdAt }
func (m Metadata) ModifiedAt() time.Time    { return m.modifiedAt }
func (m Metadata) CreatedBy() string        { return m.createdBy }
func (m Metadata) StatusValue() Status      { return m.status }
func (m Metadata) Version() string          { return m.version }
func (m Metadata) BusinessDomain() string   { return m.businessDomain }
func (m Metadata) BusinessOwner() string    { return m.businessOwner }
func (m Metadata) SourceSystem() string     { return m.sourceSystem }
func (m Metadata) Tags() []string           { return append([]string(nil), m.tags...) }
func (m Metadata) CustomProperties() map[string]any {
	cp := make(map[string]any, len(m.customProperties))
	for k, v := range m.customProperties {
		cp[k] = v
	}
	return cp
}

// EffectiveDate returns the effective date and whether one is set.
func (m Metadata) EffectiveDate() (time.Time, bool) {
	if m.effectiveDate == nil {
		return time.Time{}, false
	}
	return *m.effectiveDate, true
}

// ExpirationDate returns the expiration date and whether one is set.
func (m Metadata) ExpirationDate() (time.Time, bool) {
	if m.expirationDate == nil {
		return time.Time{}, false
	}
	return *m.expirationDate, true
}

// Active reports whether the status is executable (active only; draft,
// inactive, and retired are not).
func (m Metadata) Active() bool {
	return m.status == StatusActive
}
