package ruletypes

import "time"

// The types in this file are the already-typed configuration document
// shapes spec.md §6 describes as produced by an external loader and
// consumed by the service façade. The façade compiles these into the
// immutable runtime types above (Rule, RuleGroup, RuleChain, Scenario);
// it never parses raw text itself (config document parsing is explicitly
// out of scope, per spec.md §1).

// RuleDoc is one rule entry of a configuration document.
type RuleDoc struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	Category          string         `json:"category"`
	Condition         string         `json:"condition"`
	Kind              string         `json:"kind"`
	Message           string         `json:"message"`
	Priority          int            `json:"priority"`
	Enabled           bool           `json:"enabled"`
	CreatedBy         string         `json:"createdBy"`
	BusinessDomain    string         `json:"businessDomain"`
	BusinessOwner     string         `json:"businessOwner"`
	SourceSystem      string         `json:"sourceSystem"`
	EffectiveDate     *time.Time     `json:"effectiveDate,omitempty"`
	ExpirationDate    *time.Time     `json:"expirationDate,omitempty"`
	CustomProperties  map[string]any `json:"customProperties"`
}

// RuleGroupDoc is one rule-group entry of a configuration document.
type RuleGroupDoc struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Priority int      `json:"priority"`
	Enabled  bool     `json:"enabled"`
	RuleIDs  []string `json:"ruleIds"`
	Operator string   `json:"operator"`
}

// RuleChainDoc is one rule-chain entry of a configuration document.
type RuleChainDoc struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Pattern       string         `json:"pattern"`
	Enabled       bool           `json:"enabled"`
	Priority      int            `json:"priority"`
	Configuration map[string]any `json:"configuration"`
}

// ScenarioDoc is one scenario entry of a configuration document.
type ScenarioDoc struct {
	ID             string          `json:"id"`
	Stages         []ScenarioStage `json:"stages"`
	DataTypes      []string        `json:"dataTypes"`
	BusinessDomain string          `json:"businessDomain"`
	Owner          string          `json:"owner"`
}

// DataSourceDoc is one data-source binding entry of a configuration
// document.
type DataSourceDoc struct {
	Name               string         `json:"name"`
	SourceType         string         `json:"sourceType"`
	SourceConfig       map[string]any `json:"sourceConfig"`
	CacheConfig        map[string]any `json:"cacheConfig"`
	Tags               []string       `json:"tags"`
}

// DocumentMetadata is the configuration document's own descriptive header.
type DocumentMetadata struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ConfigurationDocument is the top-level, already-typed configuration
// object the façade accepts via AddConfiguration/Reload.
type ConfigurationDocument struct {
	Metadata    DocumentMetadata `json:"metadata"`
	Categories  []Category       `json:"categories"`
	Rules       []RuleDoc        `json:"rules"`
	RuleGroups  []RuleGroupDoc   `json:"ruleGroups"`
	RuleChains  []RuleChainDoc   `json:"ruleChains"`
	Scenarios   []ScenarioDoc    `json:"scenarios"`
	DataSources []DataSourceDoc  `json:"dataSources"`
}
