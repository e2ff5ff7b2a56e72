package ruleflow

import (
	"context"

	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/enrich"
	"github.com/bittoy/ruleflow/internal/maps"
	"github.com/bittoy/ruleflow/ruletypes"
)

// datasetSourceConfig is the decoded shape of a DataSourceDoc whose
// sourceType is "dataset": a small in-memory lookup table loaded inline
// in the configuration document, per spec.md §4.9.
type datasetSourceConfig struct {
	KeyField string           `json:"keyField"`
	Records  []map[string]any `json:"records"`
	Defaults map[string]any   `json:"defaults"`
}

// configuredSource adapts a ruletypes.DataSourceDoc into a ruletypes.DataSource.
// Concrete external transport (a REST client, a database driver, a message
// broker) is an external collaborator per spec.md §1 and is out of scope
// here; "dataset" is the one sourceType this façade knows how to serve
// directly, backed by enrich.Dataset. Any other sourceType is registered as
// a named, always-unhealthy placeholder so the registry's Name/Tags/Type
// indices still reflect it, leaving the real connection to be supplied by
// an embedding application via ruletypes.DataSource directly.
type configuredSource struct {
	name       string
	sourceType string
	tags       []string
	dataType   string
	dataset    *enrich.Dataset
}

func newConfiguredSource(doc ruletypes.DataSourceDoc, log config.Logger) ruletypes.DataSource {
	src := &configuredSource{
		name:       doc.Name,
		sourceType: doc.SourceType,
		tags:       doc.Tags,
	}
	if doc.SourceType == "dataset" {
		var cfg datasetSourceConfig
		if err := maps.Map2Struct(doc.SourceConfig, &cfg); err == nil {
			src.dataset = enrich.NewDataset(cfg.KeyField, cfg.Records, cfg.Defaults, log)
		}
	}
	return src
}

func (s *configuredSource) Name() string       { return s.name }
func (s *configuredSource) SourceType() string { return s.sourceType }
func (s *configuredSource) Tags() []string     { return s.tags }
func (s *configuredSource) DataType() string   { return s.dataType }

func (s *configuredSource) IsHealthy(context.Context) bool {
	return s.dataset != nil
}

func (s *configuredSource) Lookup(_ context.Context, key string) (map[string]any, error) {
	if s.dataset == nil {
		return nil, ruletypes.NewError(ruletypes.NotFound, "data source %q: sourceType %q has no built-in transport", s.name, s.sourceType)
	}
	rec := s.dataset.Lookup(key)
	if rec == nil {
		return nil, ruletypes.NewError(ruletypes.NotFound, "data source %q: no record for key %q", s.name, key)
	}
	return rec, nil
}

func (s *configuredSource) Close() error { return nil }
