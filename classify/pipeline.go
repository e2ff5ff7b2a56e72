package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bittoy/ruleflow/cache"
	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/ruletypes"
)

// cacheKeyLen is the truncated SHA-256 hex digest length used in cache
// keys, per spec.md §4.8 step 5.
const cacheKeyLen = 16

// Pipeline runs the layered classification algorithm from spec.md §4.8 and
// caches successful, cacheable results.
type Pipeline struct {
	detectors []FormatDetector
	scenarios []ruletypes.Scenario
	cache     *cache.Cache
	keyPrefix string
	log       config.Logger
}

// NewPipeline builds a Pipeline. cacheCfg configures the backing result
// cache (spec.md §4.8 step 5 default: 300s TTL, 1000 entries).
func NewPipeline(detectors []FormatDetector, scenarios []ruletypes.Scenario, cacheCfg config.CacheConfig, log config.Logger) *Pipeline {
	if log == nil {
		log = config.NopLogger()
	}
	prefix := cacheCfg.KeyPrefix
	if prefix == "" {
		prefix = "classify"
	}
	return &Pipeline{
		detectors: detectors,
		scenarios: scenarios,
		cache:     cache.New(cacheCfg.TTL, cacheCfg.MaxIdle, cacheCfg.MaxSize, cacheCfg.TTL),
		keyPrefix: prefix,
		log:       log,
	}
}

// Classify runs the classification pipeline over content, consulting the
// cache first. fileName and size are optional hints folded into the cache
// key and passed to format detectors.
func (p *Pipeline) Classify(ctx context.Context, content []byte, fileName string, size int64) ruletypes.ClassificationResult {
	start := time.Now()
	key := p.cacheKey(content, fileName, size)

	if cached, ok := p.cache.Get(key); ok {
		result := cached.(ruletypes.ClassificationResult)
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result
	}

	result := p.classify(ctx, content, fileName)
	result.ElapsedMs = time.Since(start).Milliseconds()

	if result.Successful && result.Cacheable {
		p.cache.Put(key, result)
	}
	return result
}

func (p *Pipeline) classify(_ context.Context, content []byte, fileName string) ruletypes.ClassificationResult {
	formatVerdict := DetectFormat(p.detectors, content, fileName)
	if formatVerdict.Format == "UNKNOWN" {
		return ruletypes.ClassificationResult{
			Successful: false,
			FileFormat: "UNKNOWN",
			Err:        ruletypes.NewError(ruletypes.ConfigurationErr, "unable to detect format for %q", fileName),
		}
	}

	parsed := parseForClassification(formatVerdict.Format, content)
	contentVerdict := ClassifyContent(parsed)
	confidence := FuseConfidence(formatVerdict.Confidence, contentVerdict.Confidence)

	scenario, ok := p.route(contentVerdict.ContentType, contentVerdict.ContentType)
	if !ok {
		return ruletypes.ClassificationResult{
			Successful:  false,
			FileFormat:  formatVerdict.Format,
			ContentType: contentVerdict.ContentType,
			Confidence:  confidence,
			ParsedData:  parsed,
			Err:         ruletypes.NewError(ruletypes.NotFound, "NoScenario: no scenario matches contentType=%s format=%s", contentVerdict.ContentType, formatVerdict.Format),
		}
	}

	return ruletypes.ClassificationResult{
		Successful:             true,
		FileFormat:             formatVerdict.Format,
		ContentType:            contentVerdict.ContentType,
		BusinessClassification: contentVerdict.ContentType,
		ScenarioID:             scenario.ID,
		ResolvedScenario:       scenario,
		ParsedData:             parsed,
		Confidence:             confidence,
		Cacheable:              true,
	}
}

// route selects the first matching scenario, per spec.md §4.8 step 4. This
// pipeline has no separate business-domain signal beyond the resolved
// content type, so businessClassification and dataType are both the
// content classifier's verdict; a Scenario narrowing by BusinessDomain
// still applies against it.
func (p *Pipeline) route(businessClassification, dataType string) (*ruletypes.Scenario, bool) {
	for i := range p.scenarios {
		if p.scenarios[i].Matches(businessClassification, dataType) {
			return &p.scenarios[i], true
		}
	}
	return nil, false
}

// parseForClassification decodes content for the content classifier to
// inspect. Only JSON is structurally parsed; XML and CSV payloads yield an
// empty field map, since the content classifier is field-name driven and
// no XML/CSV parser is wired into this pipeline (see DESIGN.md).
func parseForClassification(format string, content []byte) map[string]any {
	if format != "JSON" {
		return map[string]any{}
	}
	var parsed map[string]any
	if err := json.Unmarshal(content, &parsed); err != nil {
		return map[string]any{}
	}
	return parsed
}

func (p *Pipeline) cacheKey(content []byte, fileName string, size int64) string {
	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])[:cacheKeyLen]
	return fmt.Sprintf("%s:%s:%s:%d", p.keyPrefix, digest, fileName, size)
}

// Statistics returns the backing result cache's hit/miss/eviction counters.
func (p *Pipeline) Statistics() cache.Stats {
	return p.cache.Statistics()
}

// Shutdown releases the pipeline's backing cache resources.
func (p *Pipeline) Shutdown() {
	p.cache.Shutdown()
}
