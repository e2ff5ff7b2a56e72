package ruletypes

import "time"

// ClassificationResult is the outcome of running the classification
// pipeline (C8) over an input record, per spec.md §3.
type ClassificationResult struct {
	Successful             bool
	FileFormat             string
	ContentType            string
	BusinessClassification string
	ScenarioID             string
	ResolvedScenario       *Scenario
	ParsedData             map[string]any
	Confidence             float64
	Err                    *Error
	ElapsedMs              int64
	Cacheable              bool
}

// Equal compares two ClassificationResults for equality modulo ElapsedMs,
// used to pin the idempotence property from spec.md §8 (property 8).
func (r ClassificationResult) Equal(other ClassificationResult) bool {
	if r.Successful != other.Successful ||
		r.FileFormat != other.FileFormat ||
		r.ContentType != other.ContentType ||
		r.BusinessClassification != other.BusinessClassification ||
		r.ScenarioID != other.ScenarioID ||
		r.Confidence != other.Confidence ||
		r.Cacheable != other.Cacheable {
		return false
	}
	if (r.Err == nil) != (other.Err == nil) {
		return false
	}
	if r.Err != nil && (r.Err.Kind != other.Err.Kind || r.Err.Message != other.Err.Message) {
		return false
	}
	return mapsEqual(r.ParsedData, other.ParsedData)
}

func mapsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// FailurePolicy is the closed set of per-stage failure policies from
// spec.md §3/§4.10.
type FailurePolicy string

const (
	PolicyTerminate              FailurePolicy = "terminate"
	PolicyContinueWithWarnings   FailurePolicy = "continue-with-warnings"
	PolicyFlagForReview          FailurePolicy = "flag-for-review"
)

// ScenarioStage describes one stage of a Scenario's pipeline, per spec.md §3.
type ScenarioStage struct {
	Name          string        `json:"name"`
	ConfigRef     string        `json:"configRef"`
	DependsOn     []string      `json:"dependsOn"`
	Required      bool          `json:"required"`
	FailurePolicy FailurePolicy `json:"failurePolicy"`
	Order         int           `json:"order"`
}

// Scenario is a named sequence of stages with associated metadata, the
// configuration-document shape consumed by C10/C11 per spec.md §6.
type Scenario struct {
	ID             string
	Stages         []ScenarioStage
	DataTypes      []string
	BusinessDomain string
	Owner          string
}

// Matches reports whether the scenario applies to the given business
// classification and data type, the "first matching scenario" lookup from
// spec.md §4.8 step 4. Implementers supply the routing table; absence of a
// match is the NoScenario failure case.
func (s Scenario) Matches(businessClassification, dataType string) bool {
	if s.BusinessDomain != "" && s.BusinessDomain != businessClassification {
		return false
	}
	if len(s.DataTypes) == 0 {
		return true
	}
	for _, dt := range s.DataTypes {
		if dt == dataType {
			return true
		}
	}
	return false
}

// ScenarioStageResult is the outcome of executing a single stage, used by
// the ScenarioExecutionResult in package scenario.
type ScenarioStageResult struct {
	Stage             string
	Status            StageStatus
	Result            RuleResult
	Skipped           bool
	SkipReason        string
	ConfigurationErr  string
	ElapsedMs         int64
	StartedAt         time.Time
}

// StageStatus is the closed set of per-stage outcomes from spec.md §4.10.
type StageStatus string

const (
	StageSuccess            StageStatus = "success"
	StageError              StageStatus = "error"
	StageSkipped            StageStatus = "skipped"
	StageConfigurationError StageStatus = "configuration-error"
)

// ScenarioExecutionResult is the result contract of executeStages, per
// spec.md §4.10: per-stage results, warnings, review flags, a terminated
// flag, total elapsed time, and a one-line execution summary.
type ScenarioExecutionResult struct {
	ScenarioID      string
	Stages          []ScenarioStageResult
	Warnings        []string
	RequiresReview  bool
	ReviewFlags     []string
	Terminated      bool
	TotalElapsedMs  int64
	Summary         string
}

// NewScenarioExecutionResult returns an empty result for scenarioID ready
// to be appended to.
func NewScenarioExecutionResult(scenarioID string) *ScenarioExecutionResult {
	return &ScenarioExecutionResult{ScenarioID: scenarioID, Stages: []ScenarioStageResult{}}
}

// AddStage appends a stage result, preserving execution order.
func (r *ScenarioExecutionResult) AddStage(sr ScenarioStageResult) {
	r.Stages = append(r.Stages, sr)
}
