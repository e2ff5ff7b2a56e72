// Package metrics implements the performance monitor (C4): per-evaluation
// timing capture plus bounded per-rule aggregates, exported to Prometheus.
// Grounded on the teacher's engine/metrics.go (prometheus CounterVec /
// HistogramVec), generalized from fixed HTTP-request labels to per-rule
// evaluation labels.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/ruletypes"
)

var (
	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ruleflow",
			Subsystem: "engine",
			Name:      "rule_evaluations_total",
			Help:      "Total rule evaluations by rule name and outcome.",
		},
		[]string{"rule", "outcome"},
	)

	evaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ruleflow",
			Subsystem: "engine",
			Name:      "rule_evaluation_duration_seconds",
			Help:      "Rule evaluation latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"rule"},
	)
)

func init() {
	prometheus.MustRegister(evaluationsTotal, evaluationDuration)
}

// maxSamples bounds the per-rule recent-sample ring buffer.
const maxSamples = 64

// Aggregate holds running statistics for one rule name.
type Aggregate struct {
	Count   int64
	SumNs   int64
	MinNs   int64
	MaxNs   int64
	samples []int64
	next    int
}

// Handle is the in-flight evaluation token returned by Start and consumed
// by Complete.
type Handle struct {
	ruleName string
	start    time.Time
}

// Monitor captures per-evaluation metrics and maintains bounded per-rule
// aggregates. Safe for concurrent use: every aggregate update and read
// serializes on a single mutex guarding the per-rule aggregate map; the
// Prometheus updates in Complete happen outside it.
type Monitor struct {
	mu         sync.Mutex
	aggregates map[string]*Aggregate
	threshold  time.Duration
	log        config.Logger
}

// NewMonitor returns a Monitor that warns when a single evaluation exceeds
// threshold.
func NewMonitor(threshold time.Duration, log config.Logger) *Monitor {
	if log == nil {
		log = config.NopLogger()
	}
	return &Monitor{aggregates: map[string]*Aggregate{}, threshold: threshold, log: log}
}

// Start begins timing an evaluation of ruleName.
func (m *Monitor) Start(ruleName string) Handle {
	return Handle{ruleName: ruleName, start: time.Now()}
}

// Complete finishes timing h, recording outcome and updating aggregates and
// Prometheus metrics. evalErr is nil on success.
func (m *Monitor) Complete(h Handle, expression string, evalErr error) *ruletypes.Metrics {
	end := time.Now()
	elapsed := end.Sub(h.start)
	outcome := "ok"
	if evalErr != nil {
		outcome = "error"
	}

	evaluationsTotal.WithLabelValues(h.ruleName, outcome).Inc()
	evaluationDuration.WithLabelValues(h.ruleName).Observe(elapsed.Seconds())

	m.record(h.ruleName, elapsed.Nanoseconds())

	if m.threshold > 0 && elapsed > m.threshold {
		m.log.Warnf("slow rule %q: %s exceeds threshold %s (expression=%q)", h.ruleName, elapsed, m.threshold, expression)
	}

	return &ruletypes.Metrics{
		RuleName:     h.ruleName,
		Expression:   expression,
		StartTime:    h.start,
		EndTime:      end,
		ElapsedNanos: elapsed.Nanoseconds(),
		Outcome:      outcome,
	}
}

func (m *Monitor) record(ruleName string, elapsedNs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.aggregates[ruleName]
	if !ok {
		a = &Aggregate{MinNs: elapsedNs, MaxNs: elapsedNs, samples: make([]int64, 0, maxSamples)}
		m.aggregates[ruleName] = a
	}
	a.Count++
	a.SumNs += elapsedNs
	if elapsedNs < a.MinNs || a.Count == 1 {
		a.MinNs = elapsedNs
	}
	if elapsedNs > a.MaxNs {
		a.MaxNs = elapsedNs
	}
	if len(a.samples) < maxSamples {
		a.samples = append(a.samples, elapsedNs)
	} else {
		a.samples[a.next] = elapsedNs
		a.next = (a.next + 1) % maxSamples
	}
}

// AggregateFor returns a copy of the running statistics for ruleName, or the
// zero value and false if no evaluation has been recorded.
func (m *Monitor) AggregateFor(ruleName string) (Aggregate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.aggregates[ruleName]
	if !ok {
		return Aggregate{}, false
	}
	cp := *a
	cp.samples = append([]int64(nil), a.samples...)
	return cp, true
}

// RecentSamples returns the bounded recent-sample ring, oldest first.
func (a Aggregate) RecentSamples() []int64 {
	// Once the ring is full, next indexes the oldest sample.
	out := make([]int64, 0, len(a.samples))
	out = append(out, a.samples[a.next:]...)
	return append(out, a.samples[:a.next]...)
}
