package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the assessment module.
type Metrics struct {
	// Per-node latency inside the workflow engine
	NodeLatency *prometheus.HistogramVec

	// Router outcomes by router and label
	RoutingOutcome *prometheus.CounterVec

	// Final dispositions by reporting status and risk level
	Disposition *prometheus.CounterVec

	// Workflow run latency
	RunLatency prometheus.Histogram

	// Batch items by result: "ok", "failed", "cancelled"
	BatchItems *prometheus.CounterVec

	// Reasoning calls by outcome and latency of each call
	ReasoningCalls   *prometheus.CounterVec
	ReasoningLatency prometheus.Histogram

	// Augmentation steps that degraded because reasoning was unavailable
	AugmentationSkipped *prometheus.CounterVec

	// Assessment cache lookups: "hit", "miss"
	CacheLookups *prometheus.CounterVec
}

// New creates Metrics registered on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates Metrics registered on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		NodeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aml_workflow_node_duration_seconds",
			Help:    "Duration of workflow node execution by node",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"node"}),

		RoutingOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aml_workflow_routing_total",
			Help: "Router outcomes by router and outcome label",
		}, []string{"router", "outcome"}),

		Disposition: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aml_assessment_dispositions_total",
			Help: "Final assessment dispositions by reporting status and risk level",
		}, []string{"status", "level"}),

		RunLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aml_assessment_run_duration_seconds",
			Help:    "Duration of a full assessment run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 15, 60, 180},
		}),

		BatchItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aml_batch_items_total",
			Help: "Batch items processed by result",
		}, []string{"result"}),

		ReasoningCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aml_reasoning_calls_total",
			Help: "Reasoning capability calls by outcome",
		}, []string{"outcome"}),

		ReasoningLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aml_reasoning_call_duration_seconds",
			Help:    "Duration of reasoning calls including retries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		AugmentationSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aml_augmentation_skipped_total",
			Help: "Augmentation steps skipped because reasoning was unavailable",
		}, []string{"step"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aml_store_cache_total",
			Help: "Assessment cache lookups by result",
		}, []string{"result"}),
	}
}

// ObserveNodeLatency records how long a workflow node took.
func (m *Metrics) ObserveNodeLatency(node string, d time.Duration) {
	if m != nil {
		m.NodeLatency.WithLabelValues(node).Observe(d.Seconds())
	}
}

// IncrementRouting records a router outcome.
func (m *Metrics) IncrementRouting(router, outcome string) {
	if m != nil {
		m.RoutingOutcome.WithLabelValues(router, outcome).Inc()
	}
}

// IncrementDisposition records a final disposition.
func (m *Metrics) IncrementDisposition(status, level string) {
	if m != nil {
		m.Disposition.WithLabelValues(status, level).Inc()
	}
}

// ObserveRunLatency records the total run duration.
func (m *Metrics) ObserveRunLatency(d time.Duration) {
	if m != nil {
		m.RunLatency.Observe(d.Seconds())
	}
}

// IncrementBatchItem records a batch item result.
func (m *Metrics) IncrementBatchItem(result string) {
	if m != nil {
		m.BatchItems.WithLabelValues(result).Inc()
	}
}

// ObserveReasoningCall records one reasoning call and its outcome.
func (m *Metrics) ObserveReasoningCall(outcome string, d time.Duration) {
	if m != nil {
		m.ReasoningCalls.WithLabelValues(outcome).Inc()
		m.ReasoningLatency.Observe(d.Seconds())
	}
}

// IncrementAugmentationSkipped records a degraded augmentation step.
func (m *Metrics) IncrementAugmentationSkipped(step string) {
	if m != nil {
		m.AugmentationSkipped.WithLabelValues(step).Inc()
	}
}

// IncrementCacheHit records an assessment cache hit.
func (m *Metrics) IncrementCacheHit() {
	if m != nil {
		m.CacheLookups.WithLabelValues("hit").Inc()
	}
}

// IncrementCacheMiss records an assessment cache miss.
func (m *Metrics) IncrementCacheMiss() {
	if m != nil {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}
