package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the coordinator's Prometheus metrics.
// All record methods are safe on a nil *Metrics.
type Metrics struct {
	// Knowledge metrics
	KnowledgeWrites   *prometheus.CounterVec
	KnowledgeRotation prometheus.Counter
	KnowledgeSwept    prometheus.Counter

	// Reference resolution metrics
	Resolutions     *prometheus.CounterVec
	ResolutionScore prometheus.Histogram

	// Upstream failures by component
	UpstreamFailures *prometheus.CounterVec
}

// NewMetrics registers the metrics with reg (prometheus.DefaultRegisterer in production)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// Knowledge writes by agent and operation (register/update)
		KnowledgeWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claramesh_knowledge_writes_total",
			Help: "Total number of agent knowledge writes by operation",
		}, []string{"operation", "access_level"}),

		KnowledgeRotation: factory.NewCounter(prometheus.CounterOpts{
			Name: "claramesh_knowledge_rotations_total",
			Help: "Total number of rotated summary recomputations",
		}),

		KnowledgeSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "claramesh_knowledge_records_swept_total",
			Help: "Total number of knowledge records removed by the TTL sweep",
		}),

		// outcome: accepted, low_confidence, no_context, no_candidates
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claramesh_reference_resolutions_total",
			Help: "Total number of reference resolutions by outcome",
		}, []string{"outcome"}),

		ResolutionScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "claramesh_reference_top_score",
			Help:    "Score of the top-ranked candidate per resolution",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),

		UpstreamFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claramesh_upstream_failures_total",
			Help: "Total number of upstream collaborator failures by component",
		}, []string{"component"}),
	}
}

// RecordKnowledgeWrite records a register/update call
func (m *Metrics) RecordKnowledgeWrite(operation, accessLevel string) {
	if m == nil {
		return
	}
	m.KnowledgeWrites.WithLabelValues(operation, accessLevel).Inc()
}

// RecordRotation records one summary recomputation
func (m *Metrics) RecordRotation() {
	if m == nil {
		return
	}
	m.KnowledgeRotation.Inc()
}

// RecordSwept records records removed by a sweep
func (m *Metrics) RecordSwept(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.KnowledgeSwept.Add(float64(count))
}

// RecordResolution records a resolution outcome and, when candidates were scored, the top score
func (m *Metrics) RecordResolution(outcome string, topScore float64, scored bool) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome).Inc()
	if scored {
		m.ResolutionScore.Observe(topScore)
	}
}

// RecordUpstreamFailure records a failed call to an external collaborator
func (m *Metrics) RecordUpstreamFailure(component string) {
	if m == nil {
		return
	}
	m.UpstreamFailures.WithLabelValues(component).Inc()
}
