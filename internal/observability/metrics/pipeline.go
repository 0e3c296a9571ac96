package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics observes per-turn decisions of the answer pipeline.
type PipelineMetrics struct {
	service string

	gateTotal          *prometheus.CounterVec
	retrievalTotal     *prometheus.CounterVec
	retrievedDocuments prometheus.Histogram
	resolvedEntities   prometheus.Histogram
	turnTotal          *prometheus.CounterVec
	turnDuration       *prometheus.HistogramVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	constLabels := prometheus.Labels{"service": service}

	m := &PipelineMetrics{
		service: service,
		gateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "gate",
			Name:        "decisions_total",
			Help:        "Search gate decisions by outcome.",
			ConstLabels: constLabels,
		}, []string{"search"}),
		retrievalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "retrieval",
			Name:        "requests_total",
			Help:        "Retrievals by status; degraded means the turn continued without context.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		retrievedDocuments: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "retrieval",
			Name:        "documents",
			Help:        "Reranked documents used as grounding per turn.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
			ConstLabels: constLabels,
		}),
		resolvedEntities: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "resolver",
			Name:        "entities",
			Help:        "Catalog records bound per answered turn.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 10},
			ConstLabels: constLabels,
		}),
		turnTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "turn",
			Name:        "total",
			Help:        "Completed turns by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "turn",
			Name:        "duration_seconds",
			Help:        "Turn duration in seconds by outcome.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"outcome"}),
	}

	registerer.MustRegister(
		m.gateTotal,
		m.retrievalTotal,
		m.retrievedDocuments,
		m.resolvedEntities,
		m.turnTotal,
		m.turnDuration,
	)
	return m
}

func (m *PipelineMetrics) ObserveGate(search bool) {
	label := "false"
	if search {
		label = "true"
	}
	m.gateTotal.WithLabelValues(label).Inc()
}

func (m *PipelineMetrics) ObserveRetrieval(documents int, err error) {
	if err != nil {
		m.retrievalTotal.WithLabelValues("degraded").Inc()
		return
	}
	m.retrievalTotal.WithLabelValues("ok").Inc()
	m.retrievedDocuments.Observe(float64(documents))
}

func (m *PipelineMetrics) ObserveResolution(entities int) {
	m.resolvedEntities.Observe(float64(entities))
}

func (m *PipelineMetrics) ObserveTurn(outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.turnTotal.WithLabelValues(outcome).Inc()
	m.turnDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}
