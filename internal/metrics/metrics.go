package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pressline"

// Metrics owns the pipeline collectors and the registry they are exposed
// from. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration       *prometheus.HistogramVec
	stageAttempts       *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	itemsByStatus       *prometheus.GaugeVec
	assetProbes         *prometheus.CounterVec
	assetProbeDuration  prometheus.Histogram
	batchOperations     *prometheus.CounterVec
	categoryResolutions *prometheus.CounterVec
	qualityScores       prometheus.Histogram
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of stage executions in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage", "outcome"},
		),
		stageAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_attempts_total",
				Help:      "Stage triggers by outcome (completed, failed, held, skipped).",
			},
			[]string{"stage", "outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_transitions_total",
				Help:      "Content item status writes performed by the orchestrator.",
			},
			[]string{"from", "to"},
		),
		itemsByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "items",
				Help:      "Number of content items per status, refreshed by the sweeper.",
			},
			[]string{"status"},
		),
		assetProbes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "asset_probes_total",
				Help:      "Asset URL checks by health and cache use.",
			},
			[]string{"health", "cached"},
		),
		assetProbeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "asset_probe_duration_seconds",
				Help:      "Duration of asset URL probes in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		batchOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batch_operations_total",
				Help:      "Batch intake operations by table and outcome.",
			},
			[]string{"table", "outcome"},
		),
		categoryResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "category_resolutions_total",
				Help:      "Category normalisations by canonical value and match kind.",
			},
			[]string{"category", "match"},
		),
		qualityScores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "quality_score",
				Help:      "Quality gate rubric scores.",
				Buckets:   prometheus.LinearBuckets(0, 10, 11),
			},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.stageDuration,
		m.stageAttempts,
		m.transitions,
		m.itemsByStatus,
		m.assetProbes,
		m.assetProbeDuration,
		m.batchOperations,
		m.categoryResolutions,
		m.qualityScores,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveStage records one stage trigger.
func (m *Metrics) ObserveStage(stage, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageAttempts.WithLabelValues(stage, outcome).Inc()
	if outcome != "skipped" {
		m.stageDuration.WithLabelValues(stage, outcome).Observe(duration.Seconds())
	}
}

// ObserveTransition records one status write.
func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// SetStatusCounts replaces the per-status item gauge.
func (m *Metrics) SetStatusCounts(counts map[string]int) {
	if m == nil {
		return
	}
	m.itemsByStatus.Reset()
	for status, count := range counts {
		m.itemsByStatus.WithLabelValues(status).Set(float64(count))
	}
}

// ObserveAssetProbe records one asset check.
func (m *Metrics) ObserveAssetProbe(health string, cached bool, duration time.Duration) {
	if m == nil {
		return
	}
	label := "false"
	if cached {
		label = "true"
	}
	m.assetProbes.WithLabelValues(health, label).Inc()
	if !cached {
		m.assetProbeDuration.Observe(duration.Seconds())
	}
}

// ObserveBatchOperation records one batch operation result.
func (m *Metrics) ObserveBatchOperation(table string, success bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if success {
		outcome = "succeeded"
	}
	if table == "" {
		table = "unknown"
	}
	m.batchOperations.WithLabelValues(table, outcome).Inc()
}

// ObserveCategory records one category normalisation.
func (m *Metrics) ObserveCategory(category, match string) {
	if m == nil {
		return
	}
	m.categoryResolutions.WithLabelValues(category, match).Inc()
}

// ObserveQualityScore records one gate evaluation.
func (m *Metrics) ObserveQualityScore(score int) {
	if m == nil {
		return
	}
	m.qualityScores.Observe(float64(score))
}
