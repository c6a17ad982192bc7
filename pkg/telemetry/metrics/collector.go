package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mercator-hq/archivist/pkg/config"
)

// Batch stages.
const (
	StageExtracted = "extracted"
	StageUploaded  = "uploaded"
	StagePurged    = "purged"
)

// Timed steps.
const (
	StepExtract = "extract"
	StepPackage = "package"
	StepUpload  = "upload"
	StepPurge   = "purge"
)

// Collector holds the run metrics.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	records     prometheus.Counter
	batches     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	steps       *prometheus.HistogramVec
	lastSuccess prometheus.Gauge
}

// NewCollector creates a collector and registers its metrics. If registry is
// nil a private registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}

	// A nil registerer leaves the metrics unregistered.
	var reg prometheus.Registerer
	if cfg.Enabled {
		reg = registry
	}
	factory := promauto.With(reg)

	return &Collector{
		enabled:  cfg.Enabled,
		registry: registry,

		records: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_archived_total",
			Help:      "Total number of records committed by archive runs",
		}),
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of batches by stage reached",
		}, []string{"stage"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Total number of failed runs by error kind",
		}, []string{"kind"}),
		steps: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of pipeline steps in seconds",
			// Pages take milliseconds, large uploads minutes.
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"step"}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// AddRecords counts committed records.
func (c *Collector) AddRecords(n int) {
	if !c.enabled || n <= 0 {
		return
	}
	c.records.Add(float64(n))
}

// RecordBatch counts a batch reaching stage.
func (c *Collector) RecordBatch(stage string) {
	if !c.enabled {
		return
	}
	c.batches.WithLabelValues(stage).Inc()
}

// RecordFailure counts a failed run of the given kind.
func (c *Collector) RecordFailure(kind string) {
	if !c.enabled || kind == "" {
		return
	}
	c.failures.WithLabelValues(kind).Inc()
}

// ObserveStep records how long a step took.
func (c *Collector) ObserveStep(step string, d time.Duration) {
	if !c.enabled {
		return
	}
	c.steps.WithLabelValues(step).Observe(d.Seconds())
}

// MarkSuccess sets the last success timestamp.
func (c *Collector) MarkSuccess(t time.Time) {
	if !c.enabled {
		return
	}
	c.lastSuccess.Set(float64(t.Unix()))
}
