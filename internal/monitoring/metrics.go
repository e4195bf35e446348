// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the engine. It implements the
// observer interfaces of the remote executor, site workers, task queue and
// commit layer.
type Metrics struct {
	registry *prometheus.Registry

	// Remote calls
	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec

	// Worker inputs
	inputsTotal *prometheus.CounterVec

	// Task queue
	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	queueLength  prometheus.Gauge

	// Commits
	commitsTotal   *prometheus.CounterVec
	recordsWritten *prometheus.CounterVec
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace            string `yaml:"namespace" json:"namespace"`
	EnableGoMetrics      bool   `yaml:"enable_go_metrics" json:"enable_go_metrics"`
	EnableProcessMetrics bool   `yaml:"enable_process_metrics" json:"enable_process_metrics"`
}

// NewMetrics creates the collectors on a fresh registry
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "azon_seeker"
	}
	reg := prometheus.NewRegistry()
	if config.EnableGoMetrics {
		reg.MustRegister(collectors.NewGoCollector())
	}
	if config.EnableProcessMetrics {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	factory := promauto.With(reg)
	ns := config.Namespace
	return &Metrics{
		registry: reg,

		remoteCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "remote",
				Name:      "calls_total",
				Help:      "Total number of remote script calls",
			},
			[]string{"script", "outcome"},
		),
		remoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "remote",
				Name:      "call_duration_seconds",
				Help:      "Remote script call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"script"},
		),

		inputsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "worker",
				Name:      "inputs_total",
				Help:      "Total number of worker inputs by outcome",
			},
			[]string{"site", "traversal", "outcome"},
		),

		tasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "queue",
				Name:      "tasks_total",
				Help:      "Total number of queued tasks by final status",
			},
			[]string{"name", "status"},
		),
		taskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "queue",
				Name:      "task_duration_seconds",
				Help:      "Task execution time in seconds",
				Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"name"},
		),
		queueLength: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "queue",
				Name:      "length",
				Help:      "Number of tasks waiting in the queue",
			},
		),

		commitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "commit",
				Name:      "flushes_total",
				Help:      "Total number of collection flushes by status",
			},
			[]string{"site", "collection", "status"},
		),
		recordsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "commit",
				Name:      "records_total",
				Help:      "Total number of records committed",
			},
			[]string{"site", "collection"},
		),
	}
}

// Registry returns the registry the collectors live in
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRemoteCall records one remote script call
func (m *Metrics) ObserveRemoteCall(script, outcome string, elapsed time.Duration) {
	m.remoteCalls.WithLabelValues(script, outcome).Inc()
	m.remoteDuration.WithLabelValues(script).Observe(elapsed.Seconds())
}

// ObserveInput records the outcome of one worker input
func (m *Metrics) ObserveInput(site, traversal, outcome string) {
	m.inputsTotal.WithLabelValues(site, traversal, outcome).Inc()
}

// ObserveTask records a finished task
func (m *Metrics) ObserveTask(name, status string, elapsed time.Duration) {
	m.tasksTotal.WithLabelValues(name, status).Inc()
	m.taskDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// SetQueueLength records the number of pending tasks
func (m *Metrics) SetQueueLength(n int) {
	m.queueLength.Set(float64(n))
}

// ObserveCommit records one collection flush
func (m *Metrics) ObserveCommit(site, collection string, records int, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.commitsTotal.WithLabelValues(site, collection, status).Inc()
	if err == nil {
		m.recordsWritten.WithLabelValues(site, collection).Add(float64(records))
	}
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
