package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records one run. Each run gets its own registry so repeated runs
// in one process (tests, build = run + test) never collide.
type Metrics struct {
	Registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageRows     *prometheus.GaugeVec
	testFailures  *prometheus.CounterVec
	testsRun      *prometheus.CounterVec
	tablesWritten *prometheus.CounterVec
}

// NewMetrics registers the run metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "martflow_stage_duration_seconds",
			Help:    "Time spent computing each model.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"model", "layer"}),
		stageRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "martflow_stage_rows",
			Help: "Rows produced by each model in the last run.",
		}, []string{"model", "layer"}),
		testFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "martflow_test_failures_total",
			Help: "Failing rows reported by data-quality tests.",
		}, []string{"test", "severity"}),
		testsRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "martflow_tests_total",
			Help: "Data-quality tests evaluated, by outcome.",
		}, []string{"status"}),
		tablesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "martflow_rows_written_total",
			Help: "Rows materialized per target table.",
		}, []string{"target", "table"}),
	}

	reg.MustRegister(m.stageDuration, m.stageRows, m.testFailures, m.testsRun, m.tablesWritten)
	return m
}

// ObserveStage records a computed model.
func (m *Metrics) ObserveStage(model, layer string, rows int, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(model, layer).Observe(d.Seconds())
	m.stageRows.WithLabelValues(model, layer).Set(float64(rows))
}

// ObserveTest records a test outcome and its failing row count.
func (m *Metrics) ObserveTest(test, severity, status string, failures int) {
	if m == nil {
		return
	}
	m.testsRun.WithLabelValues(status).Inc()
	if failures > 0 {
		m.testFailures.WithLabelValues(test, severity).Add(float64(failures))
	}
}

// ObserveWrite records rows materialized to a target table.
func (m *Metrics) ObserveWrite(target, table string, rows int) {
	if m == nil {
		return
	}
	m.tablesWritten.WithLabelValues(target, table).Add(float64(rows))
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
