package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/phux/apiverify/app"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects probe and scenario measurements for one run.
type Recorder struct {
	registry *prometheus.Registry

	probes        *prometheus.CounterVec
	probeLatency  *prometheus.HistogramVec
	scenarios     *prometheus.CounterVec
	lastRunFailed prometheus.Gauge
}

// NewRecorder constructs a Recorder. When reg is nil a dedicated registry is
// created so that only run metrics end up in the textfile.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	probes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apiverify",
		Subsystem: "probe",
		Name:      "requests_total",
		Help:      "HTTP probes sent to the service under test.",
	}, []string{"method", "outcome"})

	probeLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "apiverify",
		Subsystem: "probe",
		Name:      "duration_seconds",
		Help:      "Latency distribution for HTTP probes.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method"})

	scenarios := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apiverify",
		Subsystem: "scenario",
		Name:      "total",
		Help:      "Scenarios by final status.",
	}, []string{"status"})

	lastRunFailed := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "apiverify",
		Name:      "last_run_failed",
		Help:      "1 when at least one scenario of the run failed.",
	})

	reg.MustRegister(probes, probeLatency, scenarios, lastRunFailed)

	return &Recorder{
		registry:      reg,
		probes:        probes,
		probeLatency:  probeLatency,
		scenarios:     scenarios,
		lastRunFailed: lastRunFailed,
	}
}

// Gatherer returns the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// ObserveProbe records a single probe.
func (r *Recorder) ObserveProbe(method, outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	methodLabel := normalizeLabel(method)
	r.probes.WithLabelValues(methodLabel, normalizeLabel(outcome)).Inc()
	r.probeLatency.WithLabelValues(methodLabel).Observe(duration.Seconds())
}

// ObserveScenario records the final status of a scenario.
func (r *Recorder) ObserveScenario(status app.Status) {
	if r == nil {
		return
	}
	r.scenarios.WithLabelValues(normalizeLabel(string(status))).Inc()
	if status == app.StatusFailed {
		r.lastRunFailed.Set(1)
	}
}

// WriteTextfile writes the collected metrics in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("cannot write metrics to %s: %w", path, err)
	}

	return nil
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
