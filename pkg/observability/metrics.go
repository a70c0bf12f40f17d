package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
)

// MetricsConfig configures the probe metrics
type MetricsConfig struct {
	// Namespace prefixes every metric name (default: mcp_probe)
	Namespace string
	Subsystem string

	// HistogramBuckets are latency buckets in seconds
	HistogramBuckets []float64

	// ConstLabels are added to every metric
	ConstLabels prometheus.Labels
}

// Metrics collects per-probe and per-session measurements on a private
// registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	config   MetricsConfig
	registry *prometheus.Registry

	probeDuration   *prometheus.HistogramVec
	probeTotal      *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
	sessionExits    *prometheus.CounterVec
	sessionErrors   *prometheus.CounterVec
	skippedLines    *prometheus.CounterVec
	argumentIssues  *prometheus.CounterVec
	runDuration     prometheus.Gauge
	runTimestamp    prometheus.Gauge
}

// NewMetrics creates and registers the probe metrics
func NewMetrics(config MetricsConfig) (*Metrics, error) {
	if config.Namespace == "" {
		config.Namespace = "mcp_probe"
	}
	if config.HistogramBuckets == nil {
		config.HistogramBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
	}

	m := &Metrics{
		config:   config,
		registry: prometheus.NewRegistry(),
	}
	m.initializeMetrics()

	if err := m.registerMetrics(); err != nil {
		return nil, probeerrors.InternalError("register metrics", err)
	}
	return m, nil
}

func (m *Metrics) initializeMetrics() {
	m.probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "probe_duration_seconds",
			Help:        "Duration of probes, build to render, in seconds",
			Buckets:     m.config.HistogramBuckets,
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"tool", "outcome"},
	)

	m.probeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "probe_total",
			Help:        "Total number of probes by outcome",
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"tool", "outcome"},
	)

	m.sessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "session_duration_seconds",
			Help:        "Wall time of tool server subprocesses in seconds",
			Buckets:     m.config.HistogramBuckets,
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"tool"},
	)

	m.sessionExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "session_exit_total",
			Help:        "Tool server exits by status code",
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"tool", "exit_code"},
	)

	m.sessionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "session_error_total",
			Help:        "Sessions that produced no output, by error category",
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"tool", "category"},
	)

	m.skippedLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "skipped_lines_total",
			Help:        "Malformed stdout lines skipped during extraction",
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"tool"},
	)

	m.argumentIssues = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "argument_issue_total",
			Help:        "Schema violations found in probe arguments",
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"tool", "code"},
	)

	m.runDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "run_duration_seconds",
			Help:        "Duration of the last complete run in seconds",
			ConstLabels: m.config.ConstLabels,
		},
	)

	m.runTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "run_last_completed_timestamp_seconds",
			Help:        "Unix time the last run completed",
			ConstLabels: m.config.ConstLabels,
		},
	)
}

func (m *Metrics) registerMetrics() error {
	collectors := []prometheus.Collector{
		m.probeDuration,
		m.probeTotal,
		m.sessionDuration,
		m.sessionExits,
		m.sessionErrors,
		m.skippedLines,
		m.argumentIssues,
		m.runDuration,
		m.runTimestamp,
	}

	for _, collector := range collectors {
		if err := m.registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// Registry exposes the underlying registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordProbe records one finished probe
func (m *Metrics) RecordProbe(tool, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.probeDuration.WithLabelValues(tool, outcome).Observe(duration.Seconds())
	m.probeTotal.WithLabelValues(tool, outcome).Inc()
}

// RecordSession records a subprocess that ran to exit
func (m *Metrics) RecordSession(tool string, exitCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.sessionDuration.WithLabelValues(tool).Observe(duration.Seconds())
	m.sessionExits.WithLabelValues(tool, strconv.Itoa(exitCode)).Inc()
}

// RecordSessionError records a session that ended without output
func (m *Metrics) RecordSessionError(tool string, err error) {
	if m == nil || err == nil {
		return
	}
	category := string(probeerrors.CategoryInternal)
	if perr, ok := probeerrors.AsProbeError(err); ok {
		category = string(perr.Category())
	}
	m.sessionErrors.WithLabelValues(tool, category).Inc()
}

// RecordSkippedLines adds to the malformed line count for tool
func (m *Metrics) RecordSkippedLines(tool string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skippedLines.WithLabelValues(tool).Add(float64(n))
}

// RecordArgumentIssue counts one schema violation
func (m *Metrics) RecordArgumentIssue(tool string, code int) {
	if m == nil {
		return
	}
	m.argumentIssues.WithLabelValues(tool, probeerrors.GetErrorCodeName(code)).Inc()
}

// RecordRun records a completed run
func (m *Metrics) RecordRun(duration time.Duration, completed time.Time) {
	if m == nil {
		return
	}
	m.runDuration.Set(duration.Seconds())
	m.runTimestamp.Set(float64(completed.Unix()))
}

// WriteTextfile writes every metric in the text exposition format to path,
// for pickup by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return probeerrors.InternalError("write metrics textfile", err).
			WithContext(&probeerrors.Context{Component: "Metrics", Operation: "write_textfile"})
	}
	return nil
}
