// Package metrics provides Prometheus metrics collection for saasgate.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/saasgate/domain/filter"
)

const namespace = "saasgate"

// Collector holds all Prometheus metrics for saasgate.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Extension point metrics
	ChainApplications *prometheus.CounterVec
	ChainDuration     *prometheus.HistogramVec

	// Settings metrics
	SettingsOperations *prometheus.CounterVec

	// Error reports captured by capture_global_error
	ErrorReports *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),

		ChainApplications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "filter_applications_total",
				Help:      "Extension point applications by outcome",
			},
			[]string{"env", "point", "outcome"},
		),
		ChainDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "filter_duration_seconds",
				Help:      "Time spent running an extension point chain",
				Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
			},
			[]string{"env", "point"},
		),

		SettingsOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settings_operations_total",
				Help:      "Settings reads and writes by backend and outcome",
			},
			[]string{"op", "backend", "outcome"},
		),

		ErrorReports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "error_reports_total",
				Help:      "Errors captured by the global error handler",
			},
			[]string{"method"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// ChainApplied implements filter.Observer.
func (c *Collector) ChainApplied(env, point string, entries int, took time.Duration, err error) {
	c.ChainApplications.WithLabelValues(env, point, Outcome(err)).Inc()
	c.ChainDuration.WithLabelValues(env, point).Observe(took.Seconds())
}

// SettingsOperation records one settings read or write.
func (c *Collector) SettingsOperation(op, backend string, err error) {
	c.SettingsOperations.WithLabelValues(op, backend, Outcome(err)).Inc()
}

// ConfigReloaded records a reload attempt.
func (c *Collector) ConfigReloaded(at time.Time, err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(at.Unix()))
}

// Outcome maps an error to the "ok"/"error" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// StatusClass reduces status codes to 2xx, 3xx, 4xx or 5xx.
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

var _ filter.Observer = (*Collector)(nil)
